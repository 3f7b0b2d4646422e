package program

import (
	"fmt"

	"pragmax/internal/source"
	"pragmax/internal/symbols"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// Function is the scope of one function definition node: the node itself
// with children [name, declarations, body], its symbols and its declarations.
type Function struct {
	Node    tree.NodeID
	Symbols *symbols.Table
	Decls   *symbols.DeclTable

	prog *Program
}

// NameNode returns the name child of the definition.
func (f *Function) NameNode() tree.NodeID {
	return f.prog.Tree.MatchDirectDescendant(f.Node, tree.OpName)
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.prog.Tree.Value(f.NameNode())
}

// Type returns the function type id carried by the name node.
func (f *Function) Type() types.TypeID {
	return f.prog.Tree.TypeOf(f.NameNode())
}

// Body returns the statement list of the function.
func (f *Function) Body() tree.NodeID {
	return f.prog.Tree.MatchDirectDescendant(f.Node, tree.OpBody)
}

// Declarations returns the declarations block of the function.
func (f *Function) Declarations() tree.NodeID {
	return f.Decls.Container()
}

// SetName renames the definition and its own symbol entry.
func (f *Function) SetName(name string) error {
	old := f.Name()
	if f.Symbols.Has(old) {
		if err := f.Symbols.Rename(old, name); err != nil {
			return err
		}
	}
	f.prog.Tree.SetValue(f.NameNode(), name)
	return nil
}

// SetType retypes the definition and its own symbol entry.
func (f *Function) SetType(typ types.TypeID) {
	name := f.Name()
	if f.Symbols.Has(name) {
		_ = f.Symbols.SetType(name, typ)
	}
	f.prog.Tree.SetType(f.NameNode(), typ)
}

// Declare adds a variable declaration and its symbol to the scope.
func (f *Function) Declare(name string, typ types.TypeID, kind symbols.Kind, sp source.Span) (tree.NodeID, error) {
	if f.Symbols.Has(name) {
		return tree.NoNodeID, fmt.Errorf("%w: %s in %s", symbols.ErrDuplicate, name, f.Name())
	}
	decl := f.prog.NewVarDecl(name, typ, sp)
	if err := f.Decls.Add(decl); err != nil {
		f.prog.Tree.Delete(decl)
		return tree.NoNodeID, err
	}
	if err := f.Symbols.Add(symbols.Symbol{Name: name, Type: typ, Kind: kind}); err != nil {
		return tree.NoNodeID, err
	}
	return decl, nil
}

// DeclaredType returns the type of the declaration of name, falling back to
// the symbol table.
func (f *Function) DeclaredType(name string) (types.TypeID, bool) {
	if decl, ok := f.Decls.Get(name); ok {
		return f.prog.Tree.TypeOf(f.prog.Tree.MatchDirectDescendant(decl, tree.OpName)), true
	}
	if sym, ok := f.Symbols.Get(name); ok {
		return sym.Type, true
	}
	return types.NoTypeID, false
}

// Spelling returns name as it is written in the scope's declaration or
// symbol, or name itself when neither binds it.
func (f *Function) Spelling(name string) string {
	if decl, ok := f.Decls.Get(name); ok {
		return symbols.DeclName(f.prog.Tree, decl)
	}
	if sym, ok := f.Symbols.Get(name); ok {
		return sym.Name
	}
	return name
}
