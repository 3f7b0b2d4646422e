// Package program ties the node tree to its tables: the program-wide type
// table, the global symbols, one symbol and declaration table per function
// definition, and the diagnostics log written by the transformations.
package program

import (
	"errors"
	"fmt"
	"strings"

	"pragmax/internal/diag"
	"pragmax/internal/source"
	"pragmax/internal/symbols"
	"pragmax/internal/tree"
	"pragmax/internal/types"
)

// ErrNoFunction is returned when a function scope cannot be resolved.
var ErrNoFunction = errors.New("program: function not found")

// Program is one document under transformation. It is owned by a single
// goroutine for the whole run.
type Program struct {
	Tree    *tree.Tree
	Types   *types.Table
	Globals *symbols.Table
	Diags   *diag.Bag

	// Source is the document name diagnostics are reported against.
	Source string
	File   source.FileID

	globalDecls tree.NodeID
	scopes      map[tree.NodeID]*Function
	report      *diag.DedupReporter
}

// New creates an empty program with a root and a globalDeclarations node.
// A nil bag gets an unlimited one.
func New(sourceName string, file source.FileID, bag *diag.Bag) *Program {
	if bag == nil {
		bag = diag.NewBag(0)
	}
	t := tree.New(0)
	root := t.New(tree.OpProgram, source.Span{File: file})
	t.SetRoot(root)
	globals := t.New(tree.OpGlobalDeclarations, source.Span{File: file})
	if err := t.Append(root, globals); err != nil {
		panic(err)
	}
	return &Program{
		Tree:        t,
		Types:       types.NewTable(),
		Globals:     symbols.NewTable(),
		Diags:       bag,
		Source:      sourceName,
		File:        file,
		globalDecls: globals,
		scopes:      make(map[tree.NodeID]*Function),
		report:      diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
}

// Root returns the program node.
func (p *Program) Root() tree.NodeID { return p.Tree.Root() }

// GlobalDeclarations returns the node holding the function definitions.
func (p *Program) GlobalDeclarations() tree.NodeID { return p.globalDecls }

// Span anchors a line of the program's document.
func (p *Program) Span(line uint32) source.Span {
	return source.At(p.File, line)
}

// reporter drops a diagnostic repeating an earlier one at the same line.
func (p *Program) reporter() diag.Reporter {
	return p.report
}

// AddError records an error diagnostic.
func (p *Program) AddError(code diag.Code, sp source.Span, msg string) {
	diag.ReportError(p.reporter(), code, sp, msg).Emit()
}

// AddWarning records a warning diagnostic.
func (p *Program) AddWarning(code diag.Code, sp source.Span, msg string) {
	diag.ReportWarning(p.reporter(), code, sp, msg).Emit()
}

// AddFunction appends a new function definition with empty declarations and
// body, and binds its name in the global table and in its own table.
func (p *Program) AddFunction(name string, typ types.TypeID, sp source.Span) (*Function, error) {
	if p.Globals.Has(name) {
		return nil, fmt.Errorf("%w: function %s", symbols.ErrDuplicate, name)
	}
	def := p.Tree.New(tree.OpFunctionDefinition, sp)
	decls := p.Tree.New(tree.OpDeclarations, sp)
	for _, child := range []tree.NodeID{
		p.NewName(name, typ, sp),
		decls,
		p.Tree.New(tree.OpBody, sp),
	} {
		if err := p.Tree.Append(def, child); err != nil {
			return nil, err
		}
	}
	if err := p.Tree.Append(p.globalDecls, def); err != nil {
		return nil, err
	}
	local := symbols.NewTable()
	if err := local.Add(symbols.Symbol{Name: name, Type: typ, Kind: symbols.KindFunction}); err != nil {
		return nil, err
	}
	if err := p.Globals.Add(symbols.Symbol{Name: name, Type: typ, Kind: symbols.KindFunction}); err != nil {
		return nil, err
	}
	return p.Register(def, local)
}

// Register attaches a scope to an existing function definition node. The
// declaration table is rebuilt from the tree.
func (p *Program) Register(def tree.NodeID, local *symbols.Table) (*Function, error) {
	if p.Tree.Op(def) != tree.OpFunctionDefinition {
		return nil, fmt.Errorf("program: node %d is %s, not a function definition", def, p.Tree.Op(def))
	}
	container := p.Tree.MatchDirectDescendant(def, tree.OpDeclarations)
	if !container.IsValid() {
		return nil, fmt.Errorf("program: function definition %d has no declarations", def)
	}
	decls, err := symbols.LoadDeclTable(p.Tree, container)
	if err != nil {
		return nil, err
	}
	if local == nil {
		local = symbols.NewTable()
	}
	fn := &Function{Node: def, Symbols: local, Decls: decls, prog: p}
	p.scopes[def] = fn
	return fn, nil
}

// Functions lists the live function definitions in document order.
func (p *Program) Functions() []*Function {
	var out []*Function
	for _, def := range p.Tree.MatchAll(p.Root(), tree.OpFunctionDefinition) {
		if fn := p.FunctionOf(def); fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

// FunctionOf returns the scope registered for a function definition node.
func (p *Program) FunctionOf(def tree.NodeID) *Function {
	if !p.Tree.IsLive(def) {
		return nil
	}
	return p.scopes[def]
}

// FunctionByName returns the first live function definition named name,
// ignoring case.
func (p *Program) FunctionByName(name string) *Function {
	for _, fn := range p.Functions() {
		if strings.EqualFold(fn.Name(), name) {
			return fn
		}
	}
	return nil
}

// EnclosingFunction returns the function definition containing n.
func (p *Program) EnclosingFunction(n tree.NodeID) *Function {
	return p.FunctionOf(p.Tree.MatchAncestor(n, tree.OpFunctionDefinition))
}

// FunctionDefinition resolves the definition called by a functionCall node.
func (p *Program) FunctionDefinition(call tree.NodeID) *Function {
	if p.Tree.Op(call) != tree.OpFunctionCall {
		return nil
	}
	name := p.Tree.MatchDirectDescendant(call, tree.OpName)
	if !name.IsValid() {
		return nil
	}
	return p.FunctionByName(p.Tree.Value(name))
}

// CloneFunction deep-copies fn under a new name and function type. Every
// occurrence of the old name and type inside the copy is rewritten; the copy
// gets its own symbol and declaration tables and is not inserted in the tree.
func (p *Program) CloneFunction(fn *Function, newName string, newType types.TypeID) (*Function, error) {
	if fn == nil || !p.Tree.IsLive(fn.Node) {
		return nil, ErrNoFunction
	}
	r := tree.Rename{
		Names: map[string]string{fn.Name(): newName},
		Types: map[types.TypeID]types.TypeID{fn.Type(): newType},
	}
	local, err := fn.Symbols.Clone(r)
	if err != nil {
		return nil, fmt.Errorf("clone symbols of %s: %w", fn.Name(), err)
	}
	def := p.Tree.CloneWith(fn.Node, r)
	return p.Register(def, local)
}

// InsertFunctionAfter places fn right after ref in program order.
func (p *Program) InsertFunctionAfter(ref, fn *Function) error {
	return p.Tree.InsertAfter(ref.Node, fn.Node)
}

// CopyDeclaration copies the symbol and the declaration of name from one
// scope to another when the target lacks them. It reports whether anything
// was copied; an existing entry is never duplicated.
func (p *Program) CopyDeclaration(from, to *Function, name string) (bool, error) {
	copied := false
	if !to.Symbols.Has(name) {
		if sym, ok := from.Symbols.Get(name); ok {
			if err := to.Symbols.Add(sym); err != nil {
				return copied, err
			}
			copied = true
		}
	}
	if !to.Decls.Has(name) {
		if decl, ok := from.Decls.Get(name); ok {
			if err := to.Decls.Add(p.Tree.Clone(decl)); err != nil {
				return copied, err
			}
			copied = true
		}
	}
	return copied, nil
}
