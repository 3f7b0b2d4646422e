package symbols

import (
	"fmt"

	"pragmax/internal/tree"
)

// DeclTable indexes the varDecl nodes of one declarations block by the value
// of their name child, folded with Key.
type DeclTable struct {
	tree      *tree.Tree
	container tree.NodeID
	index     map[string]tree.NodeID
}

// NewDeclTable binds an empty table to a declarations node.
func NewDeclTable(t *tree.Tree, container tree.NodeID) *DeclTable {
	return &DeclTable{tree: t, container: container, index: make(map[string]tree.NodeID)}
}

// LoadDeclTable builds a table from the varDecl children already present
// under container.
func LoadDeclTable(t *tree.Tree, container tree.NodeID) (*DeclTable, error) {
	d := NewDeclTable(t, container)
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d, nil
}

// DeclName returns the declared identifier of a varDecl node.
func DeclName(t *tree.Tree, decl tree.NodeID) string {
	return t.Value(t.MatchDirectDescendant(decl, tree.OpName))
}

// Container returns the declarations node the table mirrors.
func (d *DeclTable) Container() tree.NodeID { return d.container }

// Load rebuilds the index from the tree.
func (d *DeclTable) Load() error {
	clear(d.index)
	for _, c := range d.tree.Children(d.container) {
		if d.tree.Op(c) != tree.OpVarDecl {
			continue
		}
		name := DeclName(d.tree, c)
		if name == "" {
			return fmt.Errorf("symbols: varDecl %d has no name", c)
		}
		if _, dup := d.index[Key(name)]; dup {
			return fmt.Errorf("%w: declaration %s", ErrDuplicate, name)
		}
		d.index[Key(name)] = c
	}
	return nil
}

// Get returns the live declaration of name.
func (d *DeclTable) Get(name string) (tree.NodeID, bool) {
	id, ok := d.index[Key(name)]
	if !ok || !d.tree.IsLive(id) {
		return tree.NoNodeID, false
	}
	return id, true
}

// Has reports whether name has a live declaration.
func (d *DeclTable) Has(name string) bool {
	_, ok := d.Get(name)
	return ok
}

// Add appends decl to the declarations block and indexes it.
func (d *DeclTable) Add(decl tree.NodeID) error {
	name := DeclName(d.tree, decl)
	if name == "" {
		return fmt.Errorf("symbols: varDecl %d has no name", decl)
	}
	if d.Has(name) {
		return fmt.Errorf("%w: declaration %s", ErrDuplicate, name)
	}
	if err := d.tree.Append(d.container, decl); err != nil {
		return fmt.Errorf("add declaration %s: %w", name, err)
	}
	d.index[Key(name)] = decl
	return nil
}

// Replace puts decl in place of the declaration of name and deletes the old node.
func (d *DeclTable) Replace(decl tree.NodeID, name string) error {
	old, ok := d.Get(name)
	if !ok {
		return fmt.Errorf("%w: declaration %s", ErrNotFound, name)
	}
	newName := DeclName(d.tree, decl)
	if Key(newName) != Key(name) && d.Has(newName) {
		return fmt.Errorf("%w: declaration %s", ErrDuplicate, newName)
	}
	if err := d.tree.InsertBefore(old, decl); err != nil {
		return fmt.Errorf("replace declaration %s: %w", name, err)
	}
	d.tree.Delete(old)
	delete(d.index, Key(name))
	d.index[Key(newName)] = decl
	return nil
}

// Remove deletes the declaration of name from the tree and the index.
func (d *DeclTable) Remove(name string) {
	if id, ok := d.index[Key(name)]; ok {
		d.tree.Delete(id)
		delete(d.index, Key(name))
	}
}

// Names lists declared identifiers in document order.
func (d *DeclTable) Names() []string {
	var out []string
	for _, c := range d.tree.Children(d.container) {
		if d.tree.Op(c) != tree.OpVarDecl {
			continue
		}
		name := DeclName(d.tree, c)
		if id, ok := d.index[Key(name)]; ok && id == c {
			out = append(out, name)
		}
	}
	return out
}

// Len reports the number of indexed live declarations.
func (d *DeclTable) Len() int { return len(d.Names()) }
