package tree

import "pragmax/internal/types"

// Rename rewrites identifiers and type attributes while cloning.
type Rename struct {
	Names map[string]string
	Types map[types.TypeID]types.TypeID
}

// IsZero reports whether the rename is a no-op.
func (r Rename) IsZero() bool { return len(r.Names) == 0 && len(r.Types) == 0 }

// Name maps an identifier, returning it unchanged when not renamed.
func (r Rename) Name(name string) string {
	if mapped, ok := r.Names[name]; ok {
		return mapped
	}
	return name
}

// Type maps a type id, returning it unchanged when not renamed.
func (r Rename) Type(id types.TypeID) types.TypeID {
	if mapped, ok := r.Types[id]; ok {
		return mapped
	}
	return id
}

// Clone deep-copies the subtree rooted at id. The copy is detached.
func (t *Tree) Clone(id NodeID) NodeID {
	return t.CloneWith(id, Rename{})
}

// CloneWith deep-copies the subtree rooted at id, applying r to identifier
// values and to every type attribute.
func (t *Tree) CloneWith(id NodeID, r Rename) NodeID {
	n := t.Get(id)
	if n == nil {
		return NoNodeID
	}
	value := n.Value
	if n.Op.IsIdentifier() {
		value = r.Name(value)
	}
	dup := t.NewLeaf(n.Op, value, r.Type(n.Type), n.Span)
	for _, c := range t.Children(id) {
		cc := t.CloneWith(c, r)
		if cc.IsValid() {
			d := t.Get(dup)
			d.Children = append(d.Children, cc)
			t.Get(cc).Parent = dup
		}
	}
	return dup
}

// Equal compares two subtrees by opcode, value and children. Types and spans
// are ignored.
func (t *Tree) Equal(a, b NodeID) bool {
	na, nb := t.Get(a), t.Get(b)
	if na == nil || nb == nil {
		return na == nb
	}
	if na.Op != nb.Op || na.Value != nb.Value || len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if !t.Equal(na.Children[i], nb.Children[i]) {
			return false
		}
	}
	return true
}
