package tree

import (
	"errors"
	"fmt"
	"slices"

	"pragmax/internal/source"
	"pragmax/internal/types"
)

var (
	// ErrDeadNode is returned when an operation touches a deleted or unknown node.
	ErrDeadNode = errors.New("tree: node is not live")
	// ErrDetached is returned when a sibling insertion targets a node without parent.
	ErrDetached = errors.New("tree: reference node has no parent")
	// ErrCycle is returned when a node would become its own descendant.
	ErrCycle = errors.New("tree: insertion would create a cycle")
)

// Node is a tagged tree element. Children are owned; Parent is a non-owning
// back reference.
type Node struct {
	Op       Opcode
	Parent   NodeID
	Children []NodeID
	Type     types.TypeID
	Value    string
	Span     source.Span
	live     bool
}

// Tree stores every node of a program in one arena. Deleted nodes keep their
// slot but are no longer reachable through Get.
type Tree struct {
	nodes *Arena[Node]
	root  NodeID
}

// New creates an empty tree with room for capHint nodes.
func New(capHint uint) *Tree {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Tree{nodes: NewArena[Node](capHint)}
}

// New allocates a detached node.
func (t *Tree) New(op Opcode, sp source.Span) NodeID {
	return NodeID(t.nodes.Allocate(Node{Op: op, Span: sp, live: true}))
}

// NewLeaf allocates a detached node carrying a value and a type.
func (t *Tree) NewLeaf(op Opcode, value string, typ types.TypeID, sp source.Span) NodeID {
	return NodeID(t.nodes.Allocate(Node{Op: op, Value: value, Type: typ, Span: sp, live: true}))
}

// SetRoot marks id as the document root.
func (t *Tree) SetRoot(id NodeID) { t.root = id }

// Root returns the document root.
func (t *Tree) Root() NodeID { return t.root }

// Len reports how many slots were ever allocated, deleted ones included.
func (t *Tree) Len() int { return int(t.nodes.Len()) }

// Get returns the node, or nil when id is absent or deleted.
func (t *Tree) Get(id NodeID) *Node {
	n := t.nodes.Get(uint32(id))
	if n == nil || !n.live {
		return nil
	}
	return n
}

// IsLive reports whether id refers to a node that was not deleted.
func (t *Tree) IsLive(id NodeID) bool {
	return t.Get(id) != nil
}

// Op returns the opcode of id, or OpInvalid for dead nodes.
func (t *Tree) Op(id NodeID) Opcode {
	if n := t.Get(id); n != nil {
		return n.Op
	}
	return OpInvalid
}

// Value returns the textual value of id.
func (t *Tree) Value(id NodeID) string {
	if n := t.Get(id); n != nil {
		return n.Value
	}
	return ""
}

// SetValue replaces the textual value of id.
func (t *Tree) SetValue(id NodeID, value string) {
	if n := t.Get(id); n != nil {
		n.Value = value
	}
}

// TypeOf returns the type attribute of id.
func (t *Tree) TypeOf(id NodeID) types.TypeID {
	if n := t.Get(id); n != nil {
		return n.Type
	}
	return types.NoTypeID
}

// SetType replaces the type attribute of id.
func (t *Tree) SetType(id NodeID, typ types.TypeID) {
	if n := t.Get(id); n != nil {
		n.Type = typ
	}
}

// SpanOf returns the source anchor of id.
func (t *Tree) SpanOf(id NodeID) source.Span {
	if n := t.Get(id); n != nil {
		return n.Span
	}
	return source.Span{}
}

// Parent returns the parent of id, or NoNodeID for roots and detached nodes.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Get(id); n != nil {
		return n.Parent
	}
	return NoNodeID
}

// Children returns a copy of the child list, safe to iterate while mutating.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.Get(id)
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return slices.Clone(n.Children)
}

// NumChildren reports the number of children of id.
func (t *Tree) NumChildren(id NodeID) int {
	if n := t.Get(id); n != nil {
		return len(n.Children)
	}
	return 0
}

// Child returns the i-th child of id, or NoNodeID when out of range.
func (t *Tree) Child(id NodeID, i int) NodeID {
	n := t.Get(id)
	if n == nil || i < 0 || i >= len(n.Children) {
		return NoNodeID
	}
	return n.Children[i]
}

// indexInParent returns the position of id among its siblings, or -1.
func (t *Tree) indexInParent(id NodeID) int {
	p := t.Get(t.Parent(id))
	if p == nil {
		return -1
	}
	return slices.Index(p.Children, id)
}

// NextSibling returns the sibling right after id.
func (t *Tree) NextSibling(id NodeID) NodeID {
	idx := t.indexInParent(id)
	if idx < 0 {
		return NoNodeID
	}
	return t.Child(t.Parent(id), idx+1)
}

// PrevSibling returns the sibling right before id.
func (t *Tree) PrevSibling(id NodeID) NodeID {
	idx := t.indexInParent(id)
	if idx <= 0 {
		return NoNodeID
	}
	return t.Child(t.Parent(id), idx-1)
}

// IsAncestor reports whether anc is id or one of its ancestors.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur.IsValid(); cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// Detach unlinks id from its parent. The subtree stays live.
func (t *Tree) Detach(id NodeID) {
	n := t.Get(id)
	if n == nil || !n.Parent.IsValid() {
		return
	}
	if p := t.Get(n.Parent); p != nil {
		if idx := slices.Index(p.Children, id); idx >= 0 {
			p.Children = slices.Delete(p.Children, idx, idx+1)
		}
	}
	n.Parent = NoNodeID
}

func (t *Tree) checkMovable(dst, n NodeID) error {
	if !t.IsLive(dst) {
		return fmt.Errorf("%w: %d", ErrDeadNode, dst)
	}
	if !t.IsLive(n) {
		return fmt.Errorf("%w: %d", ErrDeadNode, n)
	}
	if t.IsAncestor(n, dst) {
		return fmt.Errorf("%w: %s %d into %s %d", ErrCycle, t.Op(n), n, t.Op(dst), dst)
	}
	return nil
}

// Append moves n to the end of parent's children. An attached n is detached first.
func (t *Tree) Append(parent, n NodeID) error {
	if err := t.checkMovable(parent, n); err != nil {
		return err
	}
	t.Detach(n)
	p := t.Get(parent)
	p.Children = append(p.Children, n)
	t.Get(n).Parent = parent
	return nil
}

// InsertAfter moves n right after ref among ref's siblings.
func (t *Tree) InsertAfter(ref, n NodeID) error {
	return t.insertAt(ref, n, 1)
}

// InsertBefore moves n right before ref among ref's siblings.
func (t *Tree) InsertBefore(ref, n NodeID) error {
	return t.insertAt(ref, n, 0)
}

func (t *Tree) insertAt(ref, n NodeID, offset int) error {
	parent := t.Parent(ref)
	if !parent.IsValid() {
		if !t.IsLive(ref) {
			return fmt.Errorf("%w: %d", ErrDeadNode, ref)
		}
		return fmt.Errorf("%w: %s %d", ErrDetached, t.Op(ref), ref)
	}
	if ref == n {
		return fmt.Errorf("%w: %s %d next to itself", ErrCycle, t.Op(n), n)
	}
	if err := t.checkMovable(parent, n); err != nil {
		return err
	}
	t.Detach(n)
	p := t.Get(parent)
	idx := slices.Index(p.Children, ref) + offset
	p.Children = slices.Insert(p.Children, idx, n)
	t.Get(n).Parent = parent
	return nil
}

// Delete detaches id and releases its whole subtree. Deleted ids never become
// live again; table entries naming them are left to the caller.
func (t *Tree) Delete(id NodeID) {
	if !t.IsLive(id) {
		return
	}
	t.Detach(id)
	t.release(id)
	if t.root == id {
		t.root = NoNodeID
	}
}

func (t *Tree) release(id NodeID) {
	n := t.Get(id)
	if n == nil {
		return
	}
	children := n.Children
	n.Children = nil
	n.Parent = NoNodeID
	n.live = false
	for _, c := range children {
		t.release(c)
	}
}
