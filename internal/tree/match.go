package tree

// Walk visits id and its live descendants in document order. Returning false
// from fn skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	n := t.Get(id)
	if n == nil {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}

func mustQuery(op Opcode) {
	if op == OpInvalid || op >= opcodeCount {
		panic("tree: match on invalid opcode")
	}
}

// MatchDescendant returns the first descendant of from (from excluded) tagged op,
// in document order.
func (t *Tree) MatchDescendant(from NodeID, op Opcode) NodeID {
	mustQuery(op)
	found := NoNodeID
	for _, c := range t.Children(from) {
		t.Walk(c, func(id NodeID) bool {
			if found.IsValid() {
				return false
			}
			if t.Op(id) == op {
				found = id
				return false
			}
			return true
		})
		if found.IsValid() {
			break
		}
	}
	return found
}

// MatchDirectDescendant returns the first child of from tagged op.
func (t *Tree) MatchDirectDescendant(from NodeID, op Opcode) NodeID {
	mustQuery(op)
	for _, c := range t.Children(from) {
		if t.Op(c) == op {
			return c
		}
	}
	return NoNodeID
}

// MatchSibling returns the first following sibling of from tagged op.
func (t *Tree) MatchSibling(from NodeID, op Opcode) NodeID {
	mustQuery(op)
	for cur := t.NextSibling(from); cur.IsValid(); cur = t.NextSibling(cur) {
		if t.Op(cur) == op {
			return cur
		}
	}
	return NoNodeID
}

// MatchAncestor returns the closest proper ancestor of from tagged op.
func (t *Tree) MatchAncestor(from NodeID, op Opcode) NodeID {
	mustQuery(op)
	for cur := t.Parent(from); cur.IsValid(); cur = t.Parent(cur) {
		if t.Op(cur) == op {
			return cur
		}
	}
	return NoNodeID
}

// MatchSeq follows a chain of direct children, one opcode per level.
func (t *Tree) MatchSeq(from NodeID, ops ...Opcode) NodeID {
	if len(ops) == 0 {
		panic("tree: empty match sequence")
	}
	cur := from
	for _, op := range ops {
		cur = t.MatchDirectDescendant(cur, op)
		if !cur.IsValid() {
			return NoNodeID
		}
	}
	return cur
}

// MatchAll returns every descendant of from tagged op, in document order.
func (t *Tree) MatchAll(from NodeID, op Opcode) []NodeID {
	mustQuery(op)
	var out []NodeID
	for _, c := range t.Children(from) {
		t.Walk(c, func(id NodeID) bool {
			if t.Op(id) == op {
				out = append(out, id)
			}
			return true
		})
	}
	return out
}

// MatchNamed returns the first descendant tagged op whose value equals value.
func (t *Tree) MatchNamed(from NodeID, op Opcode, value string) NodeID {
	for _, id := range t.MatchAll(from, op) {
		if t.Value(id) == value {
			return id
		}
	}
	return NoNodeID
}
