package tree

import (
	"errors"
	"fmt"
)

// Validate checks parent back references and liveness for the subtree at id.
func (t *Tree) Validate(id NodeID) error {
	n := t.Get(id)
	if n == nil {
		return fmt.Errorf("%w: %d", ErrDeadNode, id)
	}
	var errs []error
	seen := make(map[NodeID]struct{})
	var visit func(NodeID)
	visit = func(cur NodeID) {
		if _, dup := seen[cur]; dup {
			errs = append(errs, fmt.Errorf("node %d reachable twice", cur))
			return
		}
		seen[cur] = struct{}{}
		for _, c := range t.Get(cur).Children {
			child := t.Get(c)
			if child == nil {
				errs = append(errs, fmt.Errorf("%s %d holds dead child %d", t.Op(cur), cur, c))
				continue
			}
			if child.Parent != cur {
				errs = append(errs, fmt.Errorf("%s %d: parent is %d, want %d", child.Op, c, child.Parent, cur))
			}
			visit(c)
		}
	}
	visit(id)
	return errors.Join(errs...)
}
