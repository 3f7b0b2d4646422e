// Package utility holds transformations that edit the tree without a loop
// model of their own.
package utility

import (
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/transform"
	"pragmax/internal/tree"
)

// Remove deletes code: the structured statement following a remove
// directive, or everything between remove and end remove.
type Remove struct {
	transform.Base

	target tree.NodeID
}

// NewRemove creates the transformation for a remove block; end may be nil.
func NewRemove(start, end *directive.Directive) *Remove {
	return &Remove{Base: transform.NewBase(start, end)}
}

// Analyze checks that a block is closed in the block it opens, or that a
// do or if statement follows a lone directive.
func (r *Remove) Analyze(prog *program.Program, _ *transform.Translator) bool {
	t := prog.Tree
	if r.End != nil {
		if t.Parent(r.Start.Pragma) != t.Parent(r.End.Pragma) {
			return r.Reject(prog, diag.TrIllegal, "remove and end remove are not in the same block")
		}
		return true
	}
	next := t.NextSibling(r.Start.Pragma)
	switch t.Op(next) {
	case tree.OpDoStatement, tree.OpIfStatement:
		r.target = next
		return true
	default:
		return r.Reject(prog, diag.TrIllegal, "No do or if statement after remove directive")
	}
}

// Transform deletes the code and the directives.
func (r *Remove) Transform(prog *program.Program, _ *transform.Translator, _ transform.Transformation) error {
	t := prog.Tree
	if r.End == nil {
		if t.IsLive(r.target) {
			t.Delete(r.target)
		}
		r.RemovePragma(prog)
		return nil
	}
	for n := t.NextSibling(r.Start.Pragma); n.IsValid() && n != r.End.Pragma; {
		next := t.NextSibling(n)
		t.Delete(n)
		n = next
	}
	r.RemovePragma(prog)
	return nil
}
