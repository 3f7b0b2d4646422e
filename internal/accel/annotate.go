package accel

import (
	"fmt"

	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/tree"
)

// Annotate places the accelerator directives requested by dir around the
// statements start..end (the same node for a single loop). A construct is
// emitted only together with its closing directive, unless the dialect has
// none for it. A single loop's induction variable is made private to the
// loop directive. It returns the inserted pragma nodes in document order.
func Annotate(prog *program.Program, gen Generator, dir *directive.Directive, start, end tree.NodeID) ([]tree.NodeID, error) {
	if gen == nil || gen.Dialect() == DialectNone || !dir.HasAccelerator() {
		return nil, nil
	}
	var before, after []string
	if dir.Parallel {
		open, closing := gen.StartParallel(), gen.EndParallel()
		if open != "" && closing != "" {
			if dir.AccClauses != "" {
				open += " " + dir.AccClauses
			}
			before = append(before, open)
			after = append(after, closing)
			if loop := gen.StartLoop(1); loop != "" {
				if private := gen.Private(inductionOf(prog.Tree, start, end)); private != "" {
					loop += " " + private
				}
				before = append(before, loop)
				if endLoop := gen.EndLoop(); endLoop != "" {
					after = append([]string{endLoop}, after...)
				}
			}
		}
	} else if single := gen.Single(dir.AccClauses); single != "" {
		before = append(before, single)
	}

	var inserted []tree.NodeID
	for _, text := range before {
		p := prog.NewPragma(text, dir.Span)
		if err := prog.Tree.InsertBefore(start, p); err != nil {
			return inserted, fmt.Errorf("insert %q: %w", text, err)
		}
		inserted = append(inserted, p)
	}
	anchor := end
	for _, text := range after {
		p := prog.NewPragma(text, dir.Span)
		if err := prog.Tree.InsertAfter(anchor, p); err != nil {
			return inserted, fmt.Errorf("insert %q: %w", text, err)
		}
		inserted = append(inserted, p)
		anchor = p
	}
	return inserted, nil
}

func inductionOf(t *tree.Tree, start, end tree.NodeID) []string {
	if start != end || t.Op(start) != tree.OpDoStatement {
		return nil
	}
	v := t.MatchDirectDescendant(start, tree.OpVar)
	if !v.IsValid() {
		return nil
	}
	return []string{t.Value(v)}
}

// AnnotateRoutine puts the dialect's routine directive at the top of fn's
// declarations. It returns NoNodeID when the dialect has none.
func AnnotateRoutine(prog *program.Program, gen Generator, fn *program.Function, dir *directive.Directive) (tree.NodeID, error) {
	if gen == nil {
		return tree.NoNodeID, nil
	}
	text := gen.Routine()
	if text == "" {
		return tree.NoNodeID, nil
	}
	p := prog.NewPragma(text, dir.Span)
	decls := fn.Declarations()
	var err error
	if first := prog.Tree.Child(decls, 0); first.IsValid() {
		err = prog.Tree.InsertBefore(first, p)
	} else {
		err = prog.Tree.Append(decls, p)
	}
	if err != nil {
		return tree.NoNodeID, fmt.Errorf("insert routine directive in %s: %w", fn.Name(), err)
	}
	return p, nil
}
