package utility

import (
	"context"
	"testing"

	"pragmax/internal/directive"
	"pragmax/internal/testkit"
	"pragmax/internal/transform"
	"pragmax/internal/tree"
)

func parse(t *testing.T, b *testkit.Builder, pragma tree.NodeID) *directive.Directive {
	t.Helper()
	d, err := directive.Parse(b.Prog.Tree.Value(pragma), pragma, b.Prog.Tree.SpanOf(pragma))
	if err != nil || d == nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestRemoveNextLoop(t *testing.T) {
	b := testkit.New(t)
	fn := b.Subroutine("main", 1)
	b.Integer(fn, "i")
	pragma := b.Pragma(fn.Body(), "claw remove", 2)
	removed := b.Loop(fn.Body(), fn, "i", "1", "10", 3)
	kept := b.Loop(fn.Body(), fn, "i", "1", "5", 5)

	tr := transform.NewTranslator(nil, nil)
	if err := tr.Add(NewRemove(parse(t, b, pragma), nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tr.Apply(context.Background(), b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Prog.Tree.IsLive(removed) || b.Prog.Tree.IsLive(pragma) {
		t.Fatalf("loop or pragma survived")
	}
	if got := b.Prog.Tree.Children(fn.Body()); len(got) != 1 || got[0] != kept {
		t.Fatalf("body = %v, want only the second loop", got)
	}
}

func TestRemoveBlock(t *testing.T) {
	b := testkit.New(t)
	fn := b.Subroutine("main", 1)
	b.Integer(fn, "i")
	start := b.Pragma(fn.Body(), "claw remove", 2)
	b.Loop(fn.Body(), fn, "i", "1", "10", 3)
	b.Pragma(fn.Body(), "acc parallel", 5)
	end := b.Pragma(fn.Body(), "claw end remove", 6)
	kept := b.Pragma(fn.Body(), "acc wait", 7)

	blocks := directive.NewRegistry()
	blocks.Add(parse(t, b, start))
	blocks.Add(parse(t, b, end))
	paired, errs := blocks.Blocks()
	if len(errs) != 0 || len(paired) != 1 || paired[0].End == nil {
		t.Fatalf("blocks = %+v, errors = %v", paired, errs)
	}

	tr := transform.NewTranslator(nil, nil)
	if err := tr.Add(NewRemove(paired[0].Start, paired[0].End)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tr.Apply(context.Background(), b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := b.Prog.Tree.Children(fn.Body()); len(got) != 1 || got[0] != kept {
		t.Fatalf("body = %v, want only the statement after the block", got)
	}
}

func TestRemoveWithoutTarget(t *testing.T) {
	b := testkit.New(t)
	fn := b.Subroutine("main", 1)
	pragma := b.Pragma(fn.Body(), "claw remove", 2)

	tr := transform.NewTranslator(nil, nil)
	r := NewRemove(parse(t, b, pragma), nil)
	if err := tr.Add(r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tr.Apply(context.Background(), b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if r.State() != transform.StateIllegal || !b.Prog.Diags.HasErrors() {
		t.Fatalf("state = %s, errors = %v", r.State(), b.Prog.Diags.Items())
	}
	if !b.Prog.Tree.IsLive(pragma) {
		t.Fatalf("illegal remove deleted its pragma")
	}
}
