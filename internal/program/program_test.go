package program_test

import (
	"testing"

	"pragmax/internal/diag"
	"pragmax/internal/symbols"
	"pragmax/internal/testkit"
	"pragmax/internal/tree"
)

func TestFixtureIsValid(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i)")
	if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
		t.Fatalf("fixture invariants: %v", err)
	}
	fns := fx.Prog.Functions()
	if len(fns) != 2 || fns[0].Name() != "main" || fns[1].Name() != "f" {
		t.Fatalf("unexpected function order")
	}
	if got := fx.Prog.FunctionDefinition(fx.Call); got != fx.Callee {
		t.Fatalf("FunctionDefinition(call) = %v, want f", got)
	}
	if got := fx.Prog.EnclosingFunction(fx.Call); got != fx.Main {
		t.Fatalf("EnclosingFunction(call) = %v, want main", got)
	}
}

func TestCloneFunctionRenamesAndIsIndependent(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i)")
	prog := fx.Prog
	newType, err := prog.Types.Derive(fx.Callee.Type(), nil)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	clone, err := prog.CloneFunction(fx.Callee, "f_extracted_0", newType)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.Name() != "f_extracted_0" || clone.Type() != newType {
		t.Fatalf("clone name/type = %s/%d", clone.Name(), clone.Type())
	}
	sym, ok := clone.Symbols.Get("f_extracted_0")
	if !ok || sym.Type != newType {
		t.Fatalf("clone symbol = %+v, %v", sym, ok)
	}
	if fx.Callee.Symbols.Has("f_extracted_0") {
		t.Fatalf("original symbols changed")
	}
	if err := prog.InsertFunctionAfter(fx.Callee, clone); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if next := prog.Tree.NextSibling(fx.Callee.Node); next != clone.Node {
		t.Fatalf("clone not inserted after original")
	}

	// mutating the clone leaves the original untouched
	cloneLoop := prog.Tree.MatchDescendant(clone.Node, tree.OpDoStatement)
	prog.Tree.Delete(cloneLoop)
	if !prog.Tree.IsLive(fx.Loop) {
		t.Fatalf("deleting clone loop killed the original")
	}
	decl, _ := clone.Decls.Get("y")
	origDecl, _ := fx.Callee.Decls.Get("y")
	if decl == origDecl {
		t.Fatalf("declarations are shared between clone and original")
	}
}

func TestCopyDeclarationNeverDuplicates(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i)")
	prog := fx.Prog
	copied, err := prog.CopyDeclaration(fx.Callee, fx.Main, "i")
	if err != nil || !copied {
		t.Fatalf("first copy = %v, %v", copied, err)
	}
	copied, err = prog.CopyDeclaration(fx.Callee, fx.Main, "i")
	if err != nil || copied {
		t.Fatalf("second copy = %v, %v", copied, err)
	}
	if sym, _ := fx.Main.Symbols.Get("i"); sym.Kind != symbols.KindLocal {
		t.Fatalf("copied symbol kind = %s", sym.Kind)
	}
	if got := fx.Main.Decls.Names(); len(got) != 2 || got[1] != "i" {
		t.Fatalf("main declarations = %v", got)
	}
}

func TestValidateReportsUnresolvedVariable(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i)")
	fx.Main.Symbols.Remove("x")
	if err := fx.Prog.Validate(); err == nil {
		t.Fatalf("Validate accepted a variable without symbol")
	}
}

func TestRepeatedWarningsCollapse(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i)")
	prog := fx.Prog
	for range 3 {
		prog.AddWarning(diag.TrDirectiveRemoved, prog.Span(3), "directive removed")
	}
	prog.AddWarning(diag.TrDirectiveRemoved, prog.Span(5), "directive removed")
	prog.AddError(diag.TrIllegal, prog.Span(3), "directive removed")

	items := prog.Diags.Items()
	if len(items) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %+v", len(items), items)
	}
	if items[0].Primary.Line != 3 || items[1].Primary.Line != 5 || items[2].Severity != diag.SevError {
		t.Fatalf("diagnostics = %+v", items)
	}
}
