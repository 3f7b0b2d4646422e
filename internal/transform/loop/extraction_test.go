package loop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pragmax/internal/accel"
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/testkit"
	"pragmax/internal/transform"
	"pragmax/internal/tree"
)

const scenarioA = "claw loop-extract range(i=1,10) map(x/y:i)"

// run parses every pragma, registers the extractions and applies them.
func run(t *testing.T, prog *program.Program, gen accel.Generator, pragmas ...tree.NodeID) (*transform.Translator, error) {
	t.Helper()
	tr := transform.NewTranslator(gen, nil)
	for _, p := range pragmas {
		d, err := directive.Parse(prog.Tree.Value(p), p, prog.Tree.SpanOf(p))
		if err != nil || d == nil {
			t.Fatalf("parse %q: %v", prog.Tree.Value(p), err)
		}
		e, err := NewExtraction(d)
		if err != nil {
			t.Fatalf("new extraction: %v", err)
		}
		if err := tr.Add(e); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return tr, tr.Apply(context.Background(), prog)
}

func TestExtractionScenarioA(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	prog := fx.Prog
	if _, err := run(t, prog, nil, fx.Pragma); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := testkit.CheckProgramInvariants(prog); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	stmts := prog.Tree.Children(fx.Main.Body())
	if len(stmts) != 1 || prog.Tree.Op(stmts[0]) != tree.OpDoStatement {
		t.Fatalf("caller body = %v, want a single loop", stmts)
	}
	do := stmts[0]
	if !(directive.Range{Induction: "i", Lower: "1", Upper: "10"}).Matches(prog.Tree, do) {
		t.Fatalf("wrapping loop range mismatch")
	}
	if got := program.ExprText(prog.Tree, fx.Call); got != "f_extracted_0(x(i))" {
		t.Fatalf("call = %q, want f_extracted_0(x(i))", got)
	}
	if prog.Tree.Parent(fx.CallStmt) != prog.LoopBody(do) {
		t.Fatalf("call statement was not moved into the loop")
	}
	if !fx.Main.Decls.Has("i") || !fx.Main.Symbols.Has("i") {
		t.Fatalf("index variable i not declared in caller")
	}
	if prog.Tree.IsLive(fx.Pragma) {
		t.Fatalf("directive pragma still in the tree")
	}

	clone := prog.FunctionByName("f_extracted_0")
	if clone == nil {
		t.Fatalf("extracted function missing")
	}
	if prog.Tree.NextSibling(fx.Callee.Node) != clone.Node {
		t.Fatalf("extracted function is not placed after f")
	}
	scalar := prog.Types.Builtins().Real
	if typ, _ := clone.DeclaredType("y"); typ != scalar {
		t.Fatalf("y declared with type %d, want scalar real", typ)
	}
	if sym, _ := clone.Symbols.Get("y"); sym.Type != scalar {
		t.Fatalf("y symbol type %d, want scalar real", sym.Type)
	}
	if clone.Type() == fx.Callee.Type() {
		t.Fatalf("extracted function shares the callee type")
	}
	if prog.Tree.MatchDescendant(clone.Body(), tree.OpDoStatement).IsValid() {
		t.Fatalf("loop still present in extracted function")
	}
	if prog.Tree.MatchDescendant(clone.Body(), tree.OpArrayRef).IsValid() {
		t.Fatalf("y(i) was not demoted to y")
	}

	// the original callee keeps its loop and its array parameter
	if !prog.Tree.IsLive(fx.Loop) || prog.Tree.Parent(fx.Loop) != fx.Callee.Body() {
		t.Fatalf("original loop changed")
	}
	if typ, _ := fx.Callee.DeclaredType("y"); prog.Types.Dimensions(typ) != 1 {
		t.Fatalf("original parameter y was demoted")
	}
}

func TestExtractionScenarioBNoCall(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	p := fx.Prog
	p.Tree.Delete(fx.CallStmt)
	before := p.Tree.Len()

	tr, err := run(t, p, nil, fx.Pragma)
	if err != nil {
		t.Fatalf("analysis failure must not abort the run: %v", err)
	}
	if st := tr.Transformations()[0].State(); st != transform.StateIllegal {
		t.Fatalf("state = %s, want ILLEGAL", st)
	}
	if p.Tree.Len() != before || !p.Tree.IsLive(fx.Pragma) {
		t.Fatalf("tree changed by a failed analysis")
	}
	items := p.Diags.Items()
	if len(items) != 1 || items[0].Code != diag.TrNoCall || items[0].Primary.Line != 3 {
		t.Fatalf("diagnostics = %+v", items)
	}
	if items[0].Message != "No function call detected after loop-extract" {
		t.Fatalf("message = %q", items[0].Message)
	}
}

func TestExtractionScenarioCDuplicateMapping(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i) map(x/z:i)")
	d, err := directive.Parse(fx.Prog.Tree.Value(fx.Pragma), fx.Pragma, fx.Prog.Tree.SpanOf(fx.Pragma))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e, err := NewExtraction(d)
	var illegal *transform.IllegalDirectiveError
	if !errors.As(err, &illegal) || illegal.Code != diag.DirDuplicateMapping || illegal.Line != 3 {
		t.Fatalf("error = %v, want duplicate mapping at line 3", err)
	}
	if e != nil {
		t.Fatalf("construction returned a transformation")
	}
}

func TestExtractionAnalyzeFailures(t *testing.T) {
	cases := []struct {
		name      string
		directive string
		code      diag.Code
		msg       string
	}{
		{"range", "claw loop-extract range(i=1,20) map(x/y:i)", diag.TrRangeMismatch,
			"Iteration range is different than the loop to be extracted"},
		{"mapped", "claw loop-extract range(i=1,10) map(z/y:i)", diag.TrMappedVarNotFound,
			"Mapped variable z not found in function call arguments"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := testkit.NewExtraction(t, tc.directive)
			if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
				t.Fatalf("apply: %v", err)
			}
			items := fx.Prog.Diags.Items()
			if len(items) != 1 || items[0].Code != tc.code || items[0].Message != tc.msg {
				t.Fatalf("diagnostics = %+v", items)
			}
		})
	}
}

func TestExtractionUndefinedCallee(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	fx.Prog.Tree.SetValue(fx.Prog.CallName(fx.Call), "g")
	if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
		t.Fatalf("apply: %v", err)
	}
	items := fx.Prog.Diags.Items()
	if len(items) != 1 || items[0].Message != "Could not locate the function definition for: g" {
		t.Fatalf("diagnostics = %+v", items)
	}
}

func TestExtractionDimensionMismatchLeavesTree(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i,j)")
	p := fx.Prog
	before := p.Tree.Len()

	_, err := run(t, p, nil, fx.Pragma)
	var illegal *transform.IllegalTransformationError
	if !errors.As(err, &illegal) || illegal.Code != diag.TrDimensionMismatch || illegal.Line != 3 {
		t.Fatalf("error = %v, want dimension mismatch at line 3", err)
	}
	if p.Tree.Len() != before {
		t.Fatalf("tree grew from %d to %d nodes", before, p.Tree.Len())
	}
	if p.FunctionByName("f_extracted_0") != nil || p.Globals.Has("f_extracted_0") {
		t.Fatalf("extracted function created despite the failure")
	}
	if !p.Tree.IsLive(fx.Pragma) || p.Tree.Parent(fx.Loop) != fx.Callee.Body() {
		t.Fatalf("tree changed by a failed transform")
	}
}

func TestExtractionNamesIncrease(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	second := fx.Builder.Pragma(fx.Main.Body(), scenarioA, 5)
	_, secondCall := fx.Builder.Call(fx.Main.Body(), fx.Main, "f", 6, "x")

	if _, err := run(t, fx.Prog, nil, fx.Pragma, second); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got := []string{
		fx.Prog.Tree.Value(fx.Prog.CallName(fx.Call)),
		fx.Prog.Tree.Value(fx.Prog.CallName(secondCall)),
	}
	if got[0] != "f_extracted_0" || got[1] != "f_extracted_1" {
		t.Fatalf("extracted names = %v", got)
	}
	if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestExtractionKeepsIrregularReference(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	fx.Increment(fx.Prog.LoopBody(fx.Loop), 11, func() tree.NodeID {
		return fx.ArrayRef(fx.Callee, "y", 11, "1")
	})
	if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
		t.Fatalf("apply: %v", err)
	}
	clone := fx.Prog.FunctionByName("f_extracted_0")
	refs := fx.Prog.Tree.MatchAll(clone.Body(), tree.OpArrayRef)
	if len(refs) != 2 {
		t.Fatalf("found %d array references, want the two y(1)", len(refs))
	}
	for _, ref := range refs {
		if got := program.ExprText(fx.Prog.Tree, ref); got != "y(1)" {
			t.Fatalf("reference %q was rewritten", got)
		}
	}
}

func TestExtractionAccelerator(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i) parallel routine")
	if _, err := run(t, fx.Prog, accel.New(accel.DialectOpenACC, accel.TargetGPU), fx.Pragma); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var got []string
	for _, id := range fx.Prog.Tree.Children(fx.Main.Body()) {
		got = append(got, fx.Prog.Tree.Op(id).String()+":"+fx.Prog.Tree.Value(id))
	}
	want := []string{
		"FpragmaStatement:acc parallel",
		"FpragmaStatement:acc loop private(i)",
		"FdoStatement:",
		"FpragmaStatement:acc end parallel",
	}
	if len(got) != len(want) {
		t.Fatalf("caller body = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("caller body = %v, want %v", got, want)
		}
	}
	clone := fx.Prog.FunctionByName("f_extracted_0")
	first := fx.Prog.Tree.Child(clone.Declarations(), 0)
	if fx.Prog.Tree.Value(first) != "acc routine seq" {
		t.Fatalf("first declaration = %q, want the routine directive", fx.Prog.Tree.Value(first))
	}
}

func TestExtractionFusion(t *testing.T) {
	const dir = "claw loop-extract range(i=1,10) map(x/y:i) fusion group(g)"
	fx := testkit.NewExtraction(t, dir)
	second := fx.Builder.Pragma(fx.Main.Body(), dir, 5)
	fx.Builder.Call(fx.Main.Body(), fx.Main, "f", 6, "x")

	tr, err := run(t, fx.Prog, nil, fx.Pragma, second)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	stmts := fx.Prog.Tree.Children(fx.Main.Body())
	if len(stmts) != 1 || fx.Prog.Tree.Op(stmts[0]) != tree.OpDoStatement {
		t.Fatalf("caller body has %d statements, want one fused loop", len(stmts))
	}
	if n := fx.Prog.Tree.NumChildren(fx.Prog.LoopBody(stmts[0])); n != 2 {
		t.Fatalf("fused loop has %d statements, want 2", n)
	}
	if s := tr.Summary(); s.Total != 4 || s.Transformed != 4 {
		t.Fatalf("summary = %+v", s)
	}
	if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func assignText(t *tree.Tree, stmt tree.NodeID) string {
	return program.ExprText(t, t.Child(stmt, 0)) + "=" + program.ExprText(t, t.Child(stmt, 1))
}

// Inlining the clone at the rewritten call site must give back the original
// loop applied to the caller's argument.
func TestExtractionInlinesBack(t *testing.T) {
	fx := testkit.NewExtraction(t, scenarioA)
	prog := fx.Prog
	tt := prog.Tree
	original := tt.Children(prog.LoopBody(fx.Loop))
	if len(original) != 1 {
		t.Fatalf("fixture loop has %d statements", len(original))
	}
	want := strings.ReplaceAll(assignText(tt, original[0]), "y(i)", "x(i)")
	origRange, ok := directive.RangeOf(tt, fx.Loop)
	if !ok {
		t.Fatalf("fixture loop has no range")
	}

	if _, err := run(t, prog, nil, fx.Pragma); err != nil {
		t.Fatalf("apply: %v", err)
	}

	do := tt.Parent(fx.CallStmt)
	for tt.Op(do) != tree.OpDoStatement {
		do = tt.Parent(do)
	}
	gotRange, ok := directive.RangeOf(tt, do)
	if !ok || !gotRange.Equal(origRange) {
		t.Fatalf("wrapping range %v, want %v", gotRange, origRange)
	}

	args := prog.CallArguments(fx.Call)
	if len(args) != 1 {
		t.Fatalf("call has %d arguments", len(args))
	}
	actual := program.ExprText(tt, args[0])

	clone := prog.FunctionByName("f_extracted_0")
	stmts := tt.Children(clone.Body())
	if len(stmts) != 1 {
		t.Fatalf("extracted body has %d statements, want 1", len(stmts))
	}
	if got := strings.ReplaceAll(assignText(tt, stmts[0]), "y", actual); got != want {
		t.Fatalf("inlined statement = %q, want %q", got, want)
	}
}

// newCallee builds main calling f(x) after the pragma on line 3. f declares
// y with dims dimensions and i, and gets one loop per upper bound, each
// incrementing y(i) or y(i,1). Main declares x with dims dimensions.
func newCallee(t *testing.T, pragma string, dims int, uppers ...string) *testkit.Extraction {
	t.Helper()
	b := testkit.New(t)
	callee := b.Subroutine("f", 6, testkit.Param{Name: "y", Dims: dims})
	b.Integer(callee, "i")
	idx := []string{"i"}
	for len(idx) < dims {
		idx = append(idx, "1")
	}
	var first tree.NodeID
	for n, upper := range uppers {
		line := uint32(9 + 2*n)
		loop := b.Loop(callee.Body(), callee, "i", "1", upper, line)
		b.Increment(b.Prog.LoopBody(loop), line+1, func() tree.NodeID {
			return b.ArrayRef(callee, "y", line+1, idx...)
		})
		if n == 0 {
			first = loop
		}
	}
	main := b.Subroutine("main", 1)
	b.Real(main, "x", dims)
	p := b.Pragma(main.Body(), pragma, 3)
	stmt, call := b.Call(main.Body(), main, "f", 4, "x")
	if err := b.Prog.Tree.InsertBefore(callee.Node, main.Node); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	return &testkit.Extraction{Builder: b, Main: main, Callee: callee, Pragma: p, CallStmt: stmt, Call: call, Loop: first}
}

func bodyOps(t *tree.Tree, body tree.NodeID) []tree.Opcode {
	var ops []tree.Opcode
	for _, stmt := range t.Children(body) {
		ops = append(ops, t.Op(stmt))
	}
	return ops
}

func TestExtractionFirstMatchingLoop(t *testing.T) {
	const (
		do     = tree.OpDoStatement
		assign = tree.OpAssignStatement
	)
	cases := []struct {
		name   string
		uppers []string
		want   []tree.Opcode
	}{
		{"later sibling", []string{"5", "10"}, []tree.Opcode{do, assign}},
		{"first of two matches", []string{"10", "10"}, []tree.Opcode{assign, do}},
		{"between others", []string{"5", "10", "10"}, []tree.Opcode{do, assign, do}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newCallee(t, scenarioA, 1, tc.uppers...)
			if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
				t.Fatalf("invariants: %v", err)
			}
			clone := fx.Prog.FunctionByName("f_extracted_0")
			if clone == nil {
				t.Fatalf("extracted function missing")
			}
			got := bodyOps(fx.Prog.Tree, clone.Body())
			if len(got) != len(tc.want) {
				t.Fatalf("extracted body = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("extracted body = %v, want %v", got, tc.want)
				}
			}
			if n := len(fx.Prog.Tree.Children(fx.Callee.Body())); n != len(tc.uppers) {
				t.Fatalf("original callee has %d statements, want %d loops", n, len(tc.uppers))
			}
		})
	}
}

func TestExtractionArguments(t *testing.T) {
	cases := []struct {
		name     string
		dims     int
		indexed  bool
		wantCall string
		wantDims int
		wantBody string
	}{
		{"rank above mapping keeps parameter", 2, false, "f_extracted_0(x(i))", 2, "y(i,1)=y(i,1)+1.0"},
		{"indexed argument left unchanged", 1, true, "f_extracted_0(x(1))", 0, "y=y+1.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newCallee(t, scenarioA, tc.dims, "10")
			tt := fx.Prog.Tree
			if tc.indexed {
				arg := fx.Prog.CallArguments(fx.Call)[0]
				if err := tt.InsertBefore(arg, fx.ArrayRef(fx.Main, "x", 4, "1")); err != nil {
					t.Fatalf("index argument: %v", err)
				}
				tt.Delete(arg)
			}
			if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
				t.Fatalf("invariants: %v", err)
			}
			if got := program.ExprText(tt, fx.Call); got != tc.wantCall {
				t.Fatalf("call = %q, want %q", got, tc.wantCall)
			}
			clone := fx.Prog.FunctionByName("f_extracted_0")
			typ, _ := clone.DeclaredType("y")
			if dims := fx.Prog.Types.Dimensions(typ); dims != tc.wantDims {
				t.Fatalf("y has %d dimension(s) in the extracted function, want %d", dims, tc.wantDims)
			}
			if sym, _ := clone.Symbols.Get("y"); sym.Type != typ {
				t.Fatalf("y symbol type %d, declaration type %d", sym.Type, typ)
			}
			stmts := tt.Children(clone.Body())
			if len(stmts) != 1 {
				t.Fatalf("extracted body has %d statements, want 1", len(stmts))
			}
			if got := assignText(tt, stmts[0]); got != tc.wantBody {
				t.Fatalf("extracted statement = %q, want %q", got, tc.wantBody)
			}
		})
	}
}

func TestExtractionIndexAlreadyDeclared(t *testing.T) {
	for _, name := range []string{"i", "I"} {
		t.Run(name, func(t *testing.T) {
			fx := testkit.NewExtraction(t, scenarioA)
			fx.Integer(fx.Main, name)
			if _, err := run(t, fx.Prog, nil, fx.Pragma); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
				t.Fatalf("invariants: %v", err)
			}
			count := 0
			for _, decl := range fx.Main.Decls.Names() {
				if strings.EqualFold(decl, "i") {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("caller declarations = %v, want i once", fx.Main.Decls.Names())
			}
			count = 0
			for _, sym := range fx.Main.Symbols.All() {
				if strings.EqualFold(sym.Name, "i") {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("caller symbols = %+v, want i once", fx.Main.Symbols.All())
			}
			if got := program.ExprText(fx.Prog.Tree, fx.Call); got != "f_extracted_0(x("+name+"))" {
				t.Fatalf("call = %q", got)
			}
		})
	}
}

func TestExtractionMixedCase(t *testing.T) {
	b := testkit.New(t)
	callee := b.Subroutine("f", 6, testkit.Param{Name: "Y", Dims: 1})
	b.Integer(callee, "I")
	loop := b.Loop(callee.Body(), callee, "I", "1", "10", 9)
	b.Increment(b.Prog.LoopBody(loop), 10, func() tree.NodeID {
		return b.ArrayRef(callee, "Y", 10, "I")
	})
	main := b.Subroutine("main", 1)
	b.Real(main, "X", 1)
	pragma := b.Pragma(main.Body(), "claw loop-extract range(I=1,10) map(X/Y:I)", 3)
	_, call := b.Call(main.Body(), main, "F", 4, "X")

	tr, err := run(t, b.Prog, nil, pragma)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s := tr.Summary(); s.Transformed != s.Total {
		t.Fatalf("summary = %+v", s)
	}
	if err := testkit.CheckProgramInvariants(b.Prog); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if got := program.ExprText(b.Prog.Tree, call); got != "f_extracted_0(X(I))" {
		t.Fatalf("call = %q, want f_extracted_0(X(I))", got)
	}
	if names := main.Decls.Names(); len(names) != 2 || names[1] != "I" {
		t.Fatalf("caller declarations = %v, want [X I]", names)
	}
	clone := b.Prog.FunctionByName("f_extracted_0")
	if clone == nil {
		t.Fatalf("extracted function missing")
	}
	if typ, _ := clone.DeclaredType("y"); typ != b.Prog.Types.Builtins().Real {
		t.Fatalf("Y declared with type %d, want scalar real", typ)
	}
	if names := clone.Decls.Names(); len(names) != 2 || names[0] != "Y" {
		t.Fatalf("extracted declarations = %v, want Y first", names)
	}
	stmts := b.Prog.Tree.Children(clone.Body())
	if len(stmts) != 1 || assignText(b.Prog.Tree, stmts[0]) != "Y=Y+1.0" {
		t.Fatalf("extracted body = %v", stmts)
	}
}
