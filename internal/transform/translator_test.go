package transform

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/testkit"
	"pragmax/internal/tree"
)

type fake struct {
	Base
	name      string
	illegal   bool
	dependent bool
	group     string
	err       error
	deletes   tree.NodeID
	log       *[]string
}

func (f *fake) Dependent() bool { return f.dependent }

func (f *fake) Analyze(prog *program.Program, _ *Translator) bool {
	if f.illegal {
		return f.Reject(prog, diag.TrIllegal, f.name+" is illegal")
	}
	return true
}

func (f *fake) Transform(prog *program.Program, _ *Translator, other Transformation) error {
	entry := f.name
	if o, ok := other.(*fake); ok {
		entry += "+" + o.name
		o.RemovePragma(prog)
	}
	*f.log = append(*f.log, entry)
	if f.err != nil {
		return f.err
	}
	if f.deletes.IsValid() {
		prog.Tree.Delete(f.deletes)
	}
	f.RemovePragma(prog)
	return nil
}

func (f *fake) CanBeTransformedWith(_ *program.Program, other Transformation) bool {
	o, ok := other.(*fake)
	return ok && f.dependent && o.group == f.group
}

type fixture struct {
	b    *testkit.Builder
	fn   *program.Function
	log  []string
	tr   *Translator
	line uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testkit.New(t)
	return &fixture{b: b, fn: b.Subroutine("main", 1), tr: NewTranslator(nil, nil), line: 1}
}

func (fx *fixture) add(t *testing.T, kind directive.Kind, name string, edit func(*fake)) *fake {
	t.Helper()
	fx.line++
	pragma := fx.b.Pragma(fx.fn.Body(), "claw "+kind.String(), fx.line)
	d := &directive.Directive{Kind: kind, Pragma: pragma, Span: fx.b.Prog.Span(fx.line)}
	f := &fake{Base: NewBase(d, nil), name: name, log: &fx.log}
	if edit != nil {
		edit(f)
	}
	if err := fx.tr.Add(f); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return f
}

func TestCounterStartsAtZero(t *testing.T) {
	tr := NewTranslator(nil, nil)
	for want := 0; want < 3; want++ {
		if got := tr.NextTransformationCounter(); got != want {
			t.Fatalf("counter = %d, want %d", got, want)
		}
	}
}

func TestApplyOrdersGroupsAndSkipsIllegal(t *testing.T) {
	fx := newFixture(t)
	a := fx.add(t, directive.KindLoopExtract, "extract-a", nil)
	bad := fx.add(t, directive.KindLoopExtract, "extract-bad", func(f *fake) { f.illegal = true })
	rm := fx.add(t, directive.KindRemove, "remove", nil)

	if err := fx.tr.Apply(context.Background(), fx.b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := strings.Join(fx.log, ","); got != "remove,extract-a" {
		t.Fatalf("application order = %q", got)
	}
	if a.State() != StateTransformed || rm.State() != StateTransformed {
		t.Fatalf("states = %s, %s", a.State(), rm.State())
	}
	if bad.State() != StateIllegal {
		t.Fatalf("illegal transformation state = %s", bad.State())
	}
	items := fx.b.Prog.Diags.Items()
	if len(items) != 1 || items[0].Code != diag.TrIllegal || items[0].Primary.Line != 3 {
		t.Fatalf("diagnostics = %+v", items)
	}
}

func TestApplyMarksDeletedDirectiveRemoved(t *testing.T) {
	fx := newFixture(t)
	victim := fx.add(t, directive.KindLoopExtract, "victim", nil)
	fx.add(t, directive.KindRemove, "remove", func(f *fake) { f.deletes = victim.Start.Pragma })

	if err := fx.tr.Apply(context.Background(), fx.b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if victim.State() != StateRemoved {
		t.Fatalf("state = %s, want REMOVED", victim.State())
	}
	if !fx.b.Prog.Diags.HasWarnings() {
		t.Fatalf("expected a removal warning")
	}
}

func TestApplyStopsOnTransformError(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, directive.KindLoopExtract, "broken", func(f *fake) { f.err = errors.New("boom") })
	later := fx.add(t, directive.KindLoopExtract, "later", nil)

	err := fx.tr.Apply(context.Background(), fx.b.Prog)
	var illegal *IllegalTransformationError
	if !errors.As(err, &illegal) {
		t.Fatalf("error = %v, want *IllegalTransformationError", err)
	}
	if illegal.Line != 2 {
		t.Fatalf("error line = %d, want 2", illegal.Line)
	}
	if later.State() != StateSkipped {
		t.Fatalf("later state = %s, want SKIPPED", later.State())
	}
}

func TestDependentGroupCombines(t *testing.T) {
	fx := newFixture(t)
	dep := func(group string) func(*fake) {
		return func(f *fake) { f.dependent, f.group = true, group }
	}
	first := fx.add(t, directive.KindLoopFusion, "f1", dep("g"))
	other := fx.add(t, directive.KindLoopFusion, "f2", dep("h"))
	second := fx.add(t, directive.KindLoopFusion, "f3", dep("g"))

	if err := fx.tr.Apply(context.Background(), fx.b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := strings.Join(fx.log, ","); got != "f1+f3,f2" {
		t.Fatalf("application = %q", got)
	}
	for _, f := range []*fake{first, other, second} {
		if f.State() != StateTransformed {
			t.Errorf("%s state = %s", f.name, f.State())
		}
	}
}

func TestAddTransformationAnalyzes(t *testing.T) {
	fx := newFixture(t)
	queued := &fake{
		Base: NewBase(&directive.Directive{Kind: directive.KindLoopFusion, Span: fx.b.Prog.Span(9)}, nil),
		name: "queued",
		log:  &fx.log,
	}
	legal, err := fx.tr.AddTransformation(fx.b.Prog, queued)
	if err != nil || !legal {
		t.Fatalf("AddTransformation = %v, %v", legal, err)
	}
	if queued.State() != StateAnalyzed {
		t.Fatalf("state = %s", queued.State())
	}
	if err := fx.tr.Add(&fake{Base: NewBase(&directive.Directive{Kind: directive.KindEndRemove}, nil)}); err == nil {
		t.Fatalf("end directives have no group")
	}
}

func TestSummaryWrite(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, directive.KindLoopExtract, "ok", nil)
	fx.add(t, directive.KindLoopExtract, "bad", func(f *fake) { f.illegal = true })
	if err := fx.tr.Apply(context.Background(), fx.b.Prog); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var buf bytes.Buffer
	if err := fx.tr.Summary().Write(&buf, "/tmp/test.json"); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "loop-extract test.json:2 ... TRANSFORMED\n" +
		"loop-extract test.json:3 ... ILLEGAL\n" +
		"test.json: 2 total, 1 transformed, 1 illegal, 0 removed, 0 skipped\n"
	if buf.String() != want {
		t.Fatalf("summary:\n%s\nwant:\n%s", buf.String(), want)
	}
}
