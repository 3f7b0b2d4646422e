package transform

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"pragmax/internal/accel"
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/trace"
)

// groupOrder lists the directive kinds in the order their groups apply.
var groupOrder = []directive.Kind{
	directive.KindRemove,
	directive.KindLoopExtract,
	directive.KindLoopFusion,
}

// Translator owns the transformations of one program run together with the
// run-scoped counter used to name generated artifacts.
type Translator struct {
	gen    accel.Generator
	tracer trace.Tracer

	counter int
	groups  map[directive.Kind][]Transformation
	all     []Transformation
	span    uint64
}

// NewTranslator creates an engine emitting accelerator directives with gen.
// A nil tracer disables tracing.
func NewTranslator(gen accel.Generator, tracer trace.Tracer) *Translator {
	if gen == nil {
		gen = accel.New(accel.DialectNone, accel.TargetCPU)
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Translator{
		gen:    gen,
		tracer: tracer,
		groups: make(map[directive.Kind][]Transformation),
	}
}

// NextTransformationCounter returns the next value of the run counter.
// Values start at 0 and never repeat within a run.
func (tr *Translator) NextTransformationCounter() int {
	n := tr.counter
	tr.counter++
	return n
}

// Generator returns the accelerator directive generator of the run.
func (tr *Translator) Generator() accel.Generator { return tr.gen }

// Tracer returns the run tracer.
func (tr *Translator) Tracer() trace.Tracer { return tr.tracer }

// SpanID is the trace span of the group being applied; transformations
// attach their own events to it.
func (tr *Translator) SpanID() uint64 { return tr.span }

// Add registers a transformation in the group of its directive kind.
func (tr *Translator) Add(t Transformation) error {
	d := t.Directive()
	if d == nil {
		return errors.New("transform: transformation without directive")
	}
	if !slices.Contains(groupOrder, d.Kind) {
		return fmt.Errorf("transform: no group for %s directive at line %d", d.Kind, d.Line())
	}
	tr.groups[d.Kind] = append(tr.groups[d.Kind], t)
	tr.all = append(tr.all, t)
	return nil
}

// AddTransformation registers a transformation created while another one
// is being applied and analyzes it right away.
func (tr *Translator) AddTransformation(prog *program.Program, t Transformation) (bool, error) {
	if err := tr.Add(t); err != nil {
		return false, err
	}
	return tr.analyze(prog, t), nil
}

// Transformations returns every registered transformation in registration
// order.
func (tr *Translator) Transformations() []Transformation {
	return append([]Transformation(nil), tr.all...)
}

// Apply analyzes and applies the groups in order. Illegal transformations
// are skipped with their diagnostics recorded; the first failing Transform
// stops the run and is returned as *IllegalTransformationError.
func (tr *Translator) Apply(ctx context.Context, prog *program.Program) error {
	parent := trace.CurrentSpan(ctx).SpanID
	for _, kind := range groupOrder {
		if err := tr.applyGroup(prog, kind, parent); err != nil {
			tr.skipPending()
			return err
		}
	}
	return nil
}

func (tr *Translator) applyGroup(prog *program.Program, kind directive.Kind, parent uint64) error {
	group := tr.groups[kind]
	if len(group) == 0 {
		return nil
	}
	slices.SortStableFunc(group, func(a, b Transformation) int {
		return cmp.Compare(a.Directive().Line(), b.Directive().Line())
	})

	span := trace.Begin(tr.tracer, trace.ScopePass, kind.String(), parent)
	span.WithExtra("count", strconv.Itoa(len(group)))
	tr.span = span.ID()
	defer func() { tr.span = parent }()

	for _, t := range group {
		if t.State() == StateCreated {
			tr.analyze(prog, t)
		}
	}

	var err error
	if group[0].Dependent() {
		err = tr.applyDependent(prog, group)
	} else {
		err = tr.applyIndependent(prog, group)
	}
	if err != nil {
		span.End("failed")
		return err
	}
	span.End("")
	return nil
}

func (tr *Translator) applyIndependent(prog *program.Program, group []Transformation) error {
	for _, t := range group {
		if !tr.ready(prog, t) {
			continue
		}
		if err := tr.run(prog, t, nil); err != nil {
			return err
		}
		t.SetState(StateTransformed)
	}
	return nil
}

// applyDependent combines each base with every later compatible candidate
// and applies it alone when none is compatible.
func (tr *Translator) applyDependent(prog *program.Program, group []Transformation) error {
	for i, base := range group {
		if !tr.ready(prog, base) {
			continue
		}
		combined := false
		for _, candidate := range group[i+1:] {
			if candidate.State() != StateAnalyzed || !pragmaLive(prog, candidate) {
				continue
			}
			if !base.CanBeTransformedWith(prog, candidate) {
				continue
			}
			if err := tr.run(prog, base, candidate); err != nil {
				return err
			}
			candidate.SetState(StateTransformed)
			combined = true
		}
		if !combined {
			if err := tr.run(prog, base, nil); err != nil {
				return err
			}
		}
		base.SetState(StateTransformed)
	}
	return nil
}

func (tr *Translator) analyze(prog *program.Program, t Transformation) bool {
	d := t.Directive()
	span := trace.Begin(tr.tracer, trace.ScopeTransformation, "analyze "+d.Kind.String(), tr.span)
	span.WithExtra("line", strconv.FormatUint(uint64(d.Line()), 10))
	if t.Analyze(prog, tr) {
		t.SetState(StateAnalyzed)
		span.End("legal")
		return true
	}
	t.SetState(StateIllegal)
	span.End("illegal")
	return false
}

// ready reports whether t is legal and its directive is still in the tree.
// A transformation whose pragma was deleted is marked removed.
func (tr *Translator) ready(prog *program.Program, t Transformation) bool {
	if t.State() != StateAnalyzed {
		return false
	}
	if !pragmaLive(prog, t) {
		d := t.Directive()
		t.SetState(StateRemoved)
		prog.AddWarning(diag.TrDirectiveRemoved, d.Span,
			fmt.Sprintf("%s directive was removed by an earlier transformation", d.Kind))
		return false
	}
	return true
}

// pragmaLive reports false once an earlier rewrite deleted the pragma of t.
// Transformations queued without a pragma are always live.
func pragmaLive(prog *program.Program, t Transformation) bool {
	p := t.Directive().Pragma
	return !p.IsValid() || prog.Tree.IsLive(p)
}

func (tr *Translator) run(prog *program.Program, t, other Transformation) error {
	d := t.Directive()
	span := trace.Begin(tr.tracer, trace.ScopeTransformation, d.Kind.String(), tr.span)
	span.WithExtra("line", strconv.FormatUint(uint64(d.Line()), 10))
	if other != nil {
		span.WithExtra("with", strconv.FormatUint(uint64(other.Directive().Line()), 10))
	}
	if err := t.Transform(prog, tr, other); err != nil {
		t.SetState(StateIllegal)
		span.End(err.Error())
		return fatal(t, err)
	}
	span.End("transformed")
	return nil
}

// skipPending marks everything not yet applied after a fatal error.
func (tr *Translator) skipPending() {
	for _, t := range tr.all {
		if s := t.State(); s == StateCreated || s == StateAnalyzed {
			t.SetState(StateSkipped)
		}
	}
}

func fatal(t Transformation, err error) error {
	var illegal *IllegalTransformationError
	if errors.As(err, &illegal) {
		return err
	}
	d := t.Directive()
	return &IllegalTransformationError{
		Line: d.Line(),
		Code: diag.TrIllegal,
		Msg:  d.Kind.String() + " failed",
		Err:  err,
	}
}
