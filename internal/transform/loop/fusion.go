package loop

import (
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/transform"
	"pragmax/internal/tree"
)

// Fusion is the loop-fusion transformation. Fusions of the same group whose
// loops share a parent block and an iteration range are merged into the
// first loop.
type Fusion struct {
	transform.Base

	loop  tree.NodeID
	rng   directive.Range
	group string

	// accelerator directives placed around the loop by an extraction
	annotations []tree.NodeID
}

// NewFusion creates the fusion of the loop following a loop-fusion pragma.
func NewFusion(dir *directive.Directive) *Fusion {
	return &Fusion{Base: transform.NewBase(dir, nil), group: dir.Group}
}

// newQueuedFusion creates the fusion requested by a loop-extract directive
// for the loop it built. The directive copy has no pragma of its own.
func newQueuedFusion(from *directive.Directive, loop tree.NodeID, annotations []tree.NodeID) *Fusion {
	dir := &directive.Directive{
		Kind:  directive.KindLoopFusion,
		Span:  from.Span,
		Raw:   from.Raw,
		Group: from.Group,
	}
	return &Fusion{
		Base:        transform.NewBase(dir, nil),
		loop:        loop,
		group:       from.Group,
		annotations: annotations,
	}
}

// Dependent reports true: fusions are applied pairwise.
func (f *Fusion) Dependent() bool { return true }

// Loop returns the loop the fusion applies to.
func (f *Fusion) Loop() tree.NodeID { return f.loop }

// Analyze resolves the loop and its iteration range.
func (f *Fusion) Analyze(prog *program.Program, _ *transform.Translator) bool {
	t := prog.Tree
	if !f.loop.IsValid() {
		f.loop = t.NextSibling(f.Start.Pragma)
	}
	if t.Op(f.loop) != tree.OpDoStatement {
		return f.Reject(prog, diag.TrNoLoop, "No loop found after loop-fusion")
	}
	rng, ok := directive.RangeOf(t, f.loop)
	if !ok {
		return f.Reject(prog, diag.TrNoLoop, "Loop after loop-fusion has no iteration range")
	}
	f.rng = rng
	return true
}

// CanBeTransformedWith reports whether other fuses a loop of the same group
// in the same block over the same range.
func (f *Fusion) CanBeTransformedWith(prog *program.Program, other transform.Transformation) bool {
	o, ok := other.(*Fusion)
	if !ok || o == f || o.group != f.group {
		return false
	}
	t := prog.Tree
	if !t.IsLive(f.loop) || !t.IsLive(o.loop) || f.loop == o.loop {
		return false
	}
	return t.Parent(f.loop) == t.Parent(o.loop) && f.rng.Equal(o.rng)
}

// Transform appends the body of the other loop to this one and deletes the
// other loop with its directives. Alone it only drops the pragma.
func (f *Fusion) Transform(prog *program.Program, _ *transform.Translator, other transform.Transformation) error {
	if other == nil {
		f.RemovePragma(prog)
		return nil
	}
	o, ok := other.(*Fusion)
	if !ok {
		return f.Illegal(diag.TrFusionUnmatched, "loop-fusion combined with "+other.Directive().Kind.String())
	}
	t := prog.Tree
	body := prog.LoopBody(f.loop)
	for _, stmt := range t.Children(prog.LoopBody(o.loop)) {
		if err := t.Append(body, stmt); err != nil {
			ite := f.Illegal(diag.TrIllegal, "merge loop bodies")
			ite.Err = err
			return ite
		}
	}
	t.Delete(o.loop)
	for _, p := range o.annotations {
		if t.IsLive(p) {
			t.Delete(p)
		}
	}
	o.RemovePragma(prog)
	f.RemovePragma(prog)
	return nil
}
