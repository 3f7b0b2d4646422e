// Package transform runs directive-driven rewrites over a program. Every
// rewrite implements Transformation; the Translator groups them by
// directive kind and drives analysis and application in document order.
package transform

import (
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
)

// State is the lifecycle position of a transformation.
type State uint8

const (
	StateCreated State = iota
	StateAnalyzed
	StateIllegal
	StateTransformed
	StateSkipped
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateAnalyzed:
		return "ANALYZED"
	case StateIllegal:
		return "ILLEGAL"
	case StateTransformed:
		return "TRANSFORMED"
	case StateSkipped:
		return "SKIPPED"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// IsFinal reports whether no further step applies to the transformation.
func (s State) IsFinal() bool {
	return s >= StateIllegal
}

// Transformation is one rewrite triggered by a directive.
//
// Analyze must not mutate the tree; it records diagnostics for an illegal
// instance and reports legality. Transform runs only on legal instances;
// other is the transformation it is combined with, or nil. Independent
// transformations never report true from CanBeTransformedWith.
type Transformation interface {
	Directive() *directive.Directive
	Dependent() bool
	State() State
	SetState(State)

	Analyze(prog *program.Program, tr *Translator) bool
	Transform(prog *program.Program, tr *Translator, other Transformation) error
	CanBeTransformedWith(prog *program.Program, other Transformation) bool
}

// Base carries the parts shared by every transformation: the start and
// optional end directive and the lifecycle state.
type Base struct {
	Start *directive.Directive
	End   *directive.Directive
	state State
}

// NewBase creates the shared part of a transformation.
func NewBase(start, end *directive.Directive) Base {
	return Base{Start: start, End: end}
}

func (b *Base) Directive() *directive.Directive { return b.Start }

func (b *Base) State() State { return b.state }

func (b *Base) SetState(s State) { b.state = s }

// Dependent reports false; dependent transformations override it.
func (b *Base) Dependent() bool { return false }

func (b *Base) CanBeTransformedWith(*program.Program, Transformation) bool { return false }

// Line returns the source line of the start directive.
func (b *Base) Line() uint32 {
	if b.Start == nil {
		return 0
	}
	return b.Start.Line()
}

// Reject records an analysis failure at the directive and returns false.
func (b *Base) Reject(prog *program.Program, code diag.Code, msg string) bool {
	prog.AddError(code, b.Start.Span, msg)
	return false
}

// Illegal builds the error for a failure inside Transform.
func (b *Base) Illegal(code diag.Code, msg string) *IllegalTransformationError {
	return &IllegalTransformationError{Line: b.Line(), Code: code, Msg: msg}
}

// RemovePragma deletes the start and end pragmas that are still in the tree.
func (b *Base) RemovePragma(prog *program.Program) {
	for _, d := range []*directive.Directive{b.Start, b.End} {
		if d != nil && prog.Tree.IsLive(d.Pragma) {
			prog.Tree.Delete(d.Pragma)
		}
	}
}
