// Package directive models parsed claw pragmas: their kind, the pragma node
// they were read from, and clause data such as iteration ranges and
// variable mappings.
package directive

import (
	"fmt"
	"strings"

	"pragmax/internal/program"
	"pragmax/internal/source"
	"pragmax/internal/tree"
)

// Kind enumerates the supported directives. The order is the order in which
// the engine applies transformation groups.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRemove
	KindEndRemove
	KindLoopExtract
	KindLoopFusion
)

func (k Kind) String() string {
	switch k {
	case KindRemove:
		return "remove"
	case KindEndRemove:
		return "end remove"
	case KindLoopExtract:
		return "loop-extract"
	case KindLoopFusion:
		return "loop-fusion"
	default:
		return "invalid"
	}
}

// IsEnd reports whether the kind closes a block directive.
func (k Kind) IsEnd() bool { return k == KindEndRemove }

// EndKind returns the kind closing a block opened by k, or KindInvalid.
func (k Kind) EndKind() Kind {
	if k == KindRemove {
		return KindEndRemove
	}
	return KindInvalid
}

// Range is the iteration space of a do loop: induction = lower, upper, step.
type Range struct {
	Induction string
	Lower     string
	Upper     string
	Step      string
}

// DefaultStep is the implicit loop step.
const DefaultStep = "1"

func (r Range) step() string {
	if r.Step == "" {
		return DefaultStep
	}
	return r.Step
}

func (r Range) String() string {
	if r.Step == "" {
		return fmt.Sprintf("%s=%s,%s", r.Induction, r.Lower, r.Upper)
	}
	return fmt.Sprintf("%s=%s,%s,%s", r.Induction, r.Lower, r.Upper, r.Step)
}

// Equal compares two ranges textually, ignoring case and spaces.
func (r Range) Equal(other Range) bool {
	return sameText(r.Induction, other.Induction) &&
		sameText(r.Lower, other.Lower) &&
		sameText(r.Upper, other.Upper) &&
		sameText(r.step(), other.step())
}

// RangeOf reads the iteration range of a do statement.
func RangeOf(t *tree.Tree, do tree.NodeID) (Range, bool) {
	if t.Op(do) != tree.OpDoStatement {
		return Range{}, false
	}
	induction := t.MatchDirectDescendant(do, tree.OpVar)
	rng := t.MatchDirectDescendant(do, tree.OpIndexRange)
	if !induction.IsValid() || !rng.IsValid() {
		return Range{}, false
	}
	out := Range{
		Induction: t.Value(induction),
		Lower:     program.ExprText(t, t.MatchDirectDescendant(rng, tree.OpLowerBound)),
		Upper:     program.ExprText(t, t.MatchDirectDescendant(rng, tree.OpUpperBound)),
	}
	if step := t.MatchDirectDescendant(rng, tree.OpStep); step.IsValid() {
		out.Step = program.ExprText(t, step)
	}
	return out, true
}

// Matches reports whether do iterates exactly over r.
func (r Range) Matches(t *tree.Tree, do tree.NodeID) bool {
	got, ok := RangeOf(t, do)
	return ok && r.Equal(got)
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.ReplaceAll(a, " ", ""), strings.ReplaceAll(b, " ", ""))
}

// MappingVar pairs a caller-side name with a callee-side name.
type MappingVar struct {
	Arg string
	Fct string
}

func (v MappingVar) String() string {
	if v.Arg == v.Fct {
		return v.Arg
	}
	return v.Arg + "/" + v.Fct
}

// Mapping associates mapped variables with the index variables that rebuild
// their dimensions: map(x/y:i) maps argument x to parameter y over index i.
type Mapping struct {
	Mapped  []MappingVar
	Mapping []MappingVar
}

// Dimensions is the number of dimensions the mapping removes.
func (m Mapping) Dimensions() int { return len(m.Mapping) }

func (m Mapping) String() string {
	return joinVars(m.Mapped) + ":" + joinVars(m.Mapping)
}

func joinVars(vars []MappingVar) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// Directive is one parsed claw pragma.
type Directive struct {
	Kind   Kind
	Pragma tree.NodeID
	Span   source.Span
	Raw    string

	Range    *Range
	Mappings []Mapping

	// Fusion queues a loop-fusion on the loop produced by the directive.
	Fusion bool
	Group  string

	// Parallel and AccClauses request accelerator annotation.
	Parallel   bool
	AccClauses string
	// Routine requests a routine directive in the extracted function.
	Routine bool
}

// Line returns the source line of the pragma.
func (d *Directive) Line() uint32 { return d.Span.Line }

// HasAccelerator reports whether any accelerator annotation was requested.
func (d *Directive) HasAccelerator() bool {
	return d.Parallel || d.AccClauses != ""
}

func (d *Directive) String() string {
	return fmt.Sprintf("%s@%d", d.Kind, d.Span.Line)
}
