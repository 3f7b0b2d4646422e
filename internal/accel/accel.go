// Package accel renders accelerator directives for a dialect and an
// execution target, and places them around rewritten loops.
package accel

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Dialect is an accelerator directive language.
type Dialect uint8

const (
	DialectNone Dialect = iota
	DialectOpenACC
	DialectOpenMP
)

func (d Dialect) String() string {
	switch d {
	case DialectOpenACC:
		return "openacc"
	case DialectOpenMP:
		return "openmp"
	default:
		return "none"
	}
}

// ParseDialect converts a configuration value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DialectNone, nil
	case "openacc", "acc":
		return DialectOpenACC, nil
	case "openmp", "omp":
		return DialectOpenMP, nil
	default:
		return DialectNone, fmt.Errorf("invalid accelerator dialect: %q (expected: none|openacc|openmp)", s)
	}
}

// Target is the execution target the directives are generated for.
type Target uint8

const (
	TargetCPU Target = iota
	TargetGPU
)

func (t Target) String() string {
	if t == TargetGPU {
		return "gpu"
	}
	return "cpu"
}

// ParseTarget converts a configuration value to a Target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return TargetCPU, nil
	case "gpu":
		return TargetGPU, nil
	default:
		return TargetCPU, fmt.Errorf("invalid accelerator target: %q (expected: cpu|gpu)", s)
	}
}

// CompileGuard marks pragmas that protect conditional compilation.
const CompileGuard = "claw-guard"

// Generator renders directive text without the "!$" sentinel. Methods return
// an empty string where the dialect has no equivalent construct.
type Generator interface {
	Dialect() Dialect
	Target() Target
	Prefix() string

	StartParallel() string
	EndParallel() string
	StartLoop(collapse int) string
	EndLoop() string
	Single(clause string) string
	Private(vars []string) string
	Present(vars []string) string
	Routine() string

	// IsCompileGuard reports whether raw pragma text is a guard of this dialect.
	IsCompileGuard(raw string) bool
}

// New selects the generator for a dialect and target.
func New(d Dialect, t Target) Generator {
	switch d {
	case DialectOpenACC:
		return openACC{base{prefix: "acc", target: t}}
	case DialectOpenMP:
		return openMP{base{prefix: "omp", target: t}}
	default:
		return none{base{target: t}}
	}
}

type base struct {
	prefix string
	target Target
}

func (b base) Target() Target { return b.target }

func (b base) Prefix() string { return b.prefix }

func (b base) directive(words ...string) string {
	return b.prefix + " " + strings.Join(words, " ")
}

func (b base) IsCompileGuard(raw string) bool {
	if b.prefix == "" {
		return false
	}
	folded := strings.TrimSpace(cases.Fold().String(raw))
	folded = strings.TrimSpace(strings.TrimPrefix(folded, "!$"))
	return strings.HasPrefix(folded, b.prefix) && strings.Contains(folded, CompileGuard)
}

func clauseList(name string, vars []string) string {
	if len(vars) == 0 {
		return ""
	}
	return name + "(" + strings.Join(vars, ",") + ")"
}

func collapseClause(n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf(" collapse(%d)", n)
}
