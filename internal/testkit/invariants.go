package testkit

import (
	"errors"
	"fmt"

	"pragmax/internal/program"
	"pragmax/internal/tree"
)

// CheckProgramInvariants runs the invariants every transformed program must
// keep:
// 1) program.Validate passes (links, identifier resolution, types)
// 2) every statement carries a known source line
// 3) every function definition is bound in the global symbol table
// 4) no two live function definitions share a name
func CheckProgramInvariants(prog *program.Program) error {
	if prog == nil {
		return fmt.Errorf("nil program")
	}
	var errs []error
	if err := prog.Validate(); err != nil {
		errs = append(errs, err)
	}

	prog.Tree.Walk(prog.Root(), func(id tree.NodeID) bool {
		if prog.Tree.Op(id).IsStatement() && !prog.Tree.SpanOf(id).Known() {
			errs = append(errs, fmt.Errorf("%s %d has no source line", prog.Tree.Op(id), id))
		}
		return true
	})

	seen := make(map[string]bool)
	for _, fn := range prog.Functions() {
		name := fn.Name()
		if !prog.Globals.Has(name) {
			errs = append(errs, fmt.Errorf("function %s missing from global symbols", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("function %s defined twice", name))
		}
		seen[name] = true
	}
	return errors.Join(errs...)
}
