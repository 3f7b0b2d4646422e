package transform

import (
	"fmt"

	"pragmax/internal/diag"
)

// IllegalDirectiveError reports a directive whose clauses cannot describe a
// valid transformation. It is raised at construction time and never aborts
// a run.
type IllegalDirectiveError struct {
	Line uint32
	Code diag.Code
	Msg  string
}

func (e *IllegalDirectiveError) Error() string {
	return fmt.Sprintf("illegal directive at line %d: %s", e.Line, e.Msg)
}

// IllegalTransformationError reports a transformation that cannot be
// applied. Raised from Transform it is fatal for the run.
type IllegalTransformationError struct {
	Line uint32
	Code diag.Code
	Msg  string
	Err  error
}

func (e *IllegalTransformationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("illegal transformation at line %d: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("illegal transformation at line %d: %s", e.Line, e.Msg)
}

func (e *IllegalTransformationError) Unwrap() error { return e.Err }
