package transform

import (
	"fmt"
	"io"
	"path/filepath"

	"pragmax/internal/directive"
)

// Outcome is the final state of one transformation.
type Outcome struct {
	Kind  directive.Kind
	Line  uint32
	State State
}

// Summary counts the outcomes of a run.
type Summary struct {
	Outcomes    []Outcome
	Total       int
	Transformed int
	Illegal     int
	Removed     int
	Skipped     int
}

// Summary reports the state of every registered transformation.
func (tr *Translator) Summary() Summary {
	s := Summary{Total: len(tr.all)}
	for _, t := range tr.all {
		d := t.Directive()
		s.Outcomes = append(s.Outcomes, Outcome{Kind: d.Kind, Line: d.Line(), State: t.State()})
		switch t.State() {
		case StateTransformed:
			s.Transformed++
		case StateIllegal:
			s.Illegal++
		case StateRemoved:
			s.Removed++
		case StateSkipped, StateCreated, StateAnalyzed:
			s.Skipped++
		}
	}
	return s
}

// Write prints one line per transformation followed by the totals.
func (s Summary) Write(w io.Writer, source string) error {
	file := filepath.Base(source)
	for _, o := range s.Outcomes {
		if _, err := fmt.Fprintf(w, "%s %s:%d ... %s\n", o.Kind, file, o.Line, o.State); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s: %d total, %d transformed, %d illegal, %d removed, %d skipped\n",
		file, s.Total, s.Transformed, s.Illegal, s.Removed, s.Skipped)
	return err
}
