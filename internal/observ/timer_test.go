package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	read := timer.Begin("read")
	timer.End(read, "2 files")
	transform := timer.Begin("transform")
	timer.End(transform, "")
	timer.End(42, "ignored")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "read" || report.Phases[0].Note != "2 files" {
		t.Fatalf("unexpected first phase: %+v", report.Phases[0])
	}
	if s := timer.Summary(); !strings.Contains(s, "transform") || !strings.Contains(s, "total") {
		t.Fatalf("summary missing phases:\n%s", s)
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var timer *Timer
	timer.End(timer.Begin("x"), "")
	if len(timer.Report().Phases) != 0 {
		t.Fatalf("nil timer recorded phases")
	}
}
