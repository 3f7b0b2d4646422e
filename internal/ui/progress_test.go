package ui

import (
	"strings"
	"testing"
	"time"

	"pragmax/internal/driver"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("transform", []string{"a.json", "./b.json", "b.json"}, events).(*progressModel)

	steps := []driver.Event{
		{File: "a.json", Stage: driver.StageTransform, Status: driver.StatusWorking},
		{File: "b.json", Status: driver.StatusError, Elapsed: 3 * time.Millisecond},
		{File: "unknown.json", Status: driver.StatusDone},
	}
	for _, ev := range steps {
		m.Update(eventMsg(ev))
	}
	if got := m.items[0].status; got != "transforming" {
		t.Fatalf("a.json status = %q, want transforming", got)
	}
	if got := m.items[1].status; got != "error" || m.items[1].elapsed != 3*time.Millisecond {
		t.Fatalf("b.json = %+v, want error after 3ms", m.items[1])
	}
	if len(m.items) != 2 {
		t.Fatalf("items = %+v, want b.json listed once", m.items)
	}
	if m.failed != 1 {
		t.Fatalf("failed = %d, want 1", m.failed)
	}
	view := m.View()
	if !strings.Contains(view, "transform (1 failed)") || !strings.Contains(view, "transforming") {
		t.Fatalf("view:\n%s", view)
	}

	_, cmd := m.Update(doneMsg{})
	if !m.done || cmd == nil {
		t.Fatalf("model did not quit after the event stream closed")
	}
	if !strings.Contains(m.View(), "done: transform") {
		t.Fatalf("final view:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"kernel.json", 20, "kernel.json"},
		{"very/long/path/kernel.json", 10, "very/lo..."},
		{"kernel.json", 3, "ker"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
