package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pragmax/internal/accel"
	"pragmax/internal/diag"
	"pragmax/internal/program"
	"pragmax/internal/testkit"
	"pragmax/internal/transform"
	"pragmax/internal/xio"
)

const extract = "claw loop-extract range(i=1,10) map(x/y:i)"

func codes(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		out = append(out, d.Code.ID())
	}
	return out
}

func TestTransformProgramExtracts(t *testing.T) {
	fx := testkit.NewExtraction(t, extract)
	guard := fx.Builder.Pragma(fx.Main.Body(), "acc claw-guard", 5)

	res, err := TransformProgram(context.Background(), fx.Prog, Options{
		Generator: accel.New(accel.DialectOpenACC, accel.TargetGPU),
	})
	if err != nil {
		t.Fatalf("TransformProgram: %v", err)
	}
	if res.Directive != 1 || res.Guards != 1 {
		t.Errorf("directives = %d, guards = %d, want 1 and 1", res.Directive, res.Guards)
	}
	if res.Summary.Transformed != 1 || res.Summary.Total != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if fx.Prog.Tree.IsLive(guard) || fx.Prog.Tree.IsLive(fx.Pragma) {
		t.Errorf("guard or directive pragma still in the tree")
	}
	if got := program.ExprText(fx.Prog.Tree, fx.Call); got != "f_extracted_0(x(i))" {
		t.Errorf("call = %q", got)
	}
	if fx.Prog.Diags.Len() != 0 {
		t.Errorf("unexpected diagnostics %v", codes(fx.Prog.Diags))
	}
	if err := testkit.CheckProgramInvariants(fx.Prog); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestTransformProgramRecoversFromBadDirectives(t *testing.T) {
	tests := []struct {
		name   string
		pragma string
		want   []string
	}{
		{"missing range", "claw loop-extract map(x/y:i)", []string{"DIR2001"}},
		{"unknown", "claw loop-reorder", []string{"DIR2001"}},
		{"unpaired end", "claw end remove", []string{"DIR2003"}},
		{"duplicate mapping", "claw loop-extract range(i=1,10) map(x/y:i) map(x/z:i)", []string{"DIR2005"}},
		{"range mismatch", "claw loop-extract range(i=1,20) map(x/y:i)", []string{"TR3006"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := testkit.NewExtraction(t, tt.pragma)
			res, err := TransformProgram(context.Background(), fx.Prog, Options{})
			if err != nil {
				t.Fatalf("TransformProgram: %v", err)
			}
			if diff := cmp.Diff(tt.want, codes(fx.Prog.Diags)); diff != "" {
				t.Errorf("codes (-want +got):\n%s", diff)
			}
			if res.Summary.Transformed != 0 {
				t.Errorf("transformed = %d, want 0", res.Summary.Transformed)
			}
			if got := program.ExprText(fx.Prog.Tree, fx.Call); got != "f(x)" {
				t.Errorf("call rewritten to %q", got)
			}
		})
	}
}

func TestTransformProgramFatal(t *testing.T) {
	fx := testkit.NewExtraction(t, "claw loop-extract range(i=1,10) map(x/y:i,j)")
	res, err := TransformProgram(context.Background(), fx.Prog, Options{})
	var illegal *transform.IllegalTransformationError
	if !errors.As(err, &illegal) {
		t.Fatalf("err = %v, want *IllegalTransformationError", err)
	}
	if illegal.Line != 3 {
		t.Errorf("line = %d, want 3", illegal.Line)
	}
	if res == nil || res.Summary.Illegal != 1 {
		t.Fatalf("result = %+v", res)
	}
	items := fx.Prog.Diags.Items()
	if len(items) != 1 || items[0].Code != diag.TrDimensionMismatch || items[0].Primary.Line != 3 {
		t.Errorf("diagnostics = %+v", items)
	}
}

func TestTransformProgramCancelled(t *testing.T) {
	fx := testkit.NewExtraction(t, extract)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := TransformProgram(ctx, fx.Prog, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTransformFiles(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	good := filepath.Join(in, "kernel.json")
	fx := testkit.NewExtraction(t, extract)
	if err := xio.WriteFile(good, fx.Prog, xio.WriteOptions{}); err != nil {
		t.Fatalf("write input: %v", err)
	}
	missing := filepath.Join(in, "missing.json")

	results, err := TransformFiles(context.Background(), []string{good, good, missing}, Options{
		OutputDir: out,
		Write:     xio.WriteOptions{Format: xio.FormatMsgpack},
		Jobs:      2,
		Timings:   true,
	})
	if err != nil {
		t.Fatalf("TransformFiles: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 after de-duplication", len(results))
	}

	ok := results[0]
	if ok.Err != nil {
		t.Fatalf("kernel.json: %v", ok.Err)
	}
	if want := filepath.Join(out, "kernel.xmp"); ok.Output != want {
		t.Errorf("output = %q, want %q", ok.Output, want)
	}
	if ok.Timing == nil || len(ok.Timing.Phases) != 3 {
		t.Errorf("timing = %+v, want read/transform/write", ok.Timing)
	}

	bag := diag.NewBag(0)
	prog, err := xio.ReadFile(ok.Output, ok.FileSet, bag)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var buf bytes.Buffer
	if err := xio.Print(&buf, prog, 2); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "call f_extracted_0(x(i))") {
		t.Errorf("output program:\n%s", buf.String())
	}

	failed := Failures(results)
	if len(failed) != 1 || failed[0].Path != missing {
		t.Fatalf("failures = %+v", failed)
	}
	if got := codes(failed[0].Bag); len(got) == 0 || got[0] != "IO4001" {
		t.Errorf("missing file codes = %v", got)
	}
	if _, err := os.Stat(filepath.Join(out, "missing.xmp")); !os.IsNotExist(err) {
		t.Errorf("output written for a failed document")
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) steps(file string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, evt := range r.events {
		if evt.File == file {
			out = append(out, string(evt.Stage)+":"+string(evt.Status))
		}
	}
	return out
}

func TestTransformFilesProgress(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	good := filepath.Join(in, "kernel.json")
	fx := testkit.NewExtraction(t, extract)
	if err := xio.WriteFile(good, fx.Prog, xio.WriteOptions{}); err != nil {
		t.Fatalf("write input: %v", err)
	}
	missing := filepath.Join(in, "missing.json")

	rec := &recorder{}
	if _, err := TransformFiles(context.Background(), []string{good, missing}, Options{
		OutputDir: out,
		Jobs:      2,
		Progress:  rec,
	}); err != nil {
		t.Fatalf("TransformFiles: %v", err)
	}

	want := []string{":queued", "read:working", "transform:working", "write:working", ":done"}
	if diff := cmp.Diff(want, rec.steps(good)); diff != "" {
		t.Errorf("kernel.json events (-want +got):\n%s", diff)
	}
	want = []string{":queued", "read:working", ":error"}
	if diff := cmp.Diff(want, rec.steps(missing)); diff != "" {
		t.Errorf("missing.json events (-want +got):\n%s", diff)
	}
	for _, evt := range rec.events {
		if evt.Status == StatusError && evt.Err == nil {
			t.Errorf("error event without error: %+v", evt)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, dir string
		format  xio.Format
		want    string
	}{
		{"a/k.json", "", xio.FormatAuto, "a/k.json"},
		{"a/k.json", "out", xio.FormatAuto, filepath.Join("out", "k.json")},
		{"a/k.json", "out", xio.FormatMsgpack, filepath.Join("out", "k.xmp")},
		{"a/k.xmp", "", xio.FormatJSON, "a/k.json"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in, tt.dir, tt.format); got != tt.want {
			t.Errorf("OutputPath(%q, %q, %s) = %q, want %q", tt.in, tt.dir, tt.format, got, tt.want)
		}
	}
}
