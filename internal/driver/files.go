package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"pragmax/internal/diag"
	"pragmax/internal/observ"
	"pragmax/internal/program"
	"pragmax/internal/source"
	"pragmax/internal/xio"
)

// FileResult is the outcome of one document. Each document gets its own
// FileSet and Bag so results can be reported independently.
type FileResult struct {
	Path    string
	Output  string
	FileSet *source.FileSet
	Bag     *diag.Bag
	Program *program.Program
	Result  *Result
	Timing  *observ.Report
	// Err is the fatal error of this document, if any.
	Err error
}

// Failed reports whether the document produced no usable output.
func (r FileResult) Failed() bool {
	return r.Err != nil
}

// TransformFiles runs the pipeline over paths with at most opts.Jobs
// documents in flight. A fatal error in one document is recorded in its
// FileResult and does not stop the others; the returned error is only set
// when ctx is cancelled.
func TransformFiles(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	paths = lo.Uniq(lo.Map(paths, func(p string, _ int) string { return filepath.Clean(p) }))
	if len(paths) == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// each goroutine owns one index
	results := make([]FileResult, len(paths))

	for _, path := range paths {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = transformFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Failures returns the documents that produced no output.
func Failures(results []FileResult) []FileResult {
	return lo.Filter(results, func(r FileResult, _ int) bool { return r.Failed() })
}

func transformFile(ctx context.Context, path string, opts Options) (res FileResult) {
	res = FileResult{
		Path:    path,
		FileSet: source.NewFileSet(),
		Bag:     diag.NewBag(opts.MaxDiagnostics),
	}
	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	start := time.Now()
	defer func() {
		evt := Event{File: path, Status: StatusDone, Elapsed: time.Since(start)}
		if res.Err != nil {
			evt.Status, evt.Err = StatusError, res.Err
		}
		emit(opts.Progress, evt)
	}()

	emit(opts.Progress, Event{File: path, Stage: StageRead, Status: StatusWorking})
	idx := timer.Begin("read")
	prog, err := xio.ReadFile(path, res.FileSet, res.Bag)
	timer.End(idx, "")
	if err != nil {
		res.Err = err
		finishTimings(&res, timer)
		return res
	}
	res.Program = prog

	emit(opts.Progress, Event{File: path, Stage: StageTransform, Status: StatusWorking})
	idx = timer.Begin("transform")
	res.Result, err = TransformProgram(ctx, prog, opts)
	note := ""
	if res.Result != nil {
		note = fmt.Sprintf("%d transformed", res.Result.Summary.Transformed)
	}
	timer.End(idx, note)
	if err != nil {
		res.Err = err
		finishTimings(&res, timer)
		return res
	}

	res.Output = OutputPath(path, opts.OutputDir, opts.Write.Format)
	emit(opts.Progress, Event{File: path, Stage: StageWrite, Status: StatusWorking})
	idx = timer.Begin("write")
	if err := xio.WriteFile(res.Output, prog, opts.Write); err != nil {
		res.Bag.Add(diag.NewError(diag.IOWriteFileError, source.Span{File: prog.File}, err.Error()))
		res.Err = err
	}
	timer.End(idx, res.Output)
	finishTimings(&res, timer)
	return res
}

// OutputPath places the document in dir, or next to the input when dir is
// empty. An explicit format replaces the extension.
func OutputPath(input, dir string, format xio.Format) string {
	out := input
	if dir != "" {
		out = filepath.Join(dir, filepath.Base(input))
	}
	switch format {
	case xio.FormatJSON:
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ".json"
	case xio.FormatMsgpack:
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ".xmp"
	}
	return out
}

func finishTimings(res *FileResult, timer *observ.Timer) {
	if timer == nil {
		return
	}
	report := timer.Report()
	res.Timing = &report
	appendTimingDiagnostic(res.Bag, timingPayload{
		Kind:    "file",
		Path:    res.Path,
		TotalMS: report.TotalMS,
		Phases:  report.Phases,
	})
}
