package driver

import (
	"context"
	"errors"
	"fmt"

	"pragmax/internal/accel"
	"pragmax/internal/diag"
	"pragmax/internal/directive"
	"pragmax/internal/program"
	"pragmax/internal/trace"
	"pragmax/internal/transform"
	"pragmax/internal/transform/loop"
	"pragmax/internal/transform/utility"
	"pragmax/internal/xio"
)

// Options configures a pipeline run.
type Options struct {
	Generator      accel.Generator
	MaxDiagnostics int
	// OutputDir receives the rewritten documents; empty rewrites in place.
	OutputDir string
	Write     xio.WriteOptions
	Jobs      int
	Timings   bool
	// Progress receives per-document events from TransformFiles.
	Progress ProgressSink
}

// Result is the outcome of one program run.
type Result struct {
	Summary   transform.Summary
	Directive int // number of parsed claw directives
	Guards    int // compile guards removed
}

// TransformProgram applies every claw directive of prog. Malformed
// directives and illegal transformations are recorded in prog.Diags; only a
// failing rewrite is returned, as *transform.IllegalTransformationError.
func TransformProgram(ctx context.Context, prog *program.Program, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := opts.Generator
	if gen == nil {
		gen = accel.New(accel.DialectNone, accel.TargetCPU)
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "transform")
	span.WithExtra("source", prog.Source)

	reg := directive.NewRegistry()
	for _, err := range reg.Collect(prog, gen.IsCompileGuard) {
		reportSyntax(prog, diag.DirIllegal, err)
	}
	blocks, errs := reg.Blocks()
	for _, err := range errs {
		reportSyntax(prog, diag.DirUnpairedEnd, err)
	}

	tr := transform.NewTranslator(gen, trace.FromContext(ctx))
	for _, b := range blocks {
		t, err := construct(b)
		if err != nil {
			var illegal *transform.IllegalDirectiveError
			if !errors.As(err, &illegal) {
				span.End("failed")
				return nil, err
			}
			prog.AddError(illegal.Code, b.Start.Span, illegal.Msg)
			continue
		}
		if err := tr.Add(t); err != nil {
			span.End("failed")
			return nil, err
		}
	}

	res := &Result{Directive: reg.Len()}
	if err := tr.Apply(ctx, prog); err != nil {
		res.Summary = tr.Summary()
		reportFatal(prog, err)
		span.End("failed")
		return res, err
	}

	for _, g := range reg.Guards() {
		if prog.Tree.IsLive(g) {
			prog.Tree.Delete(g)
			res.Guards++
		}
	}
	res.Summary = tr.Summary()
	span.End(fmt.Sprintf("%d transformed", res.Summary.Transformed))
	return res, nil
}

func construct(b directive.Block) (transform.Transformation, error) {
	switch b.Start.Kind {
	case directive.KindRemove:
		return utility.NewRemove(b.Start, b.End), nil
	case directive.KindLoopExtract:
		return loop.NewExtraction(b.Start)
	case directive.KindLoopFusion:
		return loop.NewFusion(b.Start), nil
	}
	return nil, fmt.Errorf("driver: no transformation for %s directive at line %d", b.Start.Kind, b.Start.Line())
}

func reportSyntax(prog *program.Program, code diag.Code, err error) {
	var syn *directive.SyntaxError
	if errors.As(err, &syn) {
		prog.AddError(code, prog.Span(syn.Line), syn.Msg)
		return
	}
	prog.AddError(code, prog.Span(0), err.Error())
}

func reportFatal(prog *program.Program, err error) {
	var illegal *transform.IllegalTransformationError
	if !errors.As(err, &illegal) {
		prog.AddError(diag.TrIllegal, prog.Span(0), err.Error())
		return
	}
	msg := illegal.Msg
	if illegal.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, illegal.Err)
	}
	prog.AddError(illegal.Code, prog.Span(illegal.Line), msg)
}
