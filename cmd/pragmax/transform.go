package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pragmax/internal/diag"
	"pragmax/internal/diagfmt"
	"pragmax/internal/driver"
	"pragmax/internal/trace"
	"pragmax/internal/xio"
)

var transformCmd = &cobra.Command{
	Use:   "transform [flags] <file|directory>...",
	Short: "Apply claw directives to documents",
	Long: `Apply the claw directives of each .json or .xmp document. Directories are
searched recursively. Rewritten documents go to --output-dir, or replace the
inputs when no output directory is configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringP("output-dir", "o", "", "directory for rewritten documents")
	transformCmd.Flags().String("dialect", "", "accelerator dialect (none|openacc|openmp)")
	transformCmd.Flags().String("target", "", "accelerator target (cpu|gpu)")
	transformCmd.Flags().String("format", "", "output document format (auto|json|msgpack)")
	transformCmd.Flags().Int("indent", 0, "JSON indent width")
	transformCmd.Flags().Int("jobs", 0, "max parallel documents (0=auto)")
	transformCmd.Flags().String("diag-format", "pretty", "diagnostics format (pretty|json|short)")
	transformCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	transformCmd.Flags().Bool("fullpath", false, "emit absolute file paths in diagnostics")
	transformCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := overrideString(cmd, "output-dir", &cfg.Output.Dir); err != nil {
		return err
	}
	if err := overrideString(cmd, "dialect", &cfg.Accelerator.Dialect); err != nil {
		return err
	}
	if err := overrideString(cmd, "target", &cfg.Accelerator.Target); err != nil {
		return err
	}
	if err := overrideString(cmd, "format", &cfg.Output.Format); err != nil {
		return err
	}
	if err := overrideInt(cmd, "indent", &cfg.Output.Indent); err != nil {
		return err
	}
	if err := overrideInt(cmd, "jobs", &cfg.Output.Jobs); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	gen, err := cfg.Generator()
	if err != nil {
		return err
	}

	diagFormat, err := cmd.Flags().GetString("diag-format")
	if err != nil {
		return fmt.Errorf("failed to get diag-format flag: %w", err)
	}
	switch diagFormat {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown diag-format value: %s", diagFormat)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .json or .xmp documents in %s", strings.Join(args, ", "))
	}

	cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := driver.Options{
		Generator:      gen,
		MaxDiagnostics: cfg.Diagnostics.Max,
		OutputDir:      cfg.Output.Dir,
		Write:          xio.WriteOptions{Format: cfg.Format(), Indent: cfg.Output.Indent},
		Jobs:           cfg.Output.Jobs,
		Timings:        showTimings,
	}
	var results []driver.FileResult
	if shouldUseTUI(mode, quiet) {
		results, err = runTransformWithUI(cmd.Context(), "transform", inputs, opts)
	} else {
		results, err = driver.TransformFiles(cmd.Context(), inputs, opts)
	}
	if err != nil {
		return err
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	out := cmd.OutOrStdout()
	failed := false
	for _, r := range results {
		r.Bag.Sort()
		if err := printDiagnostics(out, r, diagFormat, diagfmt.PrettyOpts{
			Color:     colored,
			PathMode:  pathMode,
			ShowNotes: withNotes,
		}); err != nil {
			return err
		}
		if r.Failed() || r.Bag.HasErrors() {
			failed = true
		}
		if r.Failed() {
			if err := dumpTrace(cmd, r.Path); err != nil {
				return err
			}
		}
		if !quiet && r.Result != nil {
			if err := r.Result.Summary.Write(out, r.Path); err != nil {
				return err
			}
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func printDiagnostics(out io.Writer, r driver.FileResult, format string, opts diagfmt.PrettyOpts) error {
	if r.Bag.Len() == 0 {
		return nil
	}
	switch format {
	case "json":
		return diagfmt.JSON(out, r.Bag, r.FileSet, diagfmt.JSONOpts{
			PathMode:     opts.PathMode,
			IncludeNotes: opts.ShowNotes,
			Indent:       true,
		})
	case "short":
		_, err := fmt.Fprintln(out, diag.FormatShortDiagnostics(r.Bag.Items(), r.FileSet, opts.ShowNotes))
		return err
	}
	return diagfmt.Pretty(out, r.Bag, r.FileSet, opts)
}

// collectInputs expands directories into their documents, sorted for a
// deterministic order.
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// reported per document by the driver
			inputs = append(inputs, arg)
			continue
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch filepath.Ext(path) {
			case ".json", ".xmp":
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

// dumpTrace prints the ring history after a failed document.
func dumpTrace(cmd *cobra.Command, path string) error {
	ring := trace.RingOf(trace.FromContext(cmd.Context()))
	if ring == nil {
		return nil
	}
	w := cmd.ErrOrStderr()
	if _, err := fmt.Fprintf(w, "trace history before %s failed:\n", path); err != nil {
		return err
	}
	return ring.Dump(w, trace.FormatText)
}
