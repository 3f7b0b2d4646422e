package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pragmax/internal/diag"
	"pragmax/internal/diagfmt"
	"pragmax/internal/source"
	"pragmax/internal/xio"
)

var printCmd = &cobra.Command{
	Use:   "print [flags] <file>",
	Short: "Render a document as Fortran-like source",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrint,
}

func init() {
	printCmd.Flags().Int("indent", 0, "indent width (default from config)")
}

func runPrint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := overrideInt(cmd, "indent", &cfg.Output.Indent); err != nil {
		return err
	}
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	bag := diag.NewBag(cfg.Diagnostics.Max)
	prog, err := xio.ReadFile(args[0], fs, bag)
	if err != nil {
		if perr := diagfmt.Pretty(cmd.ErrOrStderr(), bag, fs, diagfmt.PrettyOpts{Color: colored}); perr != nil {
			return perr
		}
		return errFailed
	}
	if err := xio.Print(cmd.OutOrStdout(), prog, cfg.Output.Indent); err != nil {
		return fmt.Errorf("print %s: %w", args[0], err)
	}
	return nil
}
