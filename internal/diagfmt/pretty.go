package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pragmax/internal/diag"
	"pragmax/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	noteColor    = color.New(color.FgBlue)
	locColor     = color.New(color.Bold)
)

// Pretty writes one block per diagnostic:
//
//	path:line: ERROR TR3002: message
//	  = note: path:line: note message
//
// Diagnostics are printed in bag order; callers sort the bag first.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	for _, d := range bag.Items() {
		if err := prettyOne(w, d, fs, opts); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	loc := location(d.Primary, fs, opts)
	label := d.Severity.String() + " " + d.Code.ID()
	msg := truncate(d.Message, opts.Width)

	var b strings.Builder
	b.WriteString(paint(opts.Color, locColor, loc+":"))
	b.WriteByte(' ')
	b.WriteString(paint(opts.Color, severityColor(d.Severity), label+":"))
	b.WriteByte(' ')
	b.WriteString(msg)
	b.WriteByte('\n')

	if opts.ShowNotes || d.Code == diag.ObsTimings {
		for _, n := range d.Notes {
			b.WriteString("  ")
			b.WriteString(paint(opts.Color, noteColor, "= note:"))
			b.WriteByte(' ')
			if n.Span.Known() {
				b.WriteString(location(n.Span, fs, opts))
				b.WriteString(": ")
			}
			b.WriteString(truncate(n.Msg, opts.Width))
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func location(sp source.Span, fs *source.FileSet, opts PrettyOpts) string {
	path := formatPath(fs, sp.File, opts.PathMode, opts.BaseDir)
	switch {
	case sp.Col != 0:
		return fmt.Sprintf("%s:%d:%d", path, sp.Line, sp.Col)
	case sp.Known():
		return fmt.Sprintf("%s:%d", path, sp.Line)
	}
	return path
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	}
	return infoColor
}

func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
