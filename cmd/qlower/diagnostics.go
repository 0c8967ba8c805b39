package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"qlower/internal/diag"
	"qlower/internal/diagfmt"
	"qlower/internal/source"
)

type globalFlags struct {
	color          string
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readGlobalFlags(cmd *cobra.Command) (globalFlags, error) {
	flags := cmd.Root().PersistentFlags()
	var (
		g   globalFlags
		err error
	)
	if g.color, err = flags.GetString("color"); err != nil {
		return g, fmt.Errorf("failed to get color flag: %w", err)
	}
	if g.quiet, err = flags.GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.timings, err = flags.GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if g.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return g, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return g, nil
}

func (g globalFlags) useColor(f *os.File) bool {
	switch g.color {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(f)
	}
}

// printDiagnostics renders bag to stderr in the requested format. Pretty
// output honours --color, json writes a single document and short writes
// one line per diagnostic.
func printDiagnostics(g globalFlags, format string, bag *diag.Bag, fs *source.FileSet, baseDir string) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	bag.Sort()
	return writeDiagnostics(os.Stderr, g.useColor(os.Stderr), g.maxDiagnostics, format, bag, fs, baseDir)
}

func writeDiagnostics(w io.Writer, useColor bool, limit int, format string, bag *diag.Bag, fs *source.FileSet, baseDir string) error {
	switch format {
	case "", "pretty":
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     useColor,
			Context:   1,
			BaseDir:   baseDir,
			ShowNotes: true,
		})
		return nil
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			BaseDir:          baseDir,
			Max:              limit,
			IncludeNotes:     true,
		})
	case "short":
		items := bag.Items()
		if limit > 0 && limit < len(items) {
			items = items[:limit]
		}
		_, err := io.WriteString(w, diag.FormatShort(items, fs, true))
		return err
	default:
		return fmt.Errorf("unknown diagnostics format: %s (expected pretty|json|short)", format)
	}
}
