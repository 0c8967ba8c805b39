package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"qlower/internal/driver"
	"qlower/internal/source"
)

var errCompileFailed = errors.New("compilation failed")

// addLoweringFlags registers the lowering flags shared by mir and run.
func addLoweringFlags(cmd *cobra.Command) {
	cmd.Flags().String("entry-point", "", "entry point name (default: derived from the file name)")
	cmd.Flags().Bool("simplify", false, "simplify the control-flow graph")
}

// compileSingle lowers one file with the lowering flags of cmd and prints
// its diagnostics. It returns errCompileFailed when lowering failed.
func compileSingle(ctx context.Context, cmd *cobra.Command, path string, addMain bool) (*source.FileSet, *driver.FileResult, error) {
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	entry, err := cmd.Flags().GetString("entry-point")
	if err != nil {
		return nil, nil, err
	}
	simplify, err := cmd.Flags().GetBool("simplify")
	if err != nil {
		return nil, nil, err
	}

	fs := source.NewFileSet()
	res, err := driver.CompileFile(ctx, fs, path, driver.CompileOptions{
		Options: driver.Options{
			EntryPoint: entry,
			AddMain:    addMain,
			Simplify:   simplify,
		},
		MaxDiagnostics: g.maxDiagnostics,
		EmitTimings:    g.timings,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := printDiagnostics(g, "pretty", res.Bag, fs, ""); err != nil {
		return nil, nil, err
	}
	if res.Failed() {
		return fs, res, errCompileFailed
	}
	return fs, res, nil
}
