package main

import (
	"os"

	"github.com/spf13/cobra"

	"qlower/internal/mir"
)

var mirCmd = &cobra.Command{
	Use:   "mir [flags] file.qasm",
	Short: "Print the lowered MIR of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMIR,
}

func init() {
	addLoweringFlags(mirCmd)
	mirCmd.Flags().Bool("add-main", false, "add a main(argc, argv) driving the runtime")
	mirCmd.Flags().Bool("spans", false, "annotate instructions with source spans")
}

func runMIR(cmd *cobra.Command, args []string) error {
	addMain, err := cmd.Flags().GetBool("add-main")
	if err != nil {
		return err
	}
	spans, err := cmd.Flags().GetBool("spans")
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, res, err := compileSingle(cmd.Context(), cmd, args[0], addMain)
	if err != nil {
		return err
	}
	return mir.DumpModule(os.Stdout, res.Result.Module, mir.DumpOptions{Spans: spans})
}
