package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qlower/internal/driver"
	"qlower/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] file.qasm",
	Short: "Execute a file on the MIR interpreter",
	Long: `Run lowers a file and executes its program body on the MIR interpreter
with a recording runtime. Every runtime call (allocation, gate, measurement,
print, release) is printed in order.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	addLoweringFlags(runCmd)
	runCmd.Flags().Int64Slice("outcomes", nil, "scripted measurement outcomes, in order (then 0)")
	runCmd.Flags().Int64("step-limit", 0, "max executed instructions (0=default, <0 unlimited)")
	runCmd.Flags().Bool("output-only", false, "print only program output instead of every runtime event")
}

func runRun(cmd *cobra.Command, args []string) error {
	outcomes, err := cmd.Flags().GetInt64Slice("outcomes")
	if err != nil {
		return err
	}
	stepLimit, err := cmd.Flags().GetInt64("step-limit")
	if err != nil {
		return err
	}
	outputOnly, err := cmd.Flags().GetBool("output-only")
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fs, res, err := compileSingle(cmd.Context(), cmd, args[0], false)
	if err != nil {
		return err
	}

	rec := vm.NewRecorder(outcomes...)
	if outputOnly {
		rec.WithOutput(cmd.OutOrStdout())
	}
	machine := vm.New(res.Result.Module, rec, vm.Options{StepLimit: stepLimit})
	_, runErr := machine.Call(driver.BodyName(res.Result.Module.Name))

	if !outputOnly {
		for _, ev := range rec.Events() {
			fmt.Fprintln(cmd.OutOrStdout(), ev.String())
		}
	}
	if runErr != nil {
		var vmErr *vm.VMError
		if errors.As(runErr, &vmErr) {
			fmt.Fprint(os.Stderr, vmErr.FormatWithFiles(fs))
		}
		return runErr
	}
	if live := rec.Live(); live != 0 {
		return fmt.Errorf("%d qubit register(s) still allocated after execution", live)
	}
	return nil
}
