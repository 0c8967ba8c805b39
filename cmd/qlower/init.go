package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"qlower/internal/project"
	"qlower/internal/version"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a qlower.toml project manifest",
	Long: `Init writes a qlower.toml into dir (the current directory by default),
creating the directory when needed. The project name defaults to the
directory name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "project name (default: directory name)")
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	if name == "" {
		name = projectNameFromDir(target)
	}

	path, err := project.Init(target, name, version.Version)
	if err != nil {
		return err
	}
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	if !g.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	}
	return nil
}

// projectNameFromDir turns a directory name into a valid identifier,
// falling back to "qasm_project".
func projectNameFromDir(dir string) string {
	base := strings.TrimSpace(filepath.Base(dir))
	var sb strings.Builder
	for i, r := range base {
		switch {
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			sb.WriteRune(r)
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	name := sb.String()
	if !project.IsValidIdent(name) {
		return "qasm_project"
	}
	return name
}
