package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"qlower/internal/driver"
	"qlower/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the lowering cache and build outputs",
	Long: `Clean drops every entry of the on-disk lowering cache. Inside a project
the manifest's output directory is removed as well unless --outputs=false.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().Bool("outputs", true, "also remove the project output directory")
}

func runClean(cmd *cobra.Command, args []string) error {
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	outputs, err := cmd.Flags().GetBool("outputs")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cache, err := driver.OpenDiskCache("qlower")
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if !g.quiet {
		fmt.Fprintf(out, "cleared cache %s\n", cache.Dir())
	}

	if !outputs {
		return nil
	}
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	manifest, found, err := project.LoadProject(base)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	dir := manifest.OutPath()
	if rel, err := filepath.Rel(manifest.Root, dir); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove output directory %q outside the project", dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	if !g.quiet {
		fmt.Fprintf(out, "removed %s\n", formatPathForOutput(manifest.Root, dir))
	}
	return nil
}
