package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"qlower/internal/buildpipeline"
	"qlower/internal/driver"
	"qlower/internal/project"
	"qlower/internal/version"
	"qlower/internal/watch"
)

var errBuildFailed = errors.New("build failed")

var buildCmd = &cobra.Command{
	Use:   "build [flags] [file|dir]...",
	Short: "Lower OpenQASM sources to LLVM IR and/or MIR",
	Long: `Build lowers every .qasm file found under the given paths. Without
arguments the sources listed in qlower.toml are built, and the manifest's
[build] table supplies defaults for flags that are not set explicitly.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("emit", project.EmitLLVM, "outputs to write (llvm|mir|both)")
	buildCmd.Flags().String("entry-point", "", "entry point name (default: derived from each file name)")
	buildCmd.Flags().Bool("add-main", false, "add a main(argc, argv) driving the runtime")
	buildCmd.Flags().Bool("simplify", false, "simplify the control-flow graph before emission")
	buildCmd.Flags().Int("jobs", 0, "max parallel files (0=GOMAXPROCS)")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	buildCmd.Flags().Bool("watch", false, "rebuild when sources change")
	buildCmd.Flags().Bool("no-cache", false, "disable the on-disk lowering cache")
	buildCmd.Flags().StringP("out-dir", "o", "", "output directory (default: build)")
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
}

// buildSettings is the merged view of flags and manifest defaults.
type buildSettings struct {
	targets  []string
	baseDir  string
	manifest *project.Manifest
	emit     string
	outDir   string
	options  driver.Options
}

// resolveBuildSettings merges explicitly set flags over the [build] table
// of the nearest qlower.toml.
func resolveBuildSettings(cmd *cobra.Command, args []string) (buildSettings, error) {
	var s buildSettings
	start := "."
	if len(args) > 0 {
		start = args[0]
		if info, err := os.Stat(start); err == nil && !info.IsDir() {
			start = filepath.Dir(start)
		}
	}
	manifest, found, err := project.LoadProject(start)
	if err != nil {
		return s, err
	}
	if found {
		if err := manifest.CheckToolchain(version.Version); err != nil {
			return s, err
		}
		s.manifest = manifest
		s.baseDir = manifest.Root
		s.emit = manifest.Build.Emit
		s.outDir = manifest.OutPath()
		s.options = driver.Options{
			EntryPoint: manifest.Build.EntryPoint,
			AddMain:    manifest.Build.AddMain,
			Simplify:   manifest.Build.SimplifyCFG,
		}
	}

	switch {
	case len(args) > 0:
		s.targets = args
		// A manifest entry point names one program; it does not apply to
		// explicitly listed files.
		s.options.EntryPoint = ""
	case found:
		s.targets = manifest.SourceDirs()
	default:
		return s, fmt.Errorf("no input files and no %s found", project.ManifestName)
	}
	if s.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			s.baseDir = wd
		}
	}

	flags := cmd.Flags()
	if flags.Changed("emit") || s.emit == "" {
		if s.emit, err = flags.GetString("emit"); err != nil {
			return s, err
		}
	}
	if flags.Changed("out-dir") || s.outDir == "" {
		if s.outDir, err = flags.GetString("out-dir"); err != nil {
			return s, err
		}
	}
	if flags.Changed("entry-point") {
		if s.options.EntryPoint, err = flags.GetString("entry-point"); err != nil {
			return s, err
		}
		if !project.IsValidIdent(s.options.EntryPoint) {
			return s, fmt.Errorf("invalid entry point %q", s.options.EntryPoint)
		}
	}
	if flags.Changed("add-main") {
		if s.options.AddMain, err = flags.GetBool("add-main"); err != nil {
			return s, err
		}
	}
	if flags.Changed("simplify") {
		if s.options.Simplify, err = flags.GetBool("simplify"); err != nil {
			return s, err
		}
	}
	return s, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	watchMode, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	settings, err := resolveBuildSettings(cmd, args)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var cache *driver.DiskCache
	if !noCache {
		cache, err = driver.OpenDiskCache("qlower")
		if err != nil && !g.quiet {
			fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", err)
		}
	}

	req := buildpipeline.BuildRequest{
		CompileRequest: buildpipeline.CompileRequest{
			Targets: settings.targets,
			Options: driver.CompileOptions{
				Options:        settings.options,
				MaxDiagnostics: g.maxDiagnostics,
				Cache:          cache,
				EmitTimings:    g.timings,
			},
			Jobs: jobs,
		},
		Emit:   settings.emit,
		OutDir: settings.outDir,
	}
	// Watch mode keeps the terminal for rebuild logs.
	useTUI := !watchMode && shouldUseTUI(mode, g.quiet)

	buildErr := buildOnce(cmd.Context(), g, format, settings.baseDir, &req, useTUI)
	if !watchMode {
		return buildErr
	}
	if buildErr != nil && !errors.Is(buildErr, errBuildFailed) {
		return buildErr
	}

	roots := append([]string(nil), settings.targets...)
	if settings.manifest != nil {
		roots = append(roots, filepath.Join(settings.manifest.Root, project.ManifestName))
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !g.quiet {
		fmt.Fprintf(os.Stdout, "watching %s\n", strings.Join(roots, ", "))
	}
	return watch.Run(ctx, roots, watch.Options{}, func(changed []string) {
		if !g.quiet {
			fmt.Fprintf(os.Stdout, "changed: %s\n", strings.Join(relativePaths(settings.baseDir, changed), ", "))
		}
		if err := buildOnce(ctx, g, format, settings.baseDir, &req, false); err != nil && !errors.Is(err, errBuildFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	})
}

// buildOnce runs one build and reports diagnostics, timings and outputs.
// It returns errBuildFailed when any file had errors.
func buildOnce(ctx context.Context, g globalFlags, format, baseDir string, req *buildpipeline.BuildRequest, useTUI bool) error {
	files, err := buildpipeline.CollectSources(req.Targets)
	if err != nil {
		return err
	}

	var res buildpipeline.BuildResult
	if useTUI && len(files) > 0 {
		res, err = runBuildWithUI(ctx, "qlower build", files, req)
	} else {
		res, err = buildpipeline.Build(ctx, req)
	}
	if err != nil {
		return err
	}

	if err := printDiagnostics(g, format, res.Bag(g.maxDiagnostics), res.FileSet, baseDir); err != nil {
		return err
	}
	if g.timings {
		if err := printStageTimings(os.Stdout, res.Timings); err != nil {
			return err
		}
	}
	if !g.quiet {
		for _, out := range res.Outputs {
			fmt.Fprintf(os.Stdout, "wrote %s\n", formatPathForOutput(baseDir, out.Path))
		}
	}
	if res.Failed() {
		return errBuildFailed
	}
	return nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func relativePaths(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = formatPathForOutput(root, p)
	}
	return out
}
