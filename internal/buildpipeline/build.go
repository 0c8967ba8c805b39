// Package buildpipeline orchestrates multi-file builds: source discovery,
// parallel lowering through the driver, and writing .ll and .mir outputs.
package buildpipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qlower/internal/backend/llvm"
	"qlower/internal/diag"
	"qlower/internal/driver"
	"qlower/internal/mir"
	"qlower/internal/project"
	"qlower/internal/source"
)

// BuildRequest configures output generation for a compilation.
type BuildRequest struct {
	CompileRequest
	// Emit is one of project.EmitLLVM, EmitMIR or EmitBoth.
	Emit   string
	OutDir string
}

// Output is one written artefact.
type Output struct {
	Source string
	Path   string
	Kind   string
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	CompileResult
	Outputs []Output
}

// Build compiles every target and writes outputs for the files that
// lowered cleanly. Files with errors are skipped; their diagnostics stay
// in the per-file bags.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	emitLLVM, emitMIR, err := emitKinds(req.Emit)
	if err != nil {
		return result, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = "build"
	}

	compileRes, err := Compile(ctx, &req.CompileRequest)
	result.CompileResult = compileRes
	if err != nil {
		return result, err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return result, fmt.Errorf("failed to create output dir: %w", err)
	}

	stems := make(map[string]int)
	for _, res := range compileRes.Files {
		if res.Failed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		emitStage(req.Progress, res.Path, StageEmit, StatusWorking, nil, 0)
		start := time.Now()
		stem := filepath.Join(outDir, uniqueStem(stems, outputStem(res.Path)))

		outs, err := writeOutputs(res, stem, emitLLVM, emitMIR)
		result.Outputs = append(result.Outputs, outs...)
		elapsed := time.Since(start)
		result.Timings.Add(StageEmit, elapsed)
		if err != nil {
			res.Bag.Add(diag.NewError(diag.IOWriteFileError, source.Span{File: res.FileID}, err.Error()))
			emitStage(req.Progress, res.Path, StageEmit, StatusError, err, elapsed)
			continue
		}
		emitStage(req.Progress, res.Path, StageEmit, StatusDone, nil, elapsed)
	}
	return result, nil
}

func emitKinds(emit string) (llvmOut, mirOut bool, err error) {
	switch emit {
	case "", project.EmitLLVM:
		return true, false, nil
	case project.EmitMIR:
		return false, true, nil
	case project.EmitBoth:
		return true, true, nil
	}
	return false, false, fmt.Errorf("unknown emit kind %q (want llvm, mir or both)", emit)
}

// outputStem names outputs after the source file without its extension.
func outputStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// uniqueStem suffixes repeated stems so same-named files from different
// directories do not overwrite each other.
func uniqueStem(used map[string]int, stem string) string {
	n := used[stem]
	used[stem] = n + 1
	if n == 0 {
		return stem
	}
	return fmt.Sprintf("%s_%d", stem, n)
}

func writeOutputs(res *driver.FileResult, stem string, emitLLVM, emitMIR bool) ([]Output, error) {
	var outs []Output
	if emitMIR {
		var buf bytes.Buffer
		if err := mir.DumpModule(&buf, res.Result.Module, mir.DumpOptions{}); err != nil {
			return outs, fmt.Errorf("dump MIR: %w", err)
		}
		path := stem + ".mir"
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return outs, err
		}
		outs = append(outs, Output{Source: res.Path, Path: path, Kind: project.EmitMIR})
	}
	if emitLLVM {
		text, err := llvm.EmitText(res.Result.Module)
		if err != nil {
			return outs, err
		}
		path := stem + ".ll"
		if err := writeFileAtomic(path, []byte(text)); err != nil {
			return outs, err
		}
		outs = append(outs, Output{Source: res.Path, Path: path, Kind: project.EmitLLVM})
	}
	return outs, nil
}

// writeFileAtomic writes through a temp file in the target directory so
// readers never observe a partial output.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
