package buildpipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"qlower/internal/diag"
	"qlower/internal/driver"
	"qlower/internal/source"
)

// CompileRequest configures the shared compilation pipeline.
type CompileRequest struct {
	// Targets are .qasm files or directories searched recursively.
	Targets  []string
	Options  driver.CompileOptions
	Jobs     int
	Progress ProgressSink
}

// CompileResult holds per-file results in source order.
type CompileResult struct {
	FileSet *source.FileSet
	Files   []*driver.FileResult
	Timings Timings
}

// Failed reports whether any file produced errors.
func (r CompileResult) Failed() bool {
	for _, f := range r.Files {
		if f.Failed() {
			return true
		}
	}
	return false
}

// Bag merges every file's diagnostics into one bag; limit is the initial
// capacity and grows as files are merged.
func (r CompileResult) Bag(limit int) *diag.Bag {
	bag := diag.NewBag(limit)
	for _, f := range r.Files {
		if f != nil && f.Bag != nil {
			bag.Merge(f.Bag)
		}
	}
	return bag
}

// CollectSources expands targets into a sorted, de-duplicated file list.
func CollectSources(targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, target := range targets {
		found, err := driver.ListSources(target)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			f = filepath.ToSlash(filepath.Clean(f))
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Compile parses and lowers every target file.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	if len(req.Targets) == 0 {
		return result, fmt.Errorf("missing target path")
	}
	files, err := CollectSources(req.Targets)
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		return result, fmt.Errorf("no %s files under %s", driver.SourceExt, strings.Join(req.Targets, ", "))
	}

	emitQueued(req.Progress, files)
	opts := req.Options
	opts.OnPhase = chainObservers(opts.OnPhase, (&phaseObserver{sink: req.Progress}).OnPhase)

	fs, results, err := driver.GenerateFiles(ctx, files, opts, req.Jobs)
	result.FileSet = fs
	result.Files = results
	if err != nil {
		emitStage(req.Progress, "", StageLower, StatusError, err, 0)
		return result, err
	}
	for _, res := range results {
		recordTimings(&result.Timings, res)
		if res.Failed() {
			emitStage(req.Progress, res.Path, StageLower, StatusError, fmt.Errorf("%d diagnostics", res.Bag.Len()), 0)
		}
	}
	return result, nil
}

func chainObservers(obs ...driver.PhaseObserver) driver.PhaseObserver {
	return func(ev driver.PhaseEvent) {
		for _, o := range obs {
			if o != nil {
				o(ev)
			}
		}
	}
}

type phaseObserver struct {
	sink ProgressSink
}

// OnPhase turns driver phase boundaries into per-file progress events.
func (p *phaseObserver) OnPhase(ev driver.PhaseEvent) {
	if p == nil || p.sink == nil {
		return
	}
	stage := Stage(ev.Name)
	switch stage {
	case StageCache, StageParse, StageLower:
	default:
		return
	}
	if ev.Status == driver.PhaseStart {
		emitStage(p.sink, ev.Path, stage, StatusWorking, nil, 0)
		return
	}
	emitStage(p.sink, ev.Path, stage, StatusDone, nil, ev.Elapsed)
}

func recordTimings(t *Timings, res *driver.FileResult) {
	if res == nil {
		return
	}
	for _, phase := range res.Timing.Phases {
		t.Add(Stage(phase.Name), durationFromMillis(phase.DurationMS))
	}
}

func durationFromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageParse, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
