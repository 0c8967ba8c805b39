package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"fortio.org/safecast"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/observ"
	"qlower/internal/parser"
	"qlower/internal/source"
	"qlower/internal/trace"
)

// CompileOptions extends Options with pipeline settings.
type CompileOptions struct {
	Options
	MaxDiagnostics int
	// Cache, when set, is consulted before lowering and filled afterwards.
	Cache *DiskCache
	// EmitTimings appends an ObsTimings diagnostic with the phase report.
	EmitTimings bool
	// OnPhase receives phase boundaries; it may be nil.
	OnPhase PhaseObserver
}

// FileResult is the outcome of compiling one file. Result is nil when
// diagnostics stopped the pipeline.
type FileResult struct {
	Path    string
	FileID  source.FileID
	Program *ast.Program
	Result  *Result
	Bag     *diag.Bag
	Timing  observ.Report
	Cached  bool
}

// Failed reports whether the file produced errors.
func (r *FileResult) Failed() bool {
	return r == nil || r.Result == nil || r.Bag.HasErrors()
}

// ParseFile lexes and parses one loaded file into a fresh bag.
func ParseFile(fs *source.FileSet, id source.FileID, maxDiagnostics int) (*ast.Program, *diag.Bag, error) {
	file := fs.Get(id)
	if file == nil {
		return nil, nil, fmt.Errorf("driver: unknown file id %d", id)
	}
	maxErrors, err := safecast.Conv[uint](max(maxDiagnostics, 0))
	if err != nil {
		return nil, nil, err
	}
	bag := diag.NewBag(maxDiagnostics)
	// Parser recovery can re-report the lexer's error at the same span.
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	lx := lexer.New(file, lexer.Options{Reporter: reporter})
	res := parser.ParseFile(file, lx, parser.Options{Reporter: reporter, MaxErrors: maxErrors})
	return res.Program, bag, nil
}

// CompileFile loads path into fs and runs the whole pipeline on it.
func CompileFile(ctx context.Context, fs *source.FileSet, path string, opts CompileOptions) (*FileResult, error) {
	id, err := fs.Load(path)
	if err != nil {
		bag := diag.NewBag(opts.MaxDiagnostics)
		bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, "failed to load file: "+err.Error()))
		return &FileResult{Path: path, Bag: bag}, nil
	}
	return CompileLoaded(ctx, fs, id, opts)
}

// CompileLoaded runs the pipeline on a file already present in fs. It only
// reads from fs, so loaded files may be compiled concurrently.
func CompileLoaded(ctx context.Context, fs *source.FileSet, id source.FileID, opts CompileOptions) (*FileResult, error) {
	file := fs.Get(id)
	if file == nil {
		return nil, fmt.Errorf("driver: unknown file id %d", id)
	}
	if opts.EntryPoint == "" {
		opts.EntryPoint = EntryPointFor(file.Path)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
		opts.Tracer = tracer
	}
	span := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.CurrentSpan(ctx))
	defer span.End(file.Path)
	ctx = trace.WithSpan(ctx, span.ID())

	res := &FileResult{Path: file.Path, FileID: id}
	timer := observ.NewTimer()
	phases := phaseRunner{path: file.Path, timer: timer, observer: opts.OnPhase}
	defer func() {
		res.Timing = timer.Report()
		if opts.EmitTimings {
			appendTimingDiagnostic(res.Bag, timingPayload{Kind: "compile", Path: file.Path, TotalMS: res.Timing.TotalMS, Phases: res.Timing.Phases})
		}
	}()

	key := cacheKey(file.Hash, opts.Options)
	if opts.Cache != nil {
		done := phases.begin("cache")
		cached, hit, err := opts.Cache.GetResult(key)
		done(fmt.Sprintf("hit=%t", hit))
		if err != nil {
			trace.Point(tracer, trace.ScopeDriver, "cache.error", err.Error(), span.ID())
		}
		if hit {
			res.Bag = diag.NewBag(opts.MaxDiagnostics)
			res.Result = cached
			res.Cached = true
			return res, nil
		}
	}

	done := phases.begin("parse")
	prog, bag, err := ParseFile(fs, id, opts.MaxDiagnostics)
	done("")
	if err != nil {
		return nil, err
	}
	res.Program = prog
	res.Bag = bag
	if bag.HasErrors() {
		return res, nil
	}

	done = phases.begin("lower")
	out, err := Generate(ctx, prog, opts.Options)
	if err != nil {
		done("failed")
		addOrGrow(bag, Diagnostic(err))
		return res, nil
	}
	done(fmt.Sprintf("%d funcs", len(out.Module.Funcs)))
	res.Result = out

	if opts.Cache != nil {
		if err := opts.Cache.PutResult(key, out); err != nil {
			trace.Point(tracer, trace.ScopeDriver, "cache.error", err.Error(), span.ID())
		}
	}
	return res, nil
}

// CompileSource compiles an in-memory program; used by tests and stdin.
func CompileSource(ctx context.Context, name string, src []byte, opts CompileOptions) (*source.FileSet, *FileResult, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	res, err := CompileLoaded(ctx, fs, id, opts)
	return fs, res, err
}

// EntryPointFor derives an entry point name from a file path: the base
// name without extension, with every non-identifier rune replaced by '_'.
func EntryPointFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var sb strings.Builder
	for i, r := range base {
		switch {
		case r == '_' || unicode.IsLetter(r):
			sb.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return DefaultEntryPoint
	}
	return sb.String()
}

type phaseRunner struct {
	path     string
	timer    *observ.Timer
	observer PhaseObserver
}

// begin starts a phase and returns the function that ends it.
func (p phaseRunner) begin(name string) func(note string) {
	idx := p.timer.Begin(name)
	start := time.Now()
	if p.observer != nil {
		p.observer(PhaseEvent{Path: p.path, Name: name, Status: PhaseStart})
	}
	return func(note string) {
		p.timer.End(idx, note)
		if p.observer != nil {
			p.observer(PhaseEvent{Path: p.path, Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
		}
	}
}
