// Package pipeline compiles a scene script into finished, exportable meshes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"fortio.org/safecast"

	"boxy/internal/cache"
	"boxy/internal/diag"
	"boxy/internal/geom"
	"boxy/internal/kernel"
	"boxy/internal/kernel/implicit"
	"boxy/internal/mesh"
	"boxy/internal/observ"
	"boxy/internal/project"
	"boxy/internal/scene"
	"boxy/internal/script"
	"boxy/internal/source"
	"boxy/internal/trace"
)

// DefaultMaxDiagnostics caps the diagnostics kept per compile.
const DefaultMaxDiagnostics = 100

// FinishedMesh is one registration after triangulation and finishing.
type FinishedMesh struct {
	Name     string
	Material string
	Mesh     *mesh.Mesh
	// Fallback marks the unit cube that stands in for an empty scene.
	Fallback bool
}

// Scene is the ordered output of a compile.
type Scene struct {
	Meshes []FinishedMesh
}

// LoadFunc fills a fresh scene context. It replaces script execution when set.
type LoadFunc func(ctx context.Context, sc *scene.Context) error

// Request configures one compile.
type Request struct {
	// Path names the script. It is read from disk unless Source is set.
	Path   string
	Source []byte
	Load   LoadFunc

	// Kernel defaults to the implicit kernel at Resolution.
	Kernel     kernel.Kernel
	Resolution int
	// Segments is the default tessellation before the script changes it.
	Segments int

	Jobs           int
	MaxDiagnostics int
	Progress       ProgressSink
	Cache          *cache.DiskCache
}

// Result is what a compile produced. Script and per-object failures are
// reported in Bag; Scene always holds at least one mesh.
type Result struct {
	Scene        Scene
	State        State
	History      []State
	ScriptFailed bool
	Empty        bool
	Skipped      []string
	Cached       bool
	Key          project.Digest
	Bag          *diag.Bag
	Files        *source.FileSet
	Timings      Timings
	Report       observ.Report
	// Version is set by a Compiler to the inputs it compiled.
	Version      string
}

// OK reports whether the compile produced no error diagnostics.
func (r *Result) OK() bool { return r != nil && !r.Bag.HasErrors() }

type compilation struct {
	req   *Request
	res   *Result
	file  *source.File
	k     kernel.Kernel
	timer *observ.Timer
	tr    trace.Tracer
	span  uint64
}

// Compile runs the script and meshes everything it registered. The error
// return is reserved for problems with the request itself, an unreadable
// script and cancellation.
func Compile(ctx context.Context, req *Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing compile request")
	}
	if req.Load == nil && req.Path == "" && req.Source == nil {
		return nil, fmt.Errorf("missing script")
	}
	maxDiag := req.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = DefaultMaxDiagnostics
	}
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "compile")
	defer span.End("")

	c := &compilation{
		req:   req,
		res:   &Result{Bag: diag.NewBag(maxDiag), Files: source.NewFileSet()},
		k:     kernelFor(req),
		timer: observ.NewTimer(),
		tr:    trace.FromContext(ctx),
		span:  span.ID(),
	}
	defer func() { c.res.Report = c.timer.Report() }()
	c.enter(StateIdle)

	if req.Load == nil {
		if err := c.readScript(); err != nil {
			c.emit(Event{Index: -1, Stage: StageLoad, Status: StatusError, Err: err})
			return nil, fmt.Errorf("read script: %w", err)
		}
		if req.Cache != nil {
			c.res.Key = c.cacheKey()
			if c.fromCache() {
				return c.res, nil
			}
		}
	}

	regs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.enter(StateCollecting)
	if len(regs) == 0 {
		diag.ReportWarning(c.reporter(), diag.SceneEmpty, source.Pos{}, "the script registered no objects; exporting a unit cube instead")
		c.res.Empty = true
		c.res.Scene.Meshes = []FinishedMesh{fallback()}
	} else if err := c.mesh(ctx, regs); err != nil {
		return nil, err
	}
	c.enter(StateAssembled)
	c.store()
	return c.res, nil
}

func kernelFor(req *Request) kernel.Kernel {
	if req.Kernel != nil {
		return req.Kernel
	}
	k := implicit.New()
	if req.Resolution > 0 {
		k.Resolution = req.Resolution
		k.MaxResolution = max(k.MaxResolution, req.Resolution)
	}
	return k
}

func (c *compilation) reporter() diag.Reporter { return diag.BagReporter{Bag: c.res.Bag} }

func (c *compilation) enter(s State) {
	c.res.State = s
	c.res.History = append(c.res.History, s)
	trace.Point(c.tr, trace.ScopePass, "state", s.String(), c.span)
}

func (c *compilation) emit(evt Event) {
	if c.req.Progress != nil {
		c.req.Progress.OnEvent(evt)
	}
}

func (c *compilation) readScript() error {
	var id source.FileID
	if c.req.Source != nil {
		name := c.req.Path
		if name == "" {
			name = "<script>"
		}
		id = c.res.Files.AddVirtual(name, c.req.Source)
	} else {
		var err error
		if id, err = c.res.Files.Load(c.req.Path); err != nil {
			return err
		}
	}
	c.file = c.res.Files.Get(id)
	return nil
}

// load runs the script against a fresh context. A script failure is
// reported and loading still hands back what was registered before it.
func (c *compilation) load(ctx context.Context) ([]scene.Registration, error) {
	c.enter(StateLoading)
	start := time.Now()
	phase := c.timer.Begin(string(StageLoad))
	c.emit(Event{Index: -1, Stage: StageLoad, Status: StatusWorking})

	sc := scene.NewContext(c.k)
	sc.Reset()
	if err := sc.SetDefaultSegments(c.req.Segments); err != nil {
		return nil, err
	}
	var err error
	if c.req.Load != nil {
		err = c.req.Load(ctx, sc)
	} else {
		err = script.Run(ctx, sc, c.file.Path, c.file.Content)
	}
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	regs := sc.Registry.Entries()

	elapsed := time.Since(start)
	c.res.Timings.Set(StageLoad, elapsed)
	c.timer.End(phase, fmt.Sprintf("%d registered", len(regs)))
	if err != nil {
		c.scriptFailed(err)
		c.emit(Event{Index: -1, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: elapsed})
	} else {
		c.emit(Event{Index: -1, Stage: StageLoad, Status: StatusDone, Elapsed: elapsed})
	}
	return regs, nil
}

func (c *compilation) scriptFailed(err error) {
	var (
		pos source.Pos
		msg = err.Error()
		se  *script.Error
	)
	if errors.As(err, &se) {
		msg = se.Message()
		if c.file != nil {
			if line, convErr := safecast.Conv[uint32](se.Line); convErr == nil {
				pos = source.Pos{File: c.file.ID, Line: line}
			}
		}
	}
	d := diag.NewError(diag.ScriptExecution, pos, msg)
	if cause := classify(err); cause != diag.UnknownCode {
		d = d.WithNote(pos, cause.Title())
	}
	c.reporter().Report(d)
	c.res.ScriptFailed = true
	c.enter(StateFailed)
}

// classify maps an error to the code of its underlying category.
func classify(err error) diag.Code {
	switch {
	case errors.Is(err, geom.ErrInvalidArguments):
		return diag.GeoInvalidArguments
	case errors.Is(err, geom.ErrTypeMismatch):
		return diag.GeoTypeMismatch
	case errors.Is(err, kernel.ErrKernel):
		return diag.KernelFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return diag.KernelCancelled
	}
	return diag.UnknownCode
}

func objectName(i int, reg scene.Registration) string {
	if reg.Name != "" {
		return reg.Name
	}
	return fmt.Sprintf("%s#%d", reg.Material, i+1)
}

func jobs(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
