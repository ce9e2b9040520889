package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"boxy/internal/diag"
	"boxy/internal/mesh"
	"boxy/internal/scene"
	"boxy/internal/source"
	"boxy/internal/trace"
)

type slot struct {
	name  string
	mesh  *mesh.Mesh
	code  diag.Code
	err   error
	empty bool
}

// mesh triangulates and finishes every registration. One failing object is
// reported and skipped; only cancellation aborts the whole compile.
func (c *compilation) mesh(ctx context.Context, regs []scene.Registration) error {
	slots := make([]slot, len(regs))
	for i, reg := range regs {
		slots[i].name = objectName(i, reg)
		c.emit(Event{Object: slots[i].name, Index: i, Stage: StageTriangulate, Status: StatusQueued})
	}

	c.enter(StateTriangulating)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs(c.req.Jobs))
	for i := range regs {
		g.Go(func() error {
			return c.triangulate(gctx, i, regs[i], &slots[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.res.Timings.Set(StageTriangulate, time.Since(start))

	c.enter(StateFinishing)
	start = time.Now()
	for i, reg := range regs {
		if slots[i].err == nil && !slots[i].empty {
			c.finish(i, reg, &slots[i])
		}
	}
	c.res.Timings.Set(StageFinish, time.Since(start))

	start = time.Now()
	for i, reg := range regs {
		s := &slots[i]
		if s.err != nil {
			c.reporter().Report(diag.NewError(s.code, source.Pos{}, s.err.Error()).WithObject(s.name))
			c.res.Skipped = append(c.res.Skipped, s.name)
			continue
		}
		if s.empty {
			c.reporter().Report(diag.New(diag.SevWarning, diag.MeshEmpty, source.Pos{}, "geometry is empty; object skipped").WithObject(s.name))
			c.res.Skipped = append(c.res.Skipped, s.name)
			continue
		}
		c.res.Scene.Meshes = append(c.res.Scene.Meshes, FinishedMesh{Name: reg.Name, Material: reg.Material, Mesh: s.mesh})
	}
	if len(c.res.Scene.Meshes) == 0 {
		diag.ReportWarning(c.reporter(), diag.SceneEmpty, source.Pos{}, "no object produced a drawable mesh; exporting a unit cube instead")
		c.res.Empty = true
		c.res.Scene.Meshes = []FinishedMesh{fallback()}
	}
	c.res.Timings.Set(StageAssemble, time.Since(start))
	return nil
}

func (c *compilation) triangulate(ctx context.Context, i int, reg scene.Registration, s *slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := trace.Start(trace.WithObject(ctx, s.name), trace.ScopeObject, "triangulate")
	phase := c.timer.Begin(string(StageTriangulate) + "/" + s.name)
	c.emit(Event{Object: s.name, Index: i, Stage: StageTriangulate, Status: StatusWorking})
	start := time.Now()

	raw, err := reg.Solid.Mesh(ctx)
	if err == nil {
		var m *mesh.Mesh
		if m, err = mesh.FromRaw(raw); err == nil {
			s.mesh = mesh.Dedup(m)
		}
	}
	elapsed := time.Since(start)
	if err != nil {
		c.timer.End(phase, "failed")
		span.End(err.Error())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.code, s.err = diag.KernelFailure, fmt.Errorf("triangulate: %w", err)
		c.emit(Event{Object: s.name, Index: i, Stage: StageTriangulate, Status: StatusError, Err: err, Elapsed: elapsed})
		return nil
	}
	s.empty = len(s.mesh.Triangles) == 0
	note := fmt.Sprintf("%d triangles", len(s.mesh.Triangles))
	c.timer.End(phase, note)
	span.End(note)
	c.emit(Event{Object: s.name, Index: i, Stage: StageTriangulate, Status: StatusDone, Elapsed: elapsed})
	return nil
}

func (c *compilation) finish(i int, reg scene.Registration, s *slot) {
	phase := c.timer.Begin(string(StageFinish) + "/" + s.name)
	c.emit(Event{Object: s.name, Index: i, Stage: StageFinish, Status: StatusWorking})
	start := time.Now()

	mesh.ComputeNormals(s.mesh)
	err := mesh.ApplyUV(s.mesh, reg.Mapper())
	elapsed := time.Since(start)
	if err != nil {
		c.timer.End(phase, "failed")
		s.code, s.err = diag.MeshFinish, fmt.Errorf("uv: %w", err)
		c.emit(Event{Object: s.name, Index: i, Stage: StageFinish, Status: StatusError, Err: err, Elapsed: elapsed})
		return
	}
	c.timer.End(phase, "")
	c.emit(Event{Object: s.name, Index: i, Stage: StageFinish, Status: StatusDone, Elapsed: elapsed})
}

// fallback is the finished unit cube exported in place of an empty scene.
func fallback() FinishedMesh {
	m := mesh.UnitCube()
	mesh.ComputeNormals(m)
	_ = mesh.ApplyUV(m, mesh.BoxMapper{})
	return FinishedMesh{Material: scene.DefaultMaterial, Mesh: m, Fallback: true}
}
