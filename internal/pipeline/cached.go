package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/cache"
	"boxy/internal/diag"
	"boxy/internal/mesh"
	"boxy/internal/project"
	"boxy/internal/source"
)

// cacheKey digests the script together with every setting that changes the
// meshes it produces.
func (c *compilation) cacheKey() project.Digest {
	settings := fmt.Sprintf("schema=%d segments=%d resolution=%d kernel=%T",
		cache.SchemaVersion, c.req.Segments, c.req.Resolution, c.k)
	return project.Combine(project.Digest(c.file.Hash), project.DigestString(settings))
}

func (c *compilation) fromCache() bool {
	var p cache.Payload
	hit, err := c.req.Cache.Get(c.res.Key, &p)
	if err != nil {
		diag.ReportWarning(c.reporter(), diag.CacheFailure, source.Pos{}, err.Error())
		return false
	}
	if !hit {
		return false
	}
	meshes := make([]FinishedMesh, 0, len(p.Meshes))
	for _, mp := range p.Meshes {
		m, err := meshFromPayload(mp)
		if err != nil {
			diag.ReportWarning(c.reporter(), diag.CacheFailure, source.Pos{}, err.Error())
			return false
		}
		meshes = append(meshes, FinishedMesh{Name: mp.Name, Material: mp.Material, Mesh: m, Fallback: mp.Fallback})
	}
	if len(meshes) == 0 {
		return false
	}
	c.res.Scene.Meshes = meshes
	c.res.Cached = true
	c.res.Empty = p.Empty
	if p.Empty {
		diag.ReportWarning(c.reporter(), diag.SceneEmpty, source.Pos{}, "the script registered no objects; exporting a unit cube instead")
	}
	for i, m := range meshes {
		c.emit(Event{Object: m.Name, Index: i, Stage: StageAssemble, Status: StatusCached})
	}
	c.enter(StateAssembled)
	return true
}

// store saves a clean script compile. Failed or partial results and
// results from a LoadFunc are never cached.
func (c *compilation) store() {
	if c.req.Cache == nil || c.req.Load != nil || c.res.Cached || c.res.Bag.HasErrors() {
		return
	}
	p := &cache.Payload{Script: c.file.Path, Created: time.Now().UTC(), Empty: c.res.Empty}
	for _, fm := range c.res.Scene.Meshes {
		p.Meshes = append(p.Meshes, payloadFromMesh(fm))
	}
	if err := c.req.Cache.Put(c.res.Key, p); err != nil {
		diag.ReportWarning(c.reporter(), diag.CacheFailure, source.Pos{}, fmt.Sprintf("cache write: %v", err))
	}
}

func payloadFromMesh(fm FinishedMesh) cache.MeshPayload {
	m := fm.Mesh
	mp := cache.MeshPayload{
		Name:      fm.Name,
		Material:  fm.Material,
		Fallback:  fm.Fallback,
		Positions: make([]float64, 0, 3*len(m.Positions)),
		Normals:   make([]float64, 0, 3*len(m.Normals)),
		UVs:       make([]float64, 0, 2*len(m.UVs)),
		Indices:   make([]uint32, 0, 3*len(m.Triangles)),
	}
	for _, p := range m.Positions {
		mp.Positions = append(mp.Positions, p.X, p.Y, p.Z)
	}
	for _, n := range m.Normals {
		mp.Normals = append(mp.Normals, n.X, n.Y, n.Z)
	}
	for _, uv := range m.UVs {
		mp.UVs = append(mp.UVs, uv.X, uv.Y)
	}
	for _, t := range m.Triangles {
		mp.Indices = append(mp.Indices, t[0], t[1], t[2])
	}
	return mp
}

func meshFromPayload(mp cache.MeshPayload) (*mesh.Mesh, error) {
	n := len(mp.Positions) / 3
	if len(mp.Positions)%3 != 0 || len(mp.Indices)%3 != 0 ||
		len(mp.Normals) != 3*n || len(mp.UVs) != 2*n {
		return nil, fmt.Errorf("cached mesh %q is malformed", mp.Name)
	}
	m := &mesh.Mesh{
		Positions: make([]r3.Vec, n),
		Normals:   make([]r3.Vec, n),
		UVs:       make([]r2.Vec, n),
		Triangles: make([][3]uint32, 0, len(mp.Indices)/3),
	}
	for i := range n {
		m.Positions[i] = r3.Vec{X: mp.Positions[3*i], Y: mp.Positions[3*i+1], Z: mp.Positions[3*i+2]}
		m.Normals[i] = r3.Vec{X: mp.Normals[3*i], Y: mp.Normals[3*i+1], Z: mp.Normals[3*i+2]}
		m.UVs[i] = r2.Vec{X: mp.UVs[2*i], Y: mp.UVs[2*i+1]}
	}
	for i := 0; i < len(mp.Indices); i += 3 {
		t := [3]uint32{mp.Indices[i], mp.Indices[i+1], mp.Indices[i+2]}
		for _, v := range t {
			if int(v) >= n {
				return nil, fmt.Errorf("cached mesh %q references vertex %d of %d", mp.Name, v, n)
			}
		}
		m.Triangles = append(m.Triangles, t)
	}
	return m, nil
}
