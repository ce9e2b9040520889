// Package mesh holds indexed triangle meshes and the finishing passes that
// turn a raw kernel triangulation into a renderable mesh.
package mesh

import (
	"fmt"
	"math"

	"fortio.org/safecast"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
)

// Mesh is an indexed triangle mesh. Normals and UVs, when present, have one
// entry per position.
type Mesh struct {
	Positions []r3.Vec
	Triangles [][3]uint32
	Normals   []r3.Vec
	UVs       []r2.Vec
}

// FromRaw converts a kernel buffer into a Mesh.
func FromRaw(raw kernel.RawMesh) (*Mesh, error) {
	if raw.NumProp < 3 {
		return nil, fmt.Errorf("raw mesh: %d properties per vertex, need at least 3", raw.NumProp)
	}
	if len(raw.VertProperties)%raw.NumProp != 0 {
		return nil, fmt.Errorf("raw mesh: %d properties is not a multiple of %d", len(raw.VertProperties), raw.NumProp)
	}
	if len(raw.TriVerts)%3 != 0 {
		return nil, fmt.Errorf("raw mesh: %d triangle indices is not a multiple of 3", len(raw.TriVerts))
	}
	n := raw.NumVert()
	m := &Mesh{
		Positions: make([]r3.Vec, n),
		Triangles: make([][3]uint32, 0, raw.NumTri()),
	}
	for i := range m.Positions {
		o := i * raw.NumProp
		m.Positions[i] = r3.Vec{X: raw.VertProperties[o], Y: raw.VertProperties[o+1], Z: raw.VertProperties[o+2]}
	}
	for t := 0; t < len(raw.TriVerts); t += 3 {
		tri := [3]uint32{raw.TriVerts[t], raw.TriVerts[t+1], raw.TriVerts[t+2]}
		for _, v := range tri {
			if int(v) >= n {
				return nil, fmt.Errorf("raw mesh: triangle %d references vertex %d of %d", t/3, v, n)
			}
		}
		m.Triangles = append(m.Triangles, tri)
	}
	return m, nil
}

// Triangle returns the geometry of triangle i.
func (m *Mesh) Triangle(i int) r3.Triangle {
	t := m.Triangles[i]
	return r3.Triangle{m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]}
}

// Bounds returns the axis-aligned bounding box of all positions.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Positions) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// Volume returns the signed enclosed volume; positive for outward winding.
func (m *Mesh) Volume() float64 {
	var vol float64
	for i := range m.Triangles {
		t := m.Triangle(i)
		vol += r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
	}
	return vol
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var area float64
	for i := range m.Triangles {
		area += m.Triangle(i).Area()
	}
	return area
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Positions: append([]r3.Vec(nil), m.Positions...),
		Triangles: append([][3]uint32(nil), m.Triangles...),
		Normals:   append([]r3.Vec(nil), m.Normals...),
		UVs:       append([]r2.Vec(nil), m.UVs...),
	}
}

// Dedup welds vertices with identical positions, then drops collapsed
// triangles, triangles repeating an already seen vertex set, and vertices no
// triangle references. The input is left untouched.
func Dedup(m *Mesh) *Mesh {
	weld := make(map[r3.Vec]uint32, len(m.Positions))
	remap := make([]uint32, len(m.Positions))
	var welded []r3.Vec
	for i, p := range m.Positions {
		id, ok := weld[p]
		if !ok {
			id = uint32(len(welded))
			weld[p] = id
			welded = append(welded, p)
		}
		remap[i] = id
	}

	type faceKey [3]uint32
	seen := make(map[faceKey]struct{}, len(m.Triangles))
	faces := make([][3]uint32, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		f := [3]uint32{remap[t[0]], remap[t[1]], remap[t[2]]}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		key := sortedFace(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		faces = append(faces, f)
	}

	used := make([]bool, len(welded))
	for _, f := range faces {
		used[f[0]], used[f[1]], used[f[2]] = true, true, true
	}
	compact := make([]uint32, len(welded))
	out := &Mesh{Positions: make([]r3.Vec, 0, len(welded)), Triangles: faces}
	for i, p := range welded {
		if !used[i] {
			continue
		}
		compact[i] = uint32(len(out.Positions))
		out.Positions = append(out.Positions, p)
	}
	for i := range out.Triangles {
		for j := range out.Triangles[i] {
			out.Triangles[i][j] = compact[out.Triangles[i][j]]
		}
	}
	return out
}

func sortedFace(f [3]uint32) [3]uint32 {
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	if f[1] > f[2] {
		f[1], f[2] = f[2], f[1]
	}
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	return f
}

// Flat returns the mesh as flat float32 position, normal and UV arrays and
// uint32 indices, the layout GPU buffers expect.
func (m *Mesh) Flat() (positions, normals, uvs []float32, indices []uint32, err error) {
	if _, err = safecast.Conv[uint32](len(m.Positions)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("mesh too large: %w", err)
	}
	positions = make([]float32, 0, 3*len(m.Positions))
	for _, p := range m.Positions {
		positions = append(positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	if len(m.Normals) == len(m.Positions) {
		normals = make([]float32, 0, 3*len(m.Normals))
		for _, n := range m.Normals {
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	if len(m.UVs) == len(m.Positions) {
		uvs = make([]float32, 0, 2*len(m.UVs))
		for _, uv := range m.UVs {
			uvs = append(uvs, float32(uv.X), float32(uv.Y))
		}
	}
	indices = make([]uint32, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	return positions, normals, uvs, indices, nil
}

// UnitCube returns a closed, outward-wound cube of edge 1 centred at the origin.
func UnitCube() *Mesh {
	m := &Mesh{Positions: make([]r3.Vec, 8)}
	for i := range m.Positions {
		m.Positions[i] = r3.Vec{
			X: float64(i&1) - 0.5,
			Y: float64((i>>1)&1) - 0.5,
			Z: float64((i>>2)&1) - 0.5,
		}
	}
	m.Triangles = [][3]uint32{
		{0, 2, 1}, {1, 2, 3}, // -Z
		{4, 5, 6}, {5, 7, 6}, // +Z
		{0, 1, 4}, {1, 5, 4}, // -Y
		{2, 6, 3}, {3, 6, 7}, // +Y
		{0, 4, 2}, {2, 4, 6}, // -X
		{1, 3, 5}, {3, 7, 5}, // +X
	}
	return m
}
