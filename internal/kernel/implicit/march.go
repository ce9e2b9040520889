package implicit

import (
	"context"
	"math"

	"fortio.org/safecast"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
)

// cubeTets splits a grid cell into six tetrahedra around the 0-7 diagonal.
// Corner c sits at offset (c&1, c>>1&1, c>>2&1). The split is the same in
// every cell, so neighbouring cells share faces and the surface is closed.
var cubeTets = [6][4]int{
	{0, 1, 3, 7},
	{0, 3, 2, 7},
	{0, 2, 6, 7},
	{0, 6, 4, 7},
	{0, 4, 5, 7},
	{0, 5, 1, 7},
}

type mesher struct {
	origin     r3.Vec
	cell       float64
	nx, ny, nz int
	values     []float64

	verts  []float64
	tris   []uint32
	edges  map[uint64]uint32
	onGrid map[int]uint32
	err    error
}

func (m *mesher) index(i, j, k int) int { return i + m.nx*(j+m.ny*k) }

func (m *mesher) point(idx int) r3.Vec {
	i := idx % m.nx
	j := (idx / m.nx) % m.ny
	k := idx / (m.nx * m.ny)
	return r3.Vec{
		X: m.origin.X + float64(i)*m.cell,
		Y: m.origin.Y + float64(j)*m.cell,
		Z: m.origin.Z + float64(k)*m.cell,
	}
}

// triangulate samples s on a grid with res cells along its longest side.
func triangulate(ctx context.Context, s SDF3, res int) (kernel.RawMesh, error) {
	out := kernel.RawMesh{NumProp: 3}
	b := s.Bounds()
	if isFlat3(b) {
		return out, nil
	}
	size := b.Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	cell := longest / float64(res)
	m := &mesher{
		origin: r3.Sub(b.Min, r3.Vec{X: cell, Y: cell, Z: cell}),
		cell:   cell,
		nx:     int(math.Ceil(size.X/cell)) + 3,
		ny:     int(math.Ceil(size.Y/cell)) + 3,
		nz:     int(math.Ceil(size.Z/cell)) + 3,
		edges:  make(map[uint64]uint32),
		onGrid: make(map[int]uint32),
	}
	m.values = make([]float64, m.nx*m.ny*m.nz)
	for k := 0; k < m.nz; k++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for j := 0; j < m.ny; j++ {
			for i := 0; i < m.nx; i++ {
				idx := m.index(i, j, k)
				m.values[idx] = s.Evaluate(m.point(idx))
			}
		}
	}

	var corner [8]int
	for k := 0; k+1 < m.nz; k++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for j := 0; j+1 < m.ny; j++ {
			for i := 0; i+1 < m.nx; i++ {
				inside := 0
				for c := range corner {
					corner[c] = m.index(i+(c&1), j+((c>>1)&1), k+((c>>2)&1))
					if m.values[corner[c]] < 0 {
						inside++
					}
				}
				if inside == 0 || inside == 8 {
					continue
				}
				for _, t := range cubeTets {
					m.tet([4]int{corner[t[0]], corner[t[1]], corner[t[2]], corner[t[3]]})
				}
				if m.err != nil {
					return out, m.err
				}
			}
		}
	}
	out.VertProperties = m.verts
	out.TriVerts = m.tris
	return out, nil
}

func (m *mesher) tet(ids [4]int) {
	var in, out [4]int
	ni, no := 0, 0
	for _, id := range ids {
		if m.values[id] < 0 {
			in[ni] = id
			ni++
		} else {
			out[no] = id
			no++
		}
	}
	// Winding comes from the tetrahedron's corners, never from the crossing
	// points: those can coincide when a sample lies on the surface.
	switch ni {
	case 1:
		a := in[0]
		flip := m.orient(a, out[0], out[1], out[2]) < 0
		m.emit(m.edge(a, out[0]), m.edge(a, out[1]), m.edge(a, out[2]), flip)
	case 3:
		o := out[0]
		flip := m.orient(o, in[0], in[1], in[2]) > 0
		m.emit(m.edge(in[0], o), m.edge(in[1], o), m.edge(in[2], o), flip)
	case 2:
		a, b, c, d := in[0], in[1], out[0], out[1]
		ac, ad, bd, bc := m.edge(a, c), m.edge(a, d), m.edge(b, d), m.edge(b, c)
		flip := m.orient(a, c, d, b) < 0
		m.emit(ac, ad, bd, flip)
		m.emit(ac, bd, bc, flip)
	}
}

// orient is the sign of det(p-o, q-o, r-o) for grid points o, p, q, r.
func (m *mesher) orient(o, p, q, r int) float64 {
	po := m.point(o)
	return r3.Dot(r3.Sub(m.point(p), po), r3.Cross(r3.Sub(m.point(q), po), r3.Sub(m.point(r), po)))
}

// edge returns the vertex where the surface crosses the edge between the
// inside grid point a and the outside grid point b. A crossing exactly at b
// reuses b's vertex so every triangle touching b shares it.
func (m *mesher) edge(a, b int) uint32 {
	va, vb := m.values[a], m.values[b]
	if vb == 0 {
		if v, ok := m.onGrid[b]; ok {
			return v
		}
		id := m.add(m.point(b))
		m.onGrid[b] = id
		return id
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := uint64(lo)*uint64(len(m.values)) + uint64(hi)
	if v, ok := m.edges[key]; ok {
		return v
	}
	t := va / (va - vb)
	id := m.add(r3.Add(m.point(a), r3.Scale(t, r3.Sub(m.point(b), m.point(a)))))
	m.edges[key] = id
	return id
}

func (m *mesher) add(p r3.Vec) uint32 {
	id, err := safecast.Conv[uint32](len(m.verts) / 3)
	if err != nil && m.err == nil {
		m.err = kernel.Errorf("triangulate", "vertex count overflow: %v", err)
	}
	m.verts = append(m.verts, p.X, p.Y, p.Z)
	return id
}

// emit appends a triangle, reversed when flip is set. Triangles that
// collapse onto a shared grid vertex are dropped; their edges cancel.
func (m *mesher) emit(a, b, c uint32, flip bool) {
	if a == b || b == c || a == c {
		return
	}
	if flip {
		b, c = c, b
	}
	m.tris = append(m.tris, a, b, c)
}
