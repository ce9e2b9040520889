package mesh

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// UVMapper computes one texture coordinate per vertex of m.
type UVMapper interface {
	MapUV(m *Mesh) ([]r2.Vec, error)
}

// UVMapperFunc adapts a plain function to UVMapper.
type UVMapperFunc func(m *Mesh) ([]r2.Vec, error)

func (f UVMapperFunc) MapUV(m *Mesh) ([]r2.Vec, error) { return f(m) }

// ApplyUV runs mapper over m and stores the result. A nil mapper means BoxMapper.
func ApplyUV(m *Mesh, mapper UVMapper) error {
	if mapper == nil {
		mapper = BoxMapper{}
	}
	uvs, err := mapper.MapUV(m)
	if err != nil {
		return err
	}
	if len(uvs) != len(m.Positions) {
		return errors.New("uv mapper returned wrong number of coordinates")
	}
	m.UVs = uvs
	return nil
}

// BoxMapper projects each face onto the bounding-box plane facing its
// dominant normal axis and averages the projections per vertex, weighted by
// face area.
type BoxMapper struct{}

func (BoxMapper) MapUV(m *Mesh) ([]r2.Vec, error) {
	box := m.Bounds()
	sums := make([]r2.Vec, len(m.Positions))
	weights := make([]float64, len(m.Positions))
	for i, t := range m.Triangles {
		tri := m.Triangle(i)
		cross := r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0]))
		area := r3.Norm(cross) / 2
		if area == 0 {
			continue
		}
		for _, v := range t {
			uv := BoxProject(m.Positions[v], cross, box)
			sums[v] = r2.Add(sums[v], r2.Scale(area, uv))
			weights[v] += area
		}
	}
	for i, w := range weights {
		if w > 0 {
			sums[i] = r2.Scale(1/w, sums[i])
		}
	}
	return sums, nil
}

// BoxProject maps p into the unit square of box along the dominant axis of
// normal. Zero extents count as 1. Ties prefer X, then Y.
func BoxProject(p, normal r3.Vec, box r3.Box) r2.Vec {
	size := box.Size()
	extent := func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return v
	}
	q := r3.Vec{
		X: (p.X - box.Min.X) / extent(size.X),
		Y: (p.Y - box.Min.Y) / extent(size.Y),
		Z: (p.Z - box.Min.Z) / extent(size.Z),
	}
	ax, ay, az := math.Abs(normal.X), math.Abs(normal.Y), math.Abs(normal.Z)
	switch {
	case ax >= ay && ax >= az:
		return r2.Vec{X: q.Y, Y: q.Z}
	case ay >= az:
		return r2.Vec{X: q.X, Y: q.Z}
	default:
		return r2.Vec{X: q.X, Y: q.Y}
	}
}

// CylindricalMapper wraps U around Axis through Origin and runs V along it.
// Zero scales default to one turn per unit U and one unit per unit V.
type CylindricalMapper struct {
	Axis   r3.Vec
	Origin r3.Vec
	ScaleU float64
	ScaleV float64
	// Offset is added to the angle, in radians, before scaling.
	Offset float64
}

func (c CylindricalMapper) MapUV(m *Mesh) ([]r2.Vec, error) {
	axis := c.Axis
	if r3.Norm(axis) == 0 {
		axis = r3.Vec{Z: 1}
	}
	axis = r3.Unit(axis)
	su, sv := c.ScaleU, c.ScaleV
	if su == 0 {
		su = 1 / (2 * math.Pi)
	}
	if sv == 0 {
		sv = 1
	}
	// Any vector not parallel to the axis gives a reference frame.
	ref := r3.Vec{X: 1}
	if math.Abs(axis.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	e1 := r3.Unit(r3.Sub(ref, r3.Scale(r3.Dot(ref, axis), axis)))
	e2 := r3.Cross(axis, e1)

	uvs := make([]r2.Vec, len(m.Positions))
	for i, p := range m.Positions {
		d := r3.Sub(p, c.Origin)
		angle := math.Atan2(r3.Dot(d, e2), r3.Dot(d, e1))
		uvs[i] = r2.Vec{X: (angle + c.Offset) * su, Y: r3.Dot(d, axis) * sv}
	}
	return uvs, nil
}
