package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
)

// Builder constructs primitives for one compile. It carries the kernel and
// the default circular resolution; it is not safe for concurrent use.
type Builder struct {
	k        kernel.Kernel
	segments int
}

func NewBuilder(k kernel.Kernel) *Builder {
	return &Builder{k: k}
}

func (b *Builder) Kernel() kernel.Kernel { return b.k }

// SetDefaultSegments sets the resolution used when a primitive is given 0
// segments. 0 restores the kernel default.
func (b *Builder) SetDefaultSegments(n int) error {
	if n < 0 {
		return invalidf("segments must be >= 0, got %d", n)
	}
	b.segments = n
	return nil
}

func (b *Builder) DefaultSegments() int { return b.segments }

func (b *Builder) resolve(segments int) (int, error) {
	switch {
	case segments < 0:
		return 0, invalidf("segments must be >= 0, got %d", segments)
	case segments == 0:
		return b.segments, nil
	default:
		return segments, nil
	}
}

// Box builds a cuboid of the given size, centred on the origin or with its
// minimum corner there.
func (b *Builder) Box(size r3.Vec, center bool) (Solid, error) {
	body, err := b.k.Cube(size, center)
	if err != nil {
		return Solid{}, err
	}
	return NewSolid(b.k, body), nil
}

func (b *Builder) Sphere(radius float64, segments int) (Solid, error) {
	n, err := b.resolve(segments)
	if err != nil {
		return Solid{}, err
	}
	body, err := b.k.Sphere(radius, n)
	if err != nil {
		return Solid{}, err
	}
	return NewSolid(b.k, body), nil
}

// CylinderParams describes a cylinder or cone along Z. Each end takes a
// radius or a diameter; a radius wins over a diameter, and an end left unset
// copies the other one.
type CylinderParams struct {
	Height   float64
	R1, R2   *float64
	D1, D2   *float64
	Center   bool
	Segments int
}

// Float returns a pointer to v, for optional CylinderParams fields.
func Float(v float64) *float64 { return &v }

// Radii resolves the bottom and top radius.
func (p CylinderParams) Radii() (r1, r2 float64, err error) {
	end := func(r, d *float64) *float64 {
		if r != nil {
			return r
		}
		if d != nil {
			return Float(*d / 2)
		}
		return nil
	}
	a, c := end(p.R1, p.D1), end(p.R2, p.D2)
	switch {
	case a == nil && c == nil:
		return 0, 0, invalidf("cylinder: no radius or diameter given")
	case a == nil:
		a = c
	case c == nil:
		c = a
	}
	return *a, *c, nil
}

func (b *Builder) Cylinder(p CylinderParams) (Solid, error) {
	r1, r2, err := p.Radii()
	if err != nil {
		return Solid{}, err
	}
	n, err := b.resolve(p.Segments)
	if err != nil {
		return Solid{}, err
	}
	body, err := b.k.Cylinder(p.Height, r1, r2, n, p.Center)
	if err != nil {
		return Solid{}, err
	}
	return NewSolid(b.k, body), nil
}

func (b *Builder) Rectangle(size r2.Vec, center bool) (Profile, error) {
	sec, err := b.k.Square(size, center)
	if err != nil {
		return Profile{}, err
	}
	return NewProfile(b.k, sec), nil
}

func (b *Builder) Circle(radius float64, segments int) (Profile, error) {
	n, err := b.resolve(segments)
	if err != nil {
		return Profile{}, err
	}
	sec, err := b.k.Circle(radius, n)
	if err != nil {
		return Profile{}, err
	}
	return NewProfile(b.k, sec), nil
}

// RoundedRectangle is the hull of four circles of radius r inset by r from
// each edge of a size.X by size.Y rectangle.
func (b *Builder) RoundedRectangle(r float64, size r2.Vec, segments int, center bool) (Profile, error) {
	if !(r > 0) || r > math.Min(size.X, size.Y)/2 {
		return Profile{}, invalidf("rounded rectangle: corner radius %g does not fit %gx%g", r, size.X, size.Y)
	}
	circle, err := b.Circle(r, segments)
	if err != nil {
		return Profile{}, err
	}
	corners := RoundedCorners(r, size, center)
	parts := make([]Profile, len(corners))
	for i, c := range corners {
		if parts[i], err = circle.Translate(c); err != nil {
			return Profile{}, err
		}
	}
	return HullProfiles(parts...)
}

// RoundedCorners returns the circle centres RoundedRectangle hulls.
func RoundedCorners(r float64, size r2.Vec, center bool) [4]r2.Vec {
	dx, dy := size.X/2-r, size.Y/2-r
	var off r2.Vec
	if !center {
		off = r2.Scale(0.5, size)
	}
	return [4]r2.Vec{
		r2.Add(off, r2.Vec{X: -dx, Y: -dy}),
		r2.Add(off, r2.Vec{X: dx, Y: -dy}),
		r2.Add(off, r2.Vec{X: dx, Y: dy}),
		r2.Add(off, r2.Vec{X: -dx, Y: dy}),
	}
}
