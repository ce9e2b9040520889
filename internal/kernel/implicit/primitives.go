package implicit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	defaultRoundSamples = 64
	circleSamples       = 128
)

type box3 struct {
	center, half r3.Vec
}

func (b box3) Evaluate(p r3.Vec) float64 {
	q := r3.Vec{
		X: math.Abs(p.X-b.center.X) - b.half.X,
		Y: math.Abs(p.Y-b.center.Y) - b.half.Y,
		Z: math.Abs(p.Z-b.center.Z) - b.half.Z,
	}
	outside := r3.Norm(r3.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)})
	inside := math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
	return outside + inside
}

func (b box3) Bounds() r3.Box {
	return r3.Box{Min: r3.Sub(b.center, b.half), Max: r3.Add(b.center, b.half)}
}

type sphere3 struct {
	radius float64
}

func (s sphere3) Evaluate(p r3.Vec) float64 { return r3.Norm(p) - s.radius }

func (s sphere3) Bounds() r3.Box {
	r := s.radius
	return r3.Box{Min: r3.Vec{X: -r, Y: -r, Z: -r}, Max: r3.Vec{X: r, Y: r, Z: r}}
}

func spherePoints(radius float64, segments int) []r3.Vec {
	n := segments
	if n <= 0 {
		n = defaultRoundSamples / 2
	}
	rings := n/2 + 1
	pts := make([]r3.Vec, 0, rings*n)
	for i := 0; i < rings; i++ {
		phi := math.Pi * float64(i) / float64(rings-1)
		z := radius * math.Cos(phi)
		rr := radius * math.Sin(phi)
		if i == 0 || i == rings-1 {
			pts = append(pts, r3.Vec{Z: z})
			continue
		}
		for j := 0; j < n; j++ {
			theta := 2 * math.Pi * float64(j) / float64(n)
			pts = append(pts, r3.Vec{X: rr * math.Cos(theta), Y: rr * math.Sin(theta), Z: z})
		}
	}
	return pts
}

// frustum3 is a cone frustum along +Z, optionally with a regular polygonal
// cross-section of sides corners.
type frustum3 struct {
	z0, height float64
	r1, r2     float64
	sides      int
}

func (f frustum3) Evaluate(p r3.Vec) float64 {
	hh := f.height / 2
	q := r2.Vec{X: radial(p.X, p.Y, f.sides), Y: p.Z - (f.z0 + hh)}
	return cappedCone(q, hh, f.r1, f.r2)
}

func (f frustum3) Bounds() r3.Box {
	r := math.Max(f.r1, f.r2)
	return r3.Box{Min: r3.Vec{X: -r, Y: -r, Z: f.z0}, Max: r3.Vec{X: r, Y: r, Z: f.z0 + f.height}}
}

func (f frustum3) points() []r3.Vec {
	n := f.sides
	if n <= 0 {
		n = defaultRoundSamples
	}
	pts := make([]r3.Vec, 0, 2*n)
	ring := func(r, z float64) {
		if r == 0 {
			pts = append(pts, r3.Vec{Z: z})
			return
		}
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			pts = append(pts, r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a), Z: z})
		}
	}
	ring(f.r1, f.z0)
	ring(f.r2, f.z0+f.height)
	return pts
}

// radial is the distance from the Z axis, measured in the metric of a regular
// polygon with corners at angles 2*pi*k/sides when sides > 0.
func radial(x, y float64, sides int) float64 {
	r := math.Hypot(x, y)
	if sides < 3 || r == 0 {
		return r
	}
	sector := 2 * math.Pi / float64(sides)
	theta := math.Atan2(y, x)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	local := theta - (math.Floor(theta/sector)+0.5)*sector
	return r * math.Cos(local) / math.Cos(sector/2)
}

// cappedCone is the exact distance to a frustum of half height hh whose
// cross-section in the (radial, axial) plane is q.
func cappedCone(q r2.Vec, hh, ra, rb float64) float64 {
	k1 := r2.Vec{X: rb, Y: hh}
	k2 := r2.Vec{X: rb - ra, Y: 2 * hh}
	rr := rb
	if q.Y < 0 {
		rr = ra
	}
	ca := r2.Vec{X: q.X - math.Min(q.X, rr), Y: math.Abs(q.Y) - hh}
	t := clamp(r2.Dot(r2.Sub(k1, q), k2)/r2.Dot(k2, k2), 0, 1)
	cb := r2.Add(r2.Sub(q, k1), r2.Scale(t, k2))
	s := 1.0
	if cb.X < 0 && ca.Y < 0 {
		s = -1
	}
	return s * math.Sqrt(math.Min(r2.Norm2(ca), r2.Norm2(cb)))
}

type rect2 struct {
	center, half r2.Vec
}

func (r rect2) Evaluate(p r2.Vec) float64 {
	q := r2.Vec{X: math.Abs(p.X-r.center.X) - r.half.X, Y: math.Abs(p.Y-r.center.Y) - r.half.Y}
	outside := r2.Norm(r2.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0)})
	return outside + math.Min(math.Max(q.X, q.Y), 0)
}

func (r rect2) Bounds() r2.Box {
	return r2.Box{Min: r2.Sub(r.center, r.half), Max: r2.Add(r.center, r.half)}
}

type circle2 struct {
	radius float64
}

func (c circle2) Evaluate(p r2.Vec) float64 { return r2.Norm(p) - c.radius }

func (c circle2) Bounds() r2.Box {
	r := c.radius
	return r2.Box{Min: r2.Vec{X: -r, Y: -r}, Max: r2.Vec{X: r, Y: r}}
}

func regularPolygon(radius float64, sides int) []r2.Vec {
	pts := make([]r2.Vec, sides)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(sides)
		pts[i] = r2.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return pts
}

// polygon2 is a simple polygon given by its vertices in order.
type polygon2 struct {
	verts []r2.Vec
	box   r2.Box
}

func newPolygon2(verts []r2.Vec) polygon2 {
	return polygon2{verts: verts, box: boxOf2(verts)}
}

func (g polygon2) Evaluate(p r2.Vec) float64 {
	v := g.verts
	n := len(v)
	d := r2.Norm2(r2.Sub(p, v[0]))
	s := 1.0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		e := r2.Sub(v[j], v[i])
		w := r2.Sub(p, v[i])
		b := r2.Sub(w, r2.Scale(clamp(r2.Dot(w, e)/r2.Dot(e, e), 0, 1), e))
		d = math.Min(d, r2.Norm2(b))
		c1 := p.Y >= v[i].Y
		c2 := p.Y < v[j].Y
		c3 := e.X*w.Y > e.Y*w.X
		if (c1 && c2 && c3) || (!c1 && !c2 && !c3) {
			s = -s
		}
	}
	return s * math.Sqrt(d)
}

func (g polygon2) Bounds() r2.Box { return g.box }
