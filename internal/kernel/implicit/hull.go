package implicit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	sampleGrid3   = 24
	sampleGrid2   = 96
	hullDirCount  = 256
	hullTolerance = 1e-12
)

// convexHull2 returns the hull of pts in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func convexHull2(pts []r2.Vec) []r2.Vec {
	ps := append([]r2.Vec(nil), pts...)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
	if len(ps) < 3 {
		return ps
	}
	turn := func(o, a, b r2.Vec) float64 { return r2.Cross(r2.Sub(a, o), r2.Sub(b, o)) }
	hull := make([]r2.Vec, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= hullTolerance {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= hullTolerance {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// polytope3 is the intersection of supporting half-spaces of a point set.
// Each plane touches the set, so the polytope contains the exact hull and
// equals it along every sampled direction.
type polytope3 struct {
	normals []r3.Vec
	offsets []float64
	box     r3.Box
}

func newPolytope3(pts []r3.Vec) (polytope3, []r3.Vec) {
	dirs := hullDirections()
	p := polytope3{
		normals: dirs,
		offsets: make([]float64, len(dirs)),
		box:     boxOf3(pts),
	}
	support := make(map[int]struct{}, len(dirs))
	for k, d := range dirs {
		best, arg := math.Inf(-1), 0
		for i, q := range pts {
			if v := r3.Dot(d, q); v > best {
				best, arg = v, i
			}
		}
		p.offsets[k] = best
		support[arg] = struct{}{}
	}
	idx := make([]int, 0, len(support))
	for i := range support {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	kept := make([]r3.Vec, len(idx))
	for i, j := range idx {
		kept[i] = pts[j]
	}
	return p, kept
}

func (p polytope3) Evaluate(q r3.Vec) float64 {
	d := math.Inf(-1)
	for k, n := range p.normals {
		d = math.Max(d, r3.Dot(n, q)-p.offsets[k])
	}
	return d
}

func (p polytope3) Bounds() r3.Box { return p.box }

// hullDirections returns the axis, edge and corner directions of a cube plus
// a Fibonacci sphere.
func hullDirections() []r3.Vec {
	dirs := make([]r3.Vec, 0, 26+hullDirCount)
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				dirs = append(dirs, r3.Unit(r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}))
			}
		}
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < hullDirCount; i++ {
		z := 1 - 2*(float64(i)+0.5)/hullDirCount
		r := math.Sqrt(1 - z*z)
		a := golden * float64(i)
		dirs = append(dirs, r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a), Z: z})
	}
	return dirs
}

// hullPoints3 returns the support points of s, sampling the interior on a
// grid when the shape does not track them.
func hullPoints3(s *Shape3) []r3.Vec {
	if s.points != nil {
		return s.points
	}
	b := s.Bounds()
	if isFlat3(b) {
		return nil
	}
	size := b.Size()
	var pts []r3.Vec
	for i := 0; i <= sampleGrid3; i++ {
		for j := 0; j <= sampleGrid3; j++ {
			for k := 0; k <= sampleGrid3; k++ {
				p := r3.Vec{
					X: b.Min.X + size.X*float64(i)/sampleGrid3,
					Y: b.Min.Y + size.Y*float64(j)/sampleGrid3,
					Z: b.Min.Z + size.Z*float64(k)/sampleGrid3,
				}
				if s.Evaluate(p) <= 0 {
					pts = append(pts, p)
				}
			}
		}
	}
	return pts
}

func hullPoints2(s *Shape2) []r2.Vec {
	if s.points != nil {
		return s.points
	}
	b := s.Bounds()
	if isFlat2(b) {
		return nil
	}
	size := b.Size()
	var pts []r2.Vec
	for i := 0; i <= sampleGrid2; i++ {
		for j := 0; j <= sampleGrid2; j++ {
			p := r2.Vec{
				X: b.Min.X + size.X*float64(i)/sampleGrid2,
				Y: b.Min.Y + size.Y*float64(j)/sampleGrid2,
			}
			if s.Evaluate(p) <= 0 {
				pts = append(pts, p)
			}
		}
	}
	return pts
}
