package implicit

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
)

const (
	// DefaultResolution is the grid cell count along the longest side of a shape.
	DefaultResolution = 48
	// DefaultMaxResolution caps resolution after segment hints and refinement.
	DefaultMaxResolution = 160
)

// Kernel implements kernel.Kernel with signed distance fields.
type Kernel struct {
	Resolution    int
	MaxResolution int
}

var _ kernel.Kernel = (*Kernel)(nil)

// New returns a kernel with default resolution settings.
func New() *Kernel {
	return &Kernel{Resolution: DefaultResolution, MaxResolution: DefaultMaxResolution}
}

func as3(op string, b kernel.Body) (*Shape3, error) {
	s, ok := b.(*Shape3)
	if !ok || s == nil {
		return nil, kernel.Errorf(op, "unsupported body %T", b)
	}
	return s, nil
}

func as2(op string, sec kernel.Section) (*Shape2, error) {
	s, ok := sec.(*Shape2)
	if !ok || s == nil {
		return nil, kernel.Errorf(op, "unsupported section %T", sec)
	}
	return s, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (k *Kernel) Cube(size r3.Vec, center bool) (kernel.Body, error) {
	if !finite(size.X, size.Y, size.Z) || size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, kernel.Errorf("cube", "size must be positive, got %v", size)
	}
	half := r3.Scale(0.5, size)
	c := r3.Vec{}
	if !center {
		c = half
	}
	b := box3{center: c, half: half}
	return &Shape3{sdf: b, points: corners3(b.Bounds())}, nil
}

func (k *Kernel) Sphere(radius float64, segments int) (kernel.Body, error) {
	if !finite(radius) || radius <= 0 {
		return nil, kernel.Errorf("sphere", "radius must be positive, got %g", radius)
	}
	return &Shape3{sdf: sphere3{radius: radius}, points: spherePoints(radius, segments), detail: segments}, nil
}

func (k *Kernel) Cylinder(height, r1, r2 float64, segments int, center bool) (kernel.Body, error) {
	if !finite(height, r1, r2) || height <= 0 || r1 < 0 || r2 < 0 || (r1 == 0 && r2 == 0) {
		return nil, kernel.Errorf("cylinder", "invalid dimensions h=%g r1=%g r2=%g", height, r1, r2)
	}
	z0 := 0.0
	if center {
		z0 = -height / 2
	}
	sides := segments
	if sides < 3 {
		sides = 0
	}
	f := frustum3{z0: z0, height: height, r1: r1, r2: r2, sides: sides}
	return &Shape3{sdf: f, points: f.points(), detail: segments}, nil
}

func (k *Kernel) Square(size r2.Vec, center bool) (kernel.Section, error) {
	if !finite(size.X, size.Y) || size.X <= 0 || size.Y <= 0 {
		return nil, kernel.Errorf("square", "size must be positive, got %v", size)
	}
	half := r2.Scale(0.5, size)
	c := r2.Vec{}
	if !center {
		c = half
	}
	r := rect2{center: c, half: half}
	return &Shape2{sdf: r, points: corners2(r.Bounds())}, nil
}

func (k *Kernel) Circle(radius float64, segments int) (kernel.Section, error) {
	if !finite(radius) || radius <= 0 {
		return nil, kernel.Errorf("circle", "radius must be positive, got %g", radius)
	}
	if segments >= 3 {
		verts := regularPolygon(radius, segments)
		return &Shape2{sdf: newPolygon2(verts), points: verts, detail: segments}, nil
	}
	return &Shape2{sdf: circle2{radius: radius}, points: regularPolygon(radius, circleSamples)}, nil
}

func (k *Kernel) Translate(b kernel.Body, v r3.Vec) (kernel.Body, error) {
	s, err := as3("translate", b)
	if err != nil {
		return nil, err
	}
	return &Shape3{
		sdf:    translate3{child: s.sdf, v: v},
		points: mapPoints3(s.points, func(p r3.Vec) r3.Vec { return r3.Add(p, v) }),
		detail: s.detail,
		refine: s.refine,
	}, nil
}

func (k *Kernel) Rotate(b kernel.Body, degrees r3.Vec) (kernel.Body, error) {
	s, err := as3("rotate", b)
	if err != nil {
		return nil, err
	}
	rot := newRotate3(s.sdf, r3.Scale(math.Pi/180, degrees))
	return &Shape3{sdf: rot, points: mapPoints3(s.points, rot.forward), detail: s.detail, refine: s.refine}, nil
}

func (k *Kernel) Scale(b kernel.Body, v r3.Vec) (kernel.Body, error) {
	s, err := as3("scale", b)
	if err != nil {
		return nil, err
	}
	if v.X == 0 || v.Y == 0 || v.Z == 0 || !finite(v.X, v.Y, v.Z) {
		return nil, kernel.Errorf("scale", "scale factors must be non-zero, got %v", v)
	}
	sc := newScale3(s.sdf, v)
	return &Shape3{sdf: sc, points: mapPoints3(s.points, sc.forward), detail: s.detail, refine: s.refine}, nil
}

func (k *Kernel) Translate2(sec kernel.Section, v r2.Vec) (kernel.Section, error) {
	s, err := as2("translate", sec)
	if err != nil {
		return nil, err
	}
	return &Shape2{
		sdf:    translate2{child: s.sdf, v: v},
		points: mapPoints2(s.points, func(p r2.Vec) r2.Vec { return r2.Add(p, v) }),
		detail: s.detail,
	}, nil
}

func (k *Kernel) Rotate2(sec kernel.Section, degrees float64) (kernel.Section, error) {
	s, err := as2("rotate", sec)
	if err != nil {
		return nil, err
	}
	rot := newRotate2(s.sdf, degrees*math.Pi/180)
	return &Shape2{sdf: rot, points: mapPoints2(s.points, rot.forward), detail: s.detail}, nil
}

func (k *Kernel) Scale2(sec kernel.Section, v r2.Vec) (kernel.Section, error) {
	s, err := as2("scale", sec)
	if err != nil {
		return nil, err
	}
	if v.X == 0 || v.Y == 0 || !finite(v.X, v.Y) {
		return nil, kernel.Errorf("scale", "scale factors must be non-zero, got %v", v)
	}
	sc := newScale2(s.sdf, v)
	return &Shape2{sdf: sc, points: mapPoints2(s.points, sc.forward), detail: s.detail}, nil
}

func (k *Kernel) Boolean(op kernel.Op, a, b kernel.Body) (kernel.Body, error) {
	sa, err := as3(op.String(), a)
	if err != nil {
		return nil, err
	}
	sb, err := as3(op.String(), b)
	if err != nil {
		return nil, err
	}
	out := &Shape3{detail: maxDetail(sa.detail, sb.detail), refine: maxDetail(sa.refine, sb.refine)}
	switch op {
	case kernel.OpUnion:
		out.sdf = newUnion3([]SDF3{sa.sdf, sb.sdf})
		if sa.points != nil && sb.points != nil {
			out.points = append(append([]r3.Vec(nil), sa.points...), sb.points...)
		}
	case kernel.OpDifference:
		out.sdf = difference3{a: sa.sdf, b: sb.sdf}
	case kernel.OpIntersection:
		out.sdf = intersection3{a: sa.sdf, b: sb.sdf}
	default:
		return nil, kernel.Errorf("boolean", "unknown operation %d", op)
	}
	return out, nil
}

func (k *Kernel) Boolean2(op kernel.Op, a, b kernel.Section) (kernel.Section, error) {
	sa, err := as2(op.String(), a)
	if err != nil {
		return nil, err
	}
	sb, err := as2(op.String(), b)
	if err != nil {
		return nil, err
	}
	out := &Shape2{detail: maxDetail(sa.detail, sb.detail)}
	switch op {
	case kernel.OpUnion:
		out.sdf = newUnion2([]SDF2{sa.sdf, sb.sdf})
		if sa.points != nil && sb.points != nil {
			out.points = append(append([]r2.Vec(nil), sa.points...), sb.points...)
		}
	case kernel.OpDifference:
		out.sdf = difference2{a: sa.sdf, b: sb.sdf}
	case kernel.OpIntersection:
		out.sdf = intersection2{a: sa.sdf, b: sb.sdf}
	default:
		return nil, kernel.Errorf("boolean", "unknown operation %d", op)
	}
	return out, nil
}

func (k *Kernel) BatchUnion(bodies []kernel.Body) (kernel.Body, error) {
	if len(bodies) == 0 {
		return nil, kernel.Errorf("union", "no bodies")
	}
	items := make([]SDF3, 0, len(bodies))
	out := &Shape3{points: []r3.Vec{}}
	for _, b := range bodies {
		s, err := as3("union", b)
		if err != nil {
			return nil, err
		}
		items = append(items, s.sdf)
		out.detail = maxDetail(out.detail, s.detail)
		out.refine = maxDetail(out.refine, s.refine)
		if out.points != nil && s.points != nil {
			out.points = append(out.points, s.points...)
		} else {
			out.points = nil
		}
	}
	out.sdf = newUnion3(items)
	return out, nil
}

func (k *Kernel) BatchUnion2(sections []kernel.Section) (kernel.Section, error) {
	if len(sections) == 0 {
		return nil, kernel.Errorf("union", "no sections")
	}
	items := make([]SDF2, 0, len(sections))
	out := &Shape2{points: []r2.Vec{}}
	for _, sec := range sections {
		s, err := as2("union", sec)
		if err != nil {
			return nil, err
		}
		items = append(items, s.sdf)
		out.detail = maxDetail(out.detail, s.detail)
		if out.points != nil && s.points != nil {
			out.points = append(out.points, s.points...)
		} else {
			out.points = nil
		}
	}
	out.sdf = newUnion2(items)
	return out, nil
}

func (k *Kernel) Hull(bodies []kernel.Body) (kernel.Body, error) {
	var pts []r3.Vec
	out := &Shape3{}
	for _, b := range bodies {
		s, err := as3("hull", b)
		if err != nil {
			return nil, err
		}
		pts = append(pts, hullPoints3(s)...)
		out.detail = maxDetail(out.detail, s.detail)
		out.refine = maxDetail(out.refine, s.refine)
	}
	if len(pts) < 4 {
		return nil, kernel.Errorf("hull", "need at least 4 points, got %d", len(pts))
	}
	poly, support := newPolytope3(pts)
	out.sdf = poly
	out.points = support
	return out, nil
}

func (k *Kernel) Hull2(sections []kernel.Section) (kernel.Section, error) {
	var pts []r2.Vec
	out := &Shape2{}
	for _, sec := range sections {
		s, err := as2("hull", sec)
		if err != nil {
			return nil, err
		}
		pts = append(pts, hullPoints2(s)...)
		out.detail = maxDetail(out.detail, s.detail)
	}
	hull := convexHull2(pts)
	if len(hull) < 3 {
		return nil, kernel.Errorf("hull", "degenerate hull of %d points", len(pts))
	}
	out.sdf = newPolygon2(hull)
	out.points = hull
	return out, nil
}

func (k *Kernel) Revolve(sec kernel.Section, segments int, degrees float64) (kernel.Body, error) {
	s, err := as2("revolve", sec)
	if err != nil {
		return nil, err
	}
	if !finite(degrees) || degrees <= 0 {
		return nil, kernel.Errorf("revolve", "sweep must be positive, got %g degrees", degrees)
	}
	if s.Bounds().Max.X <= 0 {
		return nil, kernel.Errorf("revolve", "section has no area at positive X")
	}
	sweep := math.Min(degrees, 360) * math.Pi / 180
	out := &Shape3{sdf: newRevolve3(s.sdf, sweep), detail: maxDetail(segments, s.detail)}
	n := segments
	if n <= 0 {
		n = defaultRoundSamples
	}
	for _, p := range hullPoints2(s) {
		if p.X < 0 {
			continue
		}
		for i := 0; i <= n; i++ {
			a := sweep * float64(i) / float64(n)
			out.points = append(out.points, r3.Vec{X: p.X * math.Cos(a), Y: p.X * math.Sin(a), Z: p.Y})
		}
	}
	return out, nil
}

func (k *Kernel) Extrude(sec kernel.Section, height float64, center bool) (kernel.Body, error) {
	s, err := as2("extrude", sec)
	if err != nil {
		return nil, err
	}
	if !finite(height) || height <= 0 {
		return nil, kernel.Errorf("extrude", "height must be positive, got %g", height)
	}
	z0 := 0.0
	if center {
		z0 = -height / 2
	}
	out := &Shape3{sdf: extrude3{sec: s.sdf, z0: z0, z1: z0 + height}, detail: s.detail}
	if s.points != nil {
		out.points = make([]r3.Vec, 0, 2*len(s.points))
		for _, p := range s.points {
			out.points = append(out.points, r3.Vec{X: p.X, Y: p.Y, Z: z0}, r3.Vec{X: p.X, Y: p.Y, Z: z0 + height})
		}
	}
	return out, nil
}

func (k *Kernel) Refine(b kernel.Body, n int) (kernel.Body, error) {
	s, err := as3("refine", b)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, kernel.Errorf("refine", "refinement must be >= 1, got %d", n)
	}
	cp := *s
	cp.refine = max(s.refine, 1) * n
	return &cp, nil
}

// resolution picks the grid size for s from the kernel settings, the segment
// hint and the refinement factor.
func (k *Kernel) resolution(s *Shape3) int {
	res := k.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	if s.detail/2 > res {
		res = s.detail / 2
	}
	if s.refine > 1 {
		res *= s.refine
	}
	limit := k.MaxResolution
	if limit <= 0 {
		limit = DefaultMaxResolution
	}
	return min(res, limit)
}

func (k *Kernel) Triangulate(ctx context.Context, b kernel.Body) (kernel.RawMesh, error) {
	s, err := as3("triangulate", b)
	if err != nil {
		return kernel.RawMesh{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	mesh, err := triangulate(ctx, s.sdf, k.resolution(s))
	if err != nil {
		if ctx.Err() != nil {
			return mesh, err
		}
		return mesh, fmt.Errorf("triangulate: %w", err)
	}
	return mesh, nil
}
