package implicit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

type translate3 struct {
	child SDF3
	v     r3.Vec
}

func (t translate3) Evaluate(p r3.Vec) float64 { return t.child.Evaluate(r3.Sub(p, t.v)) }
func (t translate3) Bounds() r3.Box            { return t.child.Bounds().Add(t.v) }

// rotate3 applies X, Y then Z rotations; evaluation walks them backwards.
type rotate3 struct {
	child SDF3
	fwd   [3]r3.Rotation
	inv   [3]r3.Rotation
	box   r3.Box
}

var axes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

func newRotate3(child SDF3, radians r3.Vec) rotate3 {
	angles := [3]float64{radians.X, radians.Y, radians.Z}
	r := rotate3{child: child}
	for i, a := range angles {
		r.fwd[i] = r3.NewRotation(a, axes[i])
		r.inv[i] = r3.NewRotation(-a, axes[i])
	}
	r.box = boxOf3(mapPoints3(corners3(child.Bounds()), r.forward))
	return r
}

func (r rotate3) forward(p r3.Vec) r3.Vec {
	for i := 0; i < 3; i++ {
		p = r.fwd[i].Rotate(p)
	}
	return p
}

func (r rotate3) Evaluate(p r3.Vec) float64 {
	for i := 2; i >= 0; i-- {
		p = r.inv[i].Rotate(p)
	}
	return r.child.Evaluate(p)
}

func (r rotate3) Bounds() r3.Box { return r.box }

type scale3 struct {
	child SDF3
	s     r3.Vec
	k     float64
	box   r3.Box
}

func newScale3(child SDF3, s r3.Vec) scale3 {
	k := math.Min(math.Abs(s.X), math.Min(math.Abs(s.Y), math.Abs(s.Z)))
	sc := scale3{child: child, s: s, k: k}
	sc.box = boxOf3(mapPoints3(corners3(child.Bounds()), sc.forward))
	return sc
}

func (s scale3) forward(p r3.Vec) r3.Vec {
	return r3.Vec{X: p.X * s.s.X, Y: p.Y * s.s.Y, Z: p.Z * s.s.Z}
}

func (s scale3) Evaluate(p r3.Vec) float64 {
	return s.child.Evaluate(r3.Vec{X: p.X / s.s.X, Y: p.Y / s.s.Y, Z: p.Z / s.s.Z}) * s.k
}

func (s scale3) Bounds() r3.Box { return s.box }

type union3 struct {
	items []SDF3
	box   r3.Box
}

func newUnion3(items []SDF3) union3 {
	u := union3{items: items, box: items[0].Bounds()}
	for _, it := range items[1:] {
		u.box = unionBox3(u.box, it.Bounds())
	}
	return u
}

func (u union3) Evaluate(p r3.Vec) float64 {
	d := math.Inf(1)
	for _, it := range u.items {
		d = math.Min(d, it.Evaluate(p))
	}
	return d
}

func (u union3) Bounds() r3.Box { return u.box }

type difference3 struct {
	a, b SDF3
}

func (d difference3) Evaluate(p r3.Vec) float64 {
	return math.Max(d.a.Evaluate(p), -d.b.Evaluate(p))
}

func (d difference3) Bounds() r3.Box { return d.a.Bounds() }

type intersection3 struct {
	a, b SDF3
}

func (i intersection3) Evaluate(p r3.Vec) float64 {
	return math.Max(i.a.Evaluate(p), i.b.Evaluate(p))
}

func (i intersection3) Bounds() r3.Box { return overlapBox3(i.a.Bounds(), i.b.Bounds()) }

type translate2 struct {
	child SDF2
	v     r2.Vec
}

func (t translate2) Evaluate(p r2.Vec) float64 { return t.child.Evaluate(r2.Sub(p, t.v)) }
func (t translate2) Bounds() r2.Box            { return t.child.Bounds().Add(t.v) }

type rotate2 struct {
	child SDF2
	angle float64
	box   r2.Box
}

func newRotate2(child SDF2, radians float64) rotate2 {
	r := rotate2{child: child, angle: radians}
	r.box = boxOf2(mapPoints2(corners2(child.Bounds()), r.forward))
	return r
}

func (r rotate2) forward(p r2.Vec) r2.Vec { return r2.Rotate(p, r.angle, r2.Vec{}) }

func (r rotate2) Evaluate(p r2.Vec) float64 {
	return r.child.Evaluate(r2.Rotate(p, -r.angle, r2.Vec{}))
}

func (r rotate2) Bounds() r2.Box { return r.box }

type scale2 struct {
	child SDF2
	s     r2.Vec
	k     float64
	box   r2.Box
}

func newScale2(child SDF2, s r2.Vec) scale2 {
	sc := scale2{child: child, s: s, k: math.Min(math.Abs(s.X), math.Abs(s.Y))}
	sc.box = boxOf2(mapPoints2(corners2(child.Bounds()), sc.forward))
	return sc
}

func (s scale2) forward(p r2.Vec) r2.Vec { return r2.Vec{X: p.X * s.s.X, Y: p.Y * s.s.Y} }

func (s scale2) Evaluate(p r2.Vec) float64 {
	return s.child.Evaluate(r2.Vec{X: p.X / s.s.X, Y: p.Y / s.s.Y}) * s.k
}

func (s scale2) Bounds() r2.Box { return s.box }

type union2 struct {
	items []SDF2
	box   r2.Box
}

func newUnion2(items []SDF2) union2 {
	u := union2{items: items, box: items[0].Bounds()}
	for _, it := range items[1:] {
		u.box = unionBox2(u.box, it.Bounds())
	}
	return u
}

func (u union2) Evaluate(p r2.Vec) float64 {
	d := math.Inf(1)
	for _, it := range u.items {
		d = math.Min(d, it.Evaluate(p))
	}
	return d
}

func (u union2) Bounds() r2.Box { return u.box }

type difference2 struct {
	a, b SDF2
}

func (d difference2) Evaluate(p r2.Vec) float64 {
	return math.Max(d.a.Evaluate(p), -d.b.Evaluate(p))
}

func (d difference2) Bounds() r2.Box { return d.a.Bounds() }

type intersection2 struct {
	a, b SDF2
}

func (i intersection2) Evaluate(p r2.Vec) float64 {
	return math.Max(i.a.Evaluate(p), i.b.Evaluate(p))
}

func (i intersection2) Bounds() r2.Box { return overlapBox2(i.a.Bounds(), i.b.Bounds()) }

// revolve3 sweeps a section around the Z axis; the section's X is the radius
// and its Y the height. sweep >= 2*pi is a full revolution.
type revolve3 struct {
	sec   SDF2
	sweep float64
	box   r3.Box
}

func newRevolve3(sec SDF2, sweep float64) revolve3 {
	b := sec.Bounds()
	r := math.Max(b.Max.X, 0)
	return revolve3{
		sec:   sec,
		sweep: sweep,
		box:   r3.Box{Min: r3.Vec{X: -r, Y: -r, Z: b.Min.Y}, Max: r3.Vec{X: r, Y: r, Z: b.Max.Y}},
	}
}

func (r revolve3) Evaluate(p r3.Vec) float64 {
	d := r.sec.Evaluate(r2.Vec{X: math.Hypot(p.X, p.Y), Y: p.Z})
	if r.sweep >= 2*math.Pi {
		return d
	}
	return math.Max(d, wedge(r2.Vec{X: p.X, Y: p.Y}, r.sweep))
}

func (r revolve3) Bounds() r3.Box { return r.box }

// wedge is the signed distance to the planar sector between angle 0 and sweep.
func wedge(q r2.Vec, sweep float64) float64 {
	theta := math.Atan2(q.Y, q.X)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	ray := func(u r2.Vec) float64 {
		t := math.Max(r2.Dot(q, u), 0)
		return r2.Norm(r2.Sub(q, r2.Scale(t, u)))
	}
	d := math.Min(ray(r2.Vec{X: 1}), ray(r2.Vec{X: math.Cos(sweep), Y: math.Sin(sweep)}))
	if theta <= sweep {
		return -d
	}
	return d
}

type extrude3 struct {
	sec    SDF2
	z0, z1 float64
}

func (e extrude3) Evaluate(p r3.Vec) float64 {
	w := r2.Vec{
		X: e.sec.Evaluate(r2.Vec{X: p.X, Y: p.Y}),
		Y: math.Abs(p.Z-(e.z0+e.z1)/2) - (e.z1-e.z0)/2,
	}
	return math.Min(math.Max(w.X, w.Y), 0) + r2.Norm(r2.Vec{X: math.Max(w.X, 0), Y: math.Max(w.Y, 0)})
}

func (e extrude3) Bounds() r3.Box {
	b := e.sec.Bounds()
	return r3.Box{Min: r3.Vec{X: b.Min.X, Y: b.Min.Y, Z: e.z0}, Max: r3.Vec{X: b.Max.X, Y: b.Max.Y, Z: e.z1}}
}
