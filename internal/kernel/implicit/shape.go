// Package implicit is a signed-distance-field solid kernel. Shapes are trees of
// distance functions; Triangulate samples them on a grid and extracts the zero
// level set with marching tetrahedra.
package implicit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// SDF3 is a 3-D signed distance function: negative inside, positive outside.
type SDF3 interface {
	Evaluate(p r3.Vec) float64
	Bounds() r3.Box
}

// SDF2 is a 2-D signed distance function.
type SDF2 interface {
	Evaluate(p r2.Vec) float64
	Bounds() r2.Box
}

// Shape3 is the kernel.Body handed out by this package.
type Shape3 struct {
	sdf SDF3
	// points are support points used by Hull; nil means sample on demand.
	points []r3.Vec
	detail int
	refine int
}

// Evaluate returns the signed distance at p.
func (s *Shape3) Evaluate(p r3.Vec) float64 { return s.sdf.Evaluate(p) }

// Bounds returns the axis-aligned bounding box.
func (s *Shape3) Bounds() r3.Box { return s.sdf.Bounds() }

// Detail returns the circular segment hint carried by the shape.
func (s *Shape3) Detail() int { return s.detail }

// Shape2 is the kernel.Section handed out by this package.
type Shape2 struct {
	sdf    SDF2
	points []r2.Vec
	detail int
}

// Evaluate returns the signed distance at p.
func (s *Shape2) Evaluate(p r2.Vec) float64 { return s.sdf.Evaluate(p) }

// Bounds returns the axis-aligned bounding box.
func (s *Shape2) Bounds() r2.Box { return s.sdf.Bounds() }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func maxDetail(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func boxOf3(pts []r3.Vec) r3.Box {
	if len(pts) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

func boxOf2(pts []r2.Vec) r2.Box {
	if len(pts) == 0 {
		return r2.Box{}
	}
	b := r2.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r2.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)}
		b.Max = r2.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)}
	}
	return b
}

// unionBox3 encloses both boxes. Unlike r3.Box.Union it keeps flat boxes.
func unionBox3(a, b r3.Box) r3.Box {
	return boxOf3([]r3.Vec{a.Min, a.Max, b.Min, b.Max})
}

func unionBox2(a, b r2.Box) r2.Box {
	return boxOf2([]r2.Vec{a.Min, a.Max, b.Min, b.Max})
}

func overlapBox3(a, b r3.Box) r3.Box {
	lo := r3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)}
	hi := r3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)}
	if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
		return r3.Box{Min: lo, Max: lo}
	}
	return r3.Box{Min: lo, Max: hi}
}

func overlapBox2(a, b r2.Box) r2.Box {
	lo := r2.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y)}
	hi := r2.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y)}
	if lo.X > hi.X || lo.Y > hi.Y {
		return r2.Box{Min: lo, Max: lo}
	}
	return r2.Box{Min: lo, Max: hi}
}

func corners3(b r3.Box) []r3.Vec {
	return []r3.Vec{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
}

func corners2(b r2.Box) []r2.Vec {
	return []r2.Vec{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}
}

func mapPoints3(pts []r3.Vec, f func(r3.Vec) r3.Vec) []r3.Vec {
	if pts == nil {
		return nil
	}
	out := make([]r3.Vec, len(pts))
	for i, p := range pts {
		out[i] = f(p)
	}
	return out
}

func mapPoints2(pts []r2.Vec, f func(r2.Vec) r2.Vec) []r2.Vec {
	if pts == nil {
		return nil
	}
	out := make([]r2.Vec, len(pts))
	for i, p := range pts {
		out[i] = f(p)
	}
	return out
}

func isFlat3(b r3.Box) bool {
	s := b.Size()
	return !(s.X > 0 && s.Y > 0 && s.Z > 0) || math.IsInf(s.X+s.Y+s.Z, 0) || math.IsNaN(s.X+s.Y+s.Z)
}

func isFlat2(b r2.Box) bool {
	s := b.Size()
	return !(s.X > 0 && s.Y > 0) || math.IsInf(s.X+s.Y, 0) || math.IsNaN(s.X+s.Y)
}
