package geom

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel/implicit"
	"boxy/internal/mesh"
)

func newBuilder() *Builder { return NewBuilder(implicit.New()) }

func volume(t *testing.T, s Solid) float64 {
	t.Helper()
	raw, err := s.Mesh(context.Background())
	require.NoError(t, err)
	m, err := mesh.FromRaw(raw)
	require.NoError(t, err)
	return m.Volume()
}

func TestNormalize3(t *testing.T) {
	cases := []struct {
		name    string
		x, y, z any
		want    r3.Vec
	}{
		{"scalar", 5, nil, nil, r3.Vec{X: 5, Y: 5, Z: 5}},
		{"z from x", 5, 2, nil, r3.Vec{X: 5, Y: 2, Z: 5}},
		{"explicit", 1.5, float32(2), int64(3), r3.Vec{X: 1.5, Y: 2, Z: 3}},
		{"y absent", 4, nil, 1, r3.Vec{X: 4, Y: 4, Z: 1}},
		{"any slice", []any{1, 2.5, 3}, nil, nil, r3.Vec{X: 1, Y: 2.5, Z: 3}},
		{"int slice", []int{1, 2, 3}, nil, nil, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"array", [3]float64{1, 2, 3}, nil, nil, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"vector", r3.Vec{X: 7, Y: 8, Z: 9}, nil, nil, r3.Vec{X: 7, Y: 8, Z: 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize3(tc.x, tc.y, tc.z)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize3Rejects(t *testing.T) {
	cases := []struct {
		name    string
		x, y, z any
	}{
		{"sequence plus y", []float64{1, 2, 3}, 4, nil},
		{"sequence plus z", []float64{1, 2, 3}, nil, 4},
		{"short sequence", []float64{1, 2}, nil, nil},
		{"missing x", nil, 1, 2},
		{"string", "1", nil, nil},
		{"string element", []any{1, "2", 3}, nil, nil},
		{"sequence y", 1, []int{2}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize3(tc.x, tc.y, tc.z)
			require.ErrorIs(t, err, ErrInvalidArguments)
		})
	}
}

func TestNormalize2(t *testing.T) {
	got, err := Normalize2(3, nil)
	require.NoError(t, err)
	assert.Equal(t, r2.Vec{X: 3, Y: 3}, got)

	got, err = Normalize2([]any{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, r2.Vec{X: 1, Y: 2}, got)

	_, err = Normalize2([]any{1, 2, 3}, nil)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestTranslatePreservesVolume(t *testing.T) {
	b := newBuilder()
	box, err := b.Box(r3.Vec{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	moved, err := box.Translate(r3.Vec{X: 2.3, Y: -1.1, Z: 0.7})
	require.NoError(t, err)
	assert.InEpsilon(t, volume(t, box), volume(t, moved), 0.02)

	ball, err := b.Sphere(0.93, 0)
	require.NoError(t, err)
	there, err := ball.Translate(r3.Vec{X: 2.5, Y: -1, Z: 0.75})
	require.NoError(t, err)
	back, err := there.Translate(r3.Vec{X: -2.5, Y: 1, Z: -0.75})
	require.NoError(t, err)
	assert.InEpsilon(t, volume(t, ball), volume(t, back), 1e-6)
	assert.InDelta(t, ball.Bounds().Min.X, back.Bounds().Min.X, 1e-9)
	assert.InDelta(t, ball.Bounds().Max.Z, back.Bounds().Max.Z, 1e-9)
}

func TestTransformsKeepInputAndMapper(t *testing.T) {
	b := newBuilder()
	box, err := b.Box(r3.Vec{X: 1, Y: 2, Z: 3}, false)
	require.NoError(t, err)
	box = box.WithUV(mesh.CylindricalMapper{})

	scaled, err := box.Scale(r3.Vec{X: 2, Y: 2, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, box.Bounds().Max)
	assert.InDelta(t, 6.0, scaled.Bounds().Max.Z, 1e-9)
	assert.Equal(t, mesh.CylindricalMapper{}, scaled.UV())
}

func TestUnionIsAssociative(t *testing.T) {
	b := newBuilder()
	mk := func(x, y float64) Solid {
		s, err := b.Box(r3.Vec{X: 1, Y: 1, Z: 1}, true)
		require.NoError(t, err)
		s, err = s.Translate(r3.Vec{X: x, Y: y})
		require.NoError(t, err)
		return s
	}
	a, c, d := mk(0, 0), mk(0.6, 0.1), mk(0.3, 0.7)

	flat, err := Union(a, c, d)
	require.NoError(t, err)
	ac, err := a.Union(c)
	require.NoError(t, err)
	nested, err := ac.Union(d)
	require.NoError(t, err)
	seq, err := Union([]Solid{d, c, a})
	require.NoError(t, err)

	v := volume(t, flat.(Solid))
	assert.InEpsilon(t, v, volume(t, nested), 1e-6)
	assert.InEpsilon(t, v, volume(t, seq.(Solid)), 1e-6)
	assert.Greater(t, v, 1.5)
}

func TestUnionAndHullArgumentRules(t *testing.T) {
	b := newBuilder()
	box, err := b.Box(r3.Vec{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	circle, err := b.Circle(1, 0)
	require.NoError(t, err)

	_, err = Union(box, circle)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = Hull([]any{circle, []any{box}})
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = Union()
	require.ErrorIs(t, err, ErrInvalidArguments)
	_, err = Hull([]Solid{})
	require.ErrorIs(t, err, ErrInvalidArguments)
	_, err = Union(box, 3)
	require.ErrorIs(t, err, ErrInvalidArguments)

	u, err := Union([]any{circle, []Profile{circle}})
	require.NoError(t, err)
	assert.Equal(t, 2, u.Dims())
}

func TestAddAndSubResolveOperand(t *testing.T) {
	b := newBuilder()
	box, err := b.Box(r3.Vec{X: 1, Y: 1, Z: 1}, false)
	require.NoError(t, err)

	moved, err := box.Add(Offset{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, moved.Bounds().Min)

	back, err := moved.Sub(Offset{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{}, back.Bounds().Min)

	rect, err := b.Rectangle(r2.Vec{X: 2, Y: 2}, true)
	require.NoError(t, err)
	_, err = box.Add(rect)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = rect.Sub(box)
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = box.Add(Offset2{X: 1})
	require.ErrorIs(t, err, ErrInvalidArguments)

	shifted, err := rect.Add(Offset2{X: 5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, shifted.Bounds().Min.X, 1e-9)

	_, err = Solid{}.Translate(r3.Vec{})
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestCylinderRadii(t *testing.T) {
	cases := []struct {
		name   string
		p      CylinderParams
		r1, r2 float64
	}{
		{"radius only", CylinderParams{R1: Float(2)}, 2, 2},
		{"diameter only", CylinderParams{D1: Float(10)}, 5, 5},
		{"top only", CylinderParams{R2: Float(3)}, 3, 3},
		{"cone", CylinderParams{D1: Float(10), D2: Float(4)}, 5, 2},
		{"radius wins", CylinderParams{R1: Float(1), D1: Float(10), R2: Float(0)}, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r1, r2, err := tc.p.Radii()
			require.NoError(t, err)
			assert.Equal(t, tc.r1, r1)
			assert.Equal(t, tc.r2, r2)
		})
	}
	_, _, err := CylinderParams{Height: 1}.Radii()
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestCylinderPlacement(t *testing.T) {
	b := newBuilder()
	c, err := b.Cylinder(CylinderParams{Height: 2, D1: Float(10), D2: Float(4)})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, c.Bounds().Min.Z, 1e-9)
	assert.InDelta(t, 2.0, c.Bounds().Max.Z, 1e-9)

	c, err = b.Cylinder(CylinderParams{Height: 2, R1: Float(1), Center: true})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, c.Bounds().Min.Z, 1e-9)
}

func TestDefaultSegments(t *testing.T) {
	b := newBuilder()
	require.NoError(t, b.SetDefaultSegments(6))
	assert.Equal(t, 6, b.DefaultSegments())
	n, err := b.resolve(0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = b.resolve(12)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	require.ErrorIs(t, b.SetDefaultSegments(-1), ErrInvalidArguments)

	// A hexagonal cylinder reaches its full radius only at the corners.
	hex, err := b.Cylinder(CylinderParams{Height: 1, R1: Float(1), Center: true})
	require.NoError(t, err)
	s := hex.Body().(*implicit.Shape3)
	assert.InDelta(t, 0.0, s.Evaluate(r3.Vec{X: 1}), 1e-9)
	assert.Greater(t, s.Evaluate(r3.Vec{Y: 0.99}), 0.0)
}

func TestRoundedRectangleIsHullOfCircles(t *testing.T) {
	b := newBuilder()
	const r, w, h = 1.0, 6.0, 4.0
	rr, err := b.RoundedRectangle(r, r2.Vec{X: w, Y: h}, 0, true)
	require.NoError(t, err)
	rr, err = rr.Translate(r2.Vec{})
	require.NoError(t, err)

	circle, err := b.Circle(r, 0)
	require.NoError(t, err)
	var parts []Profile
	for _, c := range [][2]float64{{-2, -1}, {2, -1}, {2, 1}, {-2, 1}} {
		p, err := circle.Translate(r2.Vec{X: c[0], Y: c[1]})
		require.NoError(t, err)
		parts = append(parts, p)
	}
	hull, err := HullProfiles(parts...)
	require.NoError(t, err)

	got := rr.Section().(*implicit.Shape2)
	want := hull.Section().(*implicit.Shape2)
	for i := 0; i < 64; i++ {
		a := 2 * math.Pi * float64(i) / 64
		// Walk outward from the centre to the boundary of the expected shape.
		dir := r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
		lo, hi := 0.0, 10.0
		for range 60 {
			mid := (lo + hi) / 2
			if want.Evaluate(r2.Scale(mid, dir)) < 0 {
				lo = mid
			} else {
				hi = mid
			}
		}
		p := r2.Scale(lo, dir)
		assert.InDelta(t, 0.0, got.Evaluate(p), 1e-6, "angle %g", a)
	}

	// Edge midpoints and a corner arc point lie on the rounded outline.
	k := math.Sqrt2 / 2
	for _, p := range []r2.Vec{{X: 0, Y: 2}, {X: 3, Y: 0}, {X: 0, Y: -2}, {X: 2 + k, Y: 1 + k}} {
		assert.InDelta(t, 0.0, got.Evaluate(p), 0.005, "point %v", p)
	}
	assert.Greater(t, got.Evaluate(r2.Vec{X: 2.95, Y: 1.95}), 0.1)
}

func TestRoundedRectangleNotCentered(t *testing.T) {
	b := newBuilder()
	rr, err := b.RoundedRectangle(0.5, r2.Vec{X: 3, Y: 2}, 0, false)
	require.NoError(t, err)
	box := rr.Bounds()
	assert.InDelta(t, 0.0, box.Min.X, 1e-3)
	assert.InDelta(t, 0.0, box.Min.Y, 1e-3)
	assert.InDelta(t, 3.0, box.Max.X, 1e-3)
	assert.InDelta(t, 2.0, box.Max.Y, 1e-3)

	_, err = b.RoundedRectangle(1.5, r2.Vec{X: 3, Y: 2}, 0, false)
	require.ErrorIs(t, err, ErrInvalidArguments)
	_, err = b.RoundedRectangle(0, r2.Vec{X: 3, Y: 2}, 0, false)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestRevolveInsideOut(t *testing.T) {
	b := newBuilder()
	rect, err := b.Rectangle(r2.Vec{X: 1, Y: 1}, false)
	require.NoError(t, err)
	rect, err = rect.Translate(r2.Vec{X: 1})
	require.NoError(t, err)

	plain, err := rect.Revolve(90, 0, false)
	require.NoError(t, err)
	centred, err := rect.Revolve(90, 0, true)
	require.NoError(t, err)

	eval := func(s Solid, p r3.Vec) float64 { return s.Body().(*implicit.Shape3).Evaluate(p) }
	assert.Less(t, eval(plain, r3.Vec{X: 1.06, Y: 1.06, Z: 0.5}), 0.0)
	assert.Greater(t, eval(plain, r3.Vec{Y: -1.5, Z: 0.5}), 0.0)
	assert.Less(t, eval(centred, r3.Vec{X: 1.5, Z: 0.5}), 0.0)
	assert.Less(t, eval(centred, r3.Vec{X: 1.2, Y: -0.8, Z: 0.5}), 0.0)
	assert.Greater(t, eval(centred, r3.Vec{Y: 1.5, Z: 0.5}), 0.0)

	full, err := rect.Revolve(0, 0, false)
	require.NoError(t, err)
	assert.Less(t, eval(full, r3.Vec{X: -1.5, Z: 0.5}), 0.0)

	_, err = rect.Revolve(90, -1, false)
	require.ErrorIs(t, err, ErrInvalidArguments)
}
