package implicit_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
	"boxy/internal/kernel/implicit"
)

func rawVolume(m kernel.RawMesh) float64 {
	v := func(i uint32) r3.Vec {
		o := int(i) * m.NumProp
		return r3.Vec{X: m.VertProperties[o], Y: m.VertProperties[o+1], Z: m.VertProperties[o+2]}
	}
	var vol float64
	for t := 0; t+2 < len(m.TriVerts); t += 3 {
		a, b, c := v(m.TriVerts[t]), v(m.TriVerts[t+1]), v(m.TriVerts[t+2])
		vol += r3.Dot(a, r3.Cross(b, c)) / 6
	}
	return vol
}

func eval3(t *testing.T, b kernel.Body, p r3.Vec) float64 {
	t.Helper()
	s, ok := b.(*implicit.Shape3)
	require.True(t, ok)
	return s.Evaluate(p)
}

func eval2(t *testing.T, sec kernel.Section, p r2.Vec) float64 {
	t.Helper()
	s, ok := sec.(*implicit.Shape2)
	require.True(t, ok)
	return s.Evaluate(p)
}

func TestCubeTriangulatesToUnitVolume(t *testing.T) {
	k := implicit.New()
	cube, err := k.Cube(r3.Vec{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)

	m, err := k.Triangulate(context.Background(), cube)
	require.NoError(t, err)
	require.Equal(t, 3, m.NumProp)
	require.NotZero(t, m.NumTri())
	assert.InDelta(t, 1.0, rawVolume(m), 0.02)
}

func TestCubeNotCenteredStartsAtOrigin(t *testing.T) {
	k := implicit.New()
	cube, err := k.Cube(r3.Vec{X: 2, Y: 3, Z: 4}, false)
	require.NoError(t, err)
	b := cube.Bounds()
	assert.Equal(t, r3.Vec{}, b.Min)
	assert.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, b.Max)
}

// assertClosed checks that every directed edge has an opposite twin and no
// triangle repeats a vertex.
func assertClosed(t *testing.T, m kernel.RawMesh) {
	t.Helper()
	type edge struct{ a, b uint32 }
	directed := make(map[edge]int)
	for i := 0; i+2 < len(m.TriVerts); i += 3 {
		a, b, c := m.TriVerts[i], m.TriVerts[i+1], m.TriVerts[i+2]
		require.False(t, a == b || b == c || a == c, "triangle %d repeats a vertex", i/3)
		directed[edge{a, b}]++
		directed[edge{b, c}]++
		directed[edge{c, a}]++
	}
	unmatched := 0
	for e, n := range directed {
		if directed[edge{e.b, e.a}] != n {
			unmatched++
		}
	}
	assert.Zero(t, unmatched, "directed edges without an opposite twin")
}

func TestSphereSurfaceIsClosed(t *testing.T) {
	k := implicit.New()
	sphere, err := k.Sphere(0.93, 0)
	require.NoError(t, err)
	m, err := k.Triangulate(context.Background(), sphere)
	require.NoError(t, err)

	assertClosed(t, m)
	want := 4.0 / 3 * math.Pi * math.Pow(0.93, 3)
	assert.InEpsilon(t, want, rawVolume(m), 0.03)
}

func TestSamplesOnSurfaceKeepMeshClosed(t *testing.T) {
	// cell is 1/8 and the grid starts one cell below -1, so whole grid
	// planes land exactly on the faces.
	k := &implicit.Kernel{Resolution: 16, MaxResolution: 16}
	cube, err := k.Cube(r3.Vec{X: 2, Y: 2, Z: 2}, true)
	require.NoError(t, err)
	require.Zero(t, eval3(t, cube, r3.Vec{X: 1, Y: 0.25, Z: -0.5}))
	m, err := k.Triangulate(context.Background(), cube)
	require.NoError(t, err)

	assertClosed(t, m)
	assert.InEpsilon(t, 8.0, rawVolume(m), 0.01)
}

func TestCylinderFrustumDistances(t *testing.T) {
	k := implicit.New()
	cone, err := k.Cylinder(2, 1, 0, 0, false)
	require.NoError(t, err)

	assert.Less(t, eval3(t, cone, r3.Vec{Z: 1}), 0.0)
	assert.InDelta(t, 0.5, eval3(t, cone, r3.Vec{Z: 2.5}), 1e-9)
	assert.InDelta(t, 1.0, eval3(t, cone, r3.Vec{Z: -1}), 1e-9)
	assert.InDelta(t, 0.0, eval3(t, cone, r3.Vec{X: 0.5, Z: 1}), 1e-9)

	b := cone.Bounds()
	assert.Equal(t, r3.Vec{X: -1, Y: -1, Z: 0}, b.Min)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 2}, b.Max)
}

func TestPolygonalCylinderHasFlatSides(t *testing.T) {
	k := implicit.New()
	hex, err := k.Cylinder(1, 1, 1, 6, true)
	require.NoError(t, err)
	apothem := math.Cos(math.Pi / 6)
	// corners lie on the circle, edge midpoints on the apothem
	assert.InDelta(t, 0.0, eval3(t, hex, r3.Vec{X: 1}), 1e-9)
	assert.InDelta(t, 0.0, eval3(t, hex, r3.Vec{X: apothem * math.Cos(math.Pi/6), Y: apothem * math.Sin(math.Pi/6)}), 1e-9)
}

func TestBooleansCombineDistances(t *testing.T) {
	k := implicit.New()
	big, err := k.Cube(r3.Vec{X: 2, Y: 2, Z: 2}, true)
	require.NoError(t, err)
	small, err := k.Sphere(0.5, 0)
	require.NoError(t, err)

	diff, err := k.Boolean(kernel.OpDifference, big, small)
	require.NoError(t, err)
	assert.Greater(t, eval3(t, diff, r3.Vec{}), 0.0)
	assert.Less(t, eval3(t, diff, r3.Vec{X: 0.8}), 0.0)

	inter, err := k.Boolean(kernel.OpIntersection, big, small)
	require.NoError(t, err)
	assert.Less(t, eval3(t, inter, r3.Vec{}), 0.0)
	assert.Greater(t, eval3(t, inter, r3.Vec{X: 0.8}), 0.0)

	far, err := k.Translate(small, r3.Vec{X: 5})
	require.NoError(t, err)
	uni, err := k.Boolean(kernel.OpUnion, big, far)
	require.NoError(t, err)
	assert.Less(t, eval3(t, uni, r3.Vec{X: 5}), 0.0)
	assert.Less(t, eval3(t, uni, r3.Vec{}), 0.0)
	assert.Equal(t, 5.5, uni.Bounds().Max.X)
}

func TestRotateFollowsXThenYThenZ(t *testing.T) {
	k := implicit.New()
	bar, err := k.Cube(r3.Vec{X: 4, Y: 0.5, Z: 0.5}, false)
	require.NoError(t, err)
	// X maps +Y onto +Z, then Z turns the bar from +X onto +Y.
	rotated, err := k.Rotate(bar, r3.Vec{X: 90, Z: 90})
	require.NoError(t, err)
	b := rotated.Bounds()
	assert.InDelta(t, 4, b.Max.Y, 1e-9)
	assert.Less(t, eval3(t, rotated, r3.Vec{X: 0.2, Y: 3, Z: 0.2}), 0.0)
	assert.Greater(t, eval3(t, rotated, r3.Vec{X: -0.2, Y: 3, Z: 0.2}), 0.0)
}

func TestScaleRejectsZero(t *testing.T) {
	k := implicit.New()
	cube, err := k.Cube(r3.Vec{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	_, err = k.Scale(cube, r3.Vec{X: 1, Y: 0, Z: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, kernel.ErrKernel))
}

func TestHull2OfCirclesIsRoundedRectangle(t *testing.T) {
	k := implicit.New()
	var circles []kernel.Section
	for _, c := range []r2.Vec{{X: -4, Y: -2}, {X: 4, Y: -2}, {X: 4, Y: 2}, {X: -4, Y: 2}} {
		circle, err := k.Circle(1, 0)
		require.NoError(t, err)
		moved, err := k.Translate2(circle, c)
		require.NoError(t, err)
		circles = append(circles, moved)
	}
	hull, err := k.Hull2(circles)
	require.NoError(t, err)

	for _, p := range []r2.Vec{
		{X: 5}, {X: -5}, {Y: 3}, {Y: -3},
		{X: 4 + math.Sqrt2/2, Y: 2 + math.Sqrt2/2},
		{X: -4 - math.Sqrt2/2, Y: -2 - math.Sqrt2/2},
	} {
		assert.InDelta(t, 0.0, eval2(t, hull, p), 0.005, "boundary point %v", p)
	}
	assert.InDelta(t, -3.0, eval2(t, hull, r2.Vec{}), 0.005)
}

func TestHull3OfSpheresIsCapsule(t *testing.T) {
	k := implicit.New()
	a, err := k.Sphere(1, 0)
	require.NoError(t, err)
	b, err := k.Translate(a, r3.Vec{Z: 4})
	require.NoError(t, err)
	hull, err := k.Hull([]kernel.Body{a, b})
	require.NoError(t, err)
	assert.Less(t, eval3(t, hull, r3.Vec{Z: 2}), 0.0)
	assert.Less(t, eval3(t, hull, r3.Vec{X: 0.9, Z: 2}), 0.0)
	assert.Greater(t, eval3(t, hull, r3.Vec{X: 1.2, Z: 2}), 0.0)
	assert.InDelta(t, 5.0, hull.Bounds().Max.Z, 1e-9)
}

func TestRevolveFullAndPartial(t *testing.T) {
	k := implicit.New()
	circle, err := k.Circle(1, 0)
	require.NoError(t, err)
	ring, err := k.Translate2(circle, r2.Vec{X: 3})
	require.NoError(t, err)

	torus, err := k.Revolve(ring, 0, 360)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, eval3(t, torus, r3.Vec{X: 3}), 1e-9)
	assert.InDelta(t, -1.0, eval3(t, torus, r3.Vec{Y: -3}), 1e-9)
	assert.InDelta(t, 2.0, eval3(t, torus, r3.Vec{}), 1e-9)

	quarter, err := k.Revolve(ring, 0, 90)
	require.NoError(t, err)
	d45 := 3 / math.Sqrt2
	assert.Less(t, eval3(t, quarter, r3.Vec{X: d45, Y: d45}), 0.0)
	assert.Greater(t, eval3(t, quarter, r3.Vec{X: -3}), 0.0)
}

func TestExtrudeSquare(t *testing.T) {
	k := implicit.New()
	sq, err := k.Square(r2.Vec{X: 2, Y: 2}, true)
	require.NoError(t, err)
	prism, err := k.Extrude(sq, 3, false)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, eval3(t, prism, r3.Vec{Z: 1.5}), 1e-9)
	assert.InDelta(t, 1.0, eval3(t, prism, r3.Vec{Z: 4}), 1e-9)

	m, err := k.Triangulate(context.Background(), prism)
	require.NoError(t, err)
	assert.InEpsilon(t, 12.0, rawVolume(m), 0.02)
}

func TestRefineRaisesResolution(t *testing.T) {
	k := &implicit.Kernel{Resolution: 8, MaxResolution: 64}
	s, err := k.Sphere(1, 0)
	require.NoError(t, err)
	coarse, err := k.Triangulate(context.Background(), s)
	require.NoError(t, err)
	fine, err := k.Refine(s, 4)
	require.NoError(t, err)
	dense, err := k.Triangulate(context.Background(), fine)
	require.NoError(t, err)
	assert.Greater(t, dense.NumTri(), coarse.NumTri())

	_, err = k.Refine(s, 0)
	assert.ErrorIs(t, err, kernel.ErrKernel)
}

func TestTriangulateHonoursCancellation(t *testing.T) {
	k := implicit.New()
	s, err := k.Sphere(1, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.Triangulate(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyIntersectionTriangulatesToNothing(t *testing.T) {
	k := implicit.New()
	a, err := k.Cube(r3.Vec{X: 1, Y: 1, Z: 1}, true)
	require.NoError(t, err)
	b, err := k.Translate(a, r3.Vec{X: 10})
	require.NoError(t, err)
	inter, err := k.Boolean(kernel.OpIntersection, a, b)
	require.NoError(t, err)
	m, err := k.Triangulate(context.Background(), inter)
	require.NoError(t, err)
	assert.Zero(t, m.NumTri())
}

func TestForeignBodyIsKernelError(t *testing.T) {
	k := implicit.New()
	_, err := k.Translate(nil, r3.Vec{})
	var kerr *kernel.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "translate", kerr.Op)
}
