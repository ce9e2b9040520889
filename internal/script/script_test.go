package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/geom"
	"boxy/internal/kernel/implicit"
	"boxy/internal/mesh"
	"boxy/internal/scene"
)

func newScene() *scene.Context { return scene.NewContext(implicit.New()) }

func run(t *testing.T, src string) (*scene.Context, error) {
	t.Helper()
	sc := newScene()
	return sc, Run(context.Background(), sc, "test.boxy", []byte(src))
}

func TestSplitStatements(t *testing.T) {
	src := "a = 1 # one\n\n" +
		"b = union(\n  x,\n  y\n)\n" +
		"c = \"a#b\" # not a comment inside the string\n" +
		"d = a +\n  2\n"
	stmts, err := split(src)
	require.NoError(t, err)
	require.Len(t, stmts, 4)

	assert.Equal(t, statement{line: 1, text: "a = 1"}, stmts[0])
	assert.Equal(t, 3, stmts[1].line)
	assert.Equal(t, "b = union(\nx,\ny\n)", stmts[1].text)
	assert.Equal(t, `c = "a#b"`, stmts[2].text)
	assert.Equal(t, 8, stmts[3].line)
	assert.Equal(t, "d = a +\n2", stmts[3].text)
}

func TestSplitUnbalanced(t *testing.T) {
	_, err := split("a = 1\nb = f(1))\n")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)

	_, err = split("a = f(\n1,\n")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Line)
}

func TestBindingAndDecorator(t *testing.T) {
	name, src, ok := binding("lid = Box(1)")
	require.True(t, ok)
	assert.Equal(t, "lid", name)
	assert.Equal(t, "Box(1)", src)

	_, _, ok = binding("a == b")
	assert.False(t, ok)
	_, _, ok = binding("register(a)")
	assert.False(t, ok)

	args, ok := decorator(`@add("glass", "lid")`)
	require.True(t, ok)
	assert.Equal(t, `"glass", "lid"`, args)
	args, ok = decorator("@add")
	require.True(t, ok)
	assert.Empty(t, args)
	_, ok = decorator("@remove")
	assert.False(t, ok)
}

func TestPrimitivesAndPipes(t *testing.T) {
	src := `
setDefaultSegments(8)
base = Box(2, 2, 1)         # centred
cube = Box({size: 1, center: false})
moved = base | translate(0, 0, 3)
post = Cylinder({h: 4, d: 1})
`
	sc := newScene()
	h := New(sc)
	require.NoError(t, h.Run(context.Background(), "prims", []byte(src)))
	assert.Equal(t, 8, sc.DefaultSegments())

	base := lookupSolid(t, h, "base")
	assertBox(t, r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -0.5}, Max: r3.Vec{X: 1, Y: 1, Z: 0.5}}, base.Bounds())

	cube := lookupSolid(t, h, "cube")
	assertBox(t, r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, cube.Bounds())

	moved := lookupSolid(t, h, "moved")
	assertBox(t, r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: 2.5}, Max: r3.Vec{X: 1, Y: 1, Z: 3.5}}, moved.Bounds())

	post := lookupSolid(t, h, "post")
	b := post.Bounds()
	assert.InDelta(t, -2, b.Min.Z, 1e-9)
	assert.InDelta(t, 2, b.Max.Z, 1e-9)
	assert.LessOrEqual(t, b.Max.X, 0.5+1e-9)

	assert.Zero(t, sc.Registry.Len(), "bindings alone must not register")
}

func TestRegisterAndDecorator(t *testing.T) {
	src := `
plate = Box(4, 4, 0.5)
@add("wood", "top")
lid = plate | translate(0, 0, 2)
@add
bare = Box(1)
register(Sphere(1), "glass", cylindricalUV([1, 0, 0]))
register(plate, {material: "steel", name: "plate", uv: boxUV()})
`
	sc, err := run(t, src)
	require.NoError(t, err)

	got := sc.Registry.Entries()
	require.Len(t, got, 4)

	assert.Equal(t, "top", got[0].Name)
	assert.Equal(t, "wood", got[0].Material)
	assertBox(t, r3.Box{Min: r3.Vec{X: -2, Y: -2, Z: 1.75}, Max: r3.Vec{X: 2, Y: 2, Z: 2.25}}, got[0].Solid.Bounds())

	assert.Equal(t, "bare", got[1].Name)
	assert.Equal(t, scene.DefaultMaterial, got[1].Material)

	assert.Empty(t, got[2].Name)
	assert.Equal(t, "glass", got[2].Material)
	cyl, ok := got[2].Mapper().(mesh.CylindricalMapper)
	require.True(t, ok, "mapper %T", got[2].Mapper())
	assert.Equal(t, r3.Vec{X: 1}, cyl.Axis)

	assert.Equal(t, "plate", got[3].Name)
	assert.Equal(t, "steel", got[3].Material)
	assert.IsType(t, mesh.BoxMapper{}, got[3].Mapper())
}

func TestDecoratedBindingIsUsable(t *testing.T) {
	src := `
@add("glass")
lid = Box(1)
register(lid | translate(5), "wood")
`
	sc, err := run(t, src)
	require.NoError(t, err)
	got := sc.Registry.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "lid", got[0].Name)
	assert.InDelta(t, 4.5, got[1].Solid.Bounds().Min.X, 1e-9)
}

func TestProfileWorkflow(t *testing.T) {
	src := `
section = subtract(RoundedRectangle(1, 6, 4, true), RoundedRectangle(0.5, 4, 2, true))
ring = revolve(add(rotate(section, 90), [10, 0]), 30, 0, true) | rotate({y: 90})
slab = extrude(Rectangle(2, 3), 1)
register(ring, "checkerboard", cylindricalUV([1, 0, 0]))
register(slab)
`
	sc, err := run(t, src)
	require.NoError(t, err)
	require.Equal(t, 2, sc.Registry.Len())
	slab := sc.Registry.Entries()[1].Solid
	assertBox(t, r3.Box{Max: r3.Vec{X: 2, Y: 3, Z: 1}}, slab.Bounds())
}

func TestAddWithOffsetList(t *testing.T) {
	sc := newScene()
	h := New(sc)
	src := `
a = add(Box(1), [1, 2, 3])
b = subtract(Box(1), [1, 2, 3])
`
	require.NoError(t, h.Run(context.Background(), "offsets", []byte(src)))
	a := lookupSolid(t, h, "a")
	b := lookupSolid(t, h, "b")
	assert.InDelta(t, 1, (a.Bounds().Min.X+a.Bounds().Max.X)/2, 1e-9)
	assert.InDelta(t, 3, (a.Bounds().Min.Z+a.Bounds().Max.Z)/2, 1e-9)
	assert.InDelta(t, -2, (b.Bounds().Min.Y+b.Bounds().Max.Y)/2, 1e-9)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"mixed union", "u = union(Box(1), Circle(1))", geom.ErrTypeMismatch},
		{"solid offset on profile", "p = add(Circle(1), [1, 2, 3])", geom.ErrInvalidArguments},
		{"profile into solid", "s = add(Box(1), Circle(1))", geom.ErrTypeMismatch},
		{"empty union", "u = union()", geom.ErrInvalidArguments},
		{"revolve a solid", "r = revolve(Box(1))", geom.ErrTypeMismatch},
		{"negative segments", "setDefaultSegments(-1)", geom.ErrInvalidArguments},
		{"register a number", "register(3)", geom.ErrInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 1, se.Line)
			assert.Equal(t, "test.boxy", se.File)
		})
	}
}

func TestErrorKeepsEarlierRegistrations(t *testing.T) {
	src := `# header
register(Box(1), "wood")
bad = Box(1) | nosuch(2)
register(Box(2))
`
	sc, err := run(t, src)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Line)
	assert.Contains(t, se.Error(), "test.boxy:3:")
	assert.Equal(t, 1, sc.Registry.Len())
}

func TestErrorLineInsideMultilineStatement(t *testing.T) {
	src := "a = union(\n  Box(1),\n  Box(-1)\n)\n"
	_, err := run(t, src)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.GreaterOrEqual(t, se.Line, 1)
	assert.LessOrEqual(t, se.Line, 3)
}

func TestRebindReserved(t *testing.T) {
	for _, src := range []string{"Box = 1", "pi = 3", "union = Box(1)"} {
		_, err := run(t, src)
		require.Error(t, err, src)
		assert.Contains(t, err.Error(), "cannot rebind")
	}
}

func TestDecoratorNeedsBinding(t *testing.T) {
	for _, src := range []string{"@add\nregister(Box(1))", "@add(\"wood\")", "@add\n@add\nx = Box(1)"} {
		sc, err := run(t, src)
		require.Error(t, err, src)
		assert.Zero(t, sc.Registry.Len())
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, newScene(), "x", []byte("register(Box(1))"))
	assert.ErrorIs(t, err, context.Canceled)
}

func lookupSolid(t *testing.T, h *Host, name string) geom.Solid {
	t.Helper()
	v, ok := h.Lookup(name)
	require.True(t, ok, "%s not bound", name)
	s, ok := v.(geom.Solid)
	require.True(t, ok, "%s is %T", name, v)
	return s
}

func assertBox(t *testing.T, want, got r3.Box) {
	t.Helper()
	const eps = 1e-9
	assert.InDelta(t, want.Min.X, got.Min.X, eps, "min x")
	assert.InDelta(t, want.Min.Y, got.Min.Y, eps, "min y")
	assert.InDelta(t, want.Min.Z, got.Min.Z, eps, "min z")
	assert.InDelta(t, want.Max.X, got.Max.X, eps, "max x")
	assert.InDelta(t, want.Max.Y, got.Max.Y, eps, "max y")
	assert.InDelta(t, want.Max.Z, got.Max.Z, eps, "max z")
}
