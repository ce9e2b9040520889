package geom

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
	"boxy/internal/mesh"
)

// Operand is the right-hand side of Add and Sub: a Solid, a Profile, or an
// Offset/Offset2 meaning "move by".
type Operand interface {
	operand()
}

// Shape is a Solid or a Profile.
type Shape interface {
	Operand
	Dims() int
}

// Offset is a 3-D translation used as an Operand.
type Offset r3.Vec

func (Offset) operand() {}

// Solid is an immutable 3-D body. The zero value is not a valid solid.
type Solid struct {
	k    kernel.Kernel
	body kernel.Body
	uv   mesh.UVMapper
}

// NewSolid wraps a kernel body.
func NewSolid(k kernel.Kernel, body kernel.Body) Solid {
	return Solid{k: k, body: body}
}

func (Solid) operand() {}

// Dims returns 3.
func (Solid) Dims() int { return 3 }

// IsZero reports whether s holds no body.
func (s Solid) IsZero() bool { return s.body == nil || s.k == nil }

// Body returns the kernel object.
func (s Solid) Body() kernel.Body { return s.body }

// Kernel returns the kernel that owns the body.
func (s Solid) Kernel() kernel.Kernel { return s.k }

// UV returns the attached UV mapper, nil when none was attached.
func (s Solid) UV() mesh.UVMapper { return s.uv }

// WithUV returns a copy of s carrying mapper.
func (s Solid) WithUV(mapper mesh.UVMapper) Solid {
	s.uv = mapper
	return s
}

// Bounds returns the axis-aligned bounds reported by the kernel.
func (s Solid) Bounds() r3.Box {
	if s.IsZero() {
		return r3.Box{}
	}
	return s.body.Bounds()
}

func (s Solid) derive(op string, fn func(kernel.Body) (kernel.Body, error)) (Solid, error) {
	if s.IsZero() {
		return Solid{}, invalidf("%s: empty solid", op)
	}
	body, err := fn(s.body)
	if err != nil {
		return Solid{}, err
	}
	return Solid{k: s.k, body: body, uv: s.uv}, nil
}

func (s Solid) Translate(v r3.Vec) (Solid, error) {
	return s.derive("translate", func(b kernel.Body) (kernel.Body, error) { return s.k.Translate(b, v) })
}

// Rotate rotates about X, then Y, then Z by the given degrees.
func (s Solid) Rotate(degrees r3.Vec) (Solid, error) {
	return s.derive("rotate", func(b kernel.Body) (kernel.Body, error) { return s.k.Rotate(b, degrees) })
}

func (s Solid) Scale(v r3.Vec) (Solid, error) {
	return s.derive("scale", func(b kernel.Body) (kernel.Body, error) { return s.k.Scale(b, v) })
}

// Refine raises the triangulation density of s by a factor of n.
func (s Solid) Refine(n int) (Solid, error) {
	return s.derive("refine", func(b kernel.Body) (kernel.Body, error) { return s.k.Refine(b, n) })
}

func (s Solid) boolean(op kernel.Op, other Solid) (Solid, error) {
	if other.IsZero() {
		return Solid{}, invalidf("%s: empty right operand", op)
	}
	return s.derive(op.String(), func(b kernel.Body) (kernel.Body, error) { return s.k.Boolean(op, b, other.body) })
}

func (s Solid) Union(other Solid) (Solid, error)     { return s.boolean(kernel.OpUnion, other) }
func (s Solid) Subtract(other Solid) (Solid, error)  { return s.boolean(kernel.OpDifference, other) }
func (s Solid) Intersect(other Solid) (Solid, error) { return s.boolean(kernel.OpIntersection, other) }

// Add unions a Solid operand or translates by an Offset.
func (s Solid) Add(op Operand) (Solid, error) {
	switch o := op.(type) {
	case Solid:
		return s.Union(o)
	case Offset:
		return s.Translate(r3.Vec(o))
	case Profile:
		return Solid{}, mismatchf("cannot add a profile to a solid")
	default:
		return Solid{}, invalidf("add: unsupported operand %T", op)
	}
}

// Sub subtracts a Solid operand or translates by the negated Offset.
func (s Solid) Sub(op Operand) (Solid, error) {
	switch o := op.(type) {
	case Solid:
		return s.Subtract(o)
	case Offset:
		return s.Translate(r3.Scale(-1, r3.Vec(o)))
	case Profile:
		return Solid{}, mismatchf("cannot subtract a profile from a solid")
	default:
		return Solid{}, invalidf("subtract: unsupported operand %T", op)
	}
}

// Mesh triangulates s into the kernel's raw buffer.
func (s Solid) Mesh(ctx context.Context) (kernel.RawMesh, error) {
	if s.IsZero() {
		return kernel.RawMesh{}, invalidf("mesh: empty solid")
	}
	return s.k.Triangulate(ctx, s.body)
}
