// Package kernel defines the contract between the geometry algebra and the
// solid-modeling kernel that owns the actual shape representation.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body is an opaque 3-D kernel object.
type Body interface {
	Bounds() r3.Box
}

// Section is an opaque 2-D kernel object (a cross-section).
type Section interface {
	Bounds() r2.Box
}

// Op selects a binary boolean operation.
type Op uint8

const (
	// OpUnion keeps everything covered by either operand.
	OpUnion Op = iota + 1
	// OpDifference removes the right operand from the left one.
	OpDifference
	// OpIntersection keeps only the overlap.
	OpIntersection
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// Kernel builds, combines and triangulates shapes. Implementations must be
// safe for concurrent use: separate compiles share one kernel value.
type Kernel interface {
	Cube(size r3.Vec, center bool) (Body, error)
	Sphere(radius float64, segments int) (Body, error)
	// Cylinder builds a frustum along +Z with radius r1 at the bottom and r2 at the top.
	Cylinder(height, r1, r2 float64, segments int, center bool) (Body, error)
	Square(size r2.Vec, center bool) (Section, error)
	Circle(radius float64, segments int) (Section, error)

	Translate(b Body, v r3.Vec) (Body, error)
	// Rotate applies rotations about X, then Y, then Z. Angles are degrees.
	Rotate(b Body, degrees r3.Vec) (Body, error)
	Scale(b Body, v r3.Vec) (Body, error)
	Translate2(s Section, v r2.Vec) (Section, error)
	Rotate2(s Section, degrees float64) (Section, error)
	Scale2(s Section, v r2.Vec) (Section, error)

	Boolean(op Op, a, b Body) (Body, error)
	Boolean2(op Op, a, b Section) (Section, error)
	BatchUnion(bodies []Body) (Body, error)
	BatchUnion2(sections []Section) (Section, error)
	Hull(bodies []Body) (Body, error)
	Hull2(sections []Section) (Section, error)

	// Revolve sweeps the section around its Y axis, which becomes the Z axis of the result.
	Revolve(s Section, segments int, degrees float64) (Body, error)
	Extrude(s Section, height float64, center bool) (Body, error)
	Refine(b Body, n int) (Body, error)

	Triangulate(ctx context.Context, b Body) (RawMesh, error)
}

// RawMesh is the triangulation buffer produced by a kernel. It may contain
// duplicate or degenerate faces and unreferenced vertices.
type RawMesh struct {
	// NumProp is the number of float properties per vertex; the first three are X, Y, Z.
	NumProp        int
	VertProperties []float64
	TriVerts       []uint32
}

// NumVert returns the number of vertices in the buffer.
func (m RawMesh) NumVert() int {
	if m.NumProp <= 0 {
		return 0
	}
	return len(m.VertProperties) / m.NumProp
}

// NumTri returns the number of triangles in the buffer.
func (m RawMesh) NumTri() int {
	return len(m.TriVerts) / 3
}

// ErrKernel marks failures raised inside the kernel.
var ErrKernel = errors.New("kernel error")

// Error describes a failed kernel operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("kernel: %s failed", e.Op)
	}
	return fmt.Sprintf("kernel: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrKernel.
func (e *Error) Is(target error) bool { return target == ErrKernel }

// Errorf builds a kernel error for op.
func Errorf(op, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}
