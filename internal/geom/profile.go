package geom

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/kernel"
)

// Offset2 is a 2-D translation used as an Operand.
type Offset2 r2.Vec

func (Offset2) operand() {}

// Profile is an immutable 2-D cross-section. The zero value is not a valid profile.
type Profile struct {
	k   kernel.Kernel
	sec kernel.Section
}

// NewProfile wraps a kernel section.
func NewProfile(k kernel.Kernel, sec kernel.Section) Profile {
	return Profile{k: k, sec: sec}
}

func (Profile) operand() {}

// Dims returns 2.
func (Profile) Dims() int { return 2 }

func (p Profile) IsZero() bool { return p.sec == nil || p.k == nil }

func (p Profile) Section() kernel.Section { return p.sec }

func (p Profile) Kernel() kernel.Kernel { return p.k }

func (p Profile) Bounds() r2.Box {
	if p.IsZero() {
		return r2.Box{}
	}
	return p.sec.Bounds()
}

func (p Profile) derive(op string, fn func(kernel.Section) (kernel.Section, error)) (Profile, error) {
	if p.IsZero() {
		return Profile{}, invalidf("%s: empty profile", op)
	}
	sec, err := fn(p.sec)
	if err != nil {
		return Profile{}, err
	}
	return Profile{k: p.k, sec: sec}, nil
}

func (p Profile) Translate(v r2.Vec) (Profile, error) {
	return p.derive("translate", func(s kernel.Section) (kernel.Section, error) { return p.k.Translate2(s, v) })
}

// Rotate turns the profile counter-clockwise by degrees about the origin.
func (p Profile) Rotate(degrees float64) (Profile, error) {
	return p.derive("rotate", func(s kernel.Section) (kernel.Section, error) { return p.k.Rotate2(s, degrees) })
}

func (p Profile) Scale(v r2.Vec) (Profile, error) {
	return p.derive("scale", func(s kernel.Section) (kernel.Section, error) { return p.k.Scale2(s, v) })
}

func (p Profile) boolean(op kernel.Op, other Profile) (Profile, error) {
	if other.IsZero() {
		return Profile{}, invalidf("%s: empty right operand", op)
	}
	return p.derive(op.String(), func(s kernel.Section) (kernel.Section, error) { return p.k.Boolean2(op, s, other.sec) })
}

func (p Profile) Union(other Profile) (Profile, error)     { return p.boolean(kernel.OpUnion, other) }
func (p Profile) Subtract(other Profile) (Profile, error)  { return p.boolean(kernel.OpDifference, other) }
func (p Profile) Intersect(other Profile) (Profile, error) { return p.boolean(kernel.OpIntersection, other) }

// Add unions a Profile operand or translates by an Offset2.
func (p Profile) Add(op Operand) (Profile, error) {
	switch o := op.(type) {
	case Profile:
		return p.Union(o)
	case Offset2:
		return p.Translate(r2.Vec(o))
	case Solid:
		return Profile{}, mismatchf("cannot add a solid to a profile")
	default:
		return Profile{}, invalidf("add: unsupported operand %T", op)
	}
}

// Sub subtracts a Profile operand or translates by the negated Offset2.
func (p Profile) Sub(op Operand) (Profile, error) {
	switch o := op.(type) {
	case Profile:
		return p.Subtract(o)
	case Offset2:
		return p.Translate(r2.Scale(-1, r2.Vec(o)))
	case Solid:
		return Profile{}, mismatchf("cannot subtract a solid from a profile")
	default:
		return Profile{}, invalidf("subtract: unsupported operand %T", op)
	}
}

// Revolve sweeps the profile about its Y axis; the result stands on Z.
// degrees 0 is a full turn. insideOut turns the result by -degrees/2 about
// Z so a partial sweep is centred on the X axis.
func (p Profile) Revolve(degrees float64, segments int, insideOut bool) (Solid, error) {
	if p.IsZero() {
		return Solid{}, invalidf("revolve: empty profile")
	}
	if degrees == 0 {
		degrees = 360
	}
	if segments < 0 {
		return Solid{}, invalidf("revolve: negative segment count %d", segments)
	}
	body, err := p.k.Revolve(p.sec, segments, degrees)
	if err != nil {
		return Solid{}, err
	}
	s := Solid{k: p.k, body: body}
	if insideOut {
		return s.Rotate(r3.Vec{Z: -degrees / 2})
	}
	return s, nil
}

// Extrude lifts the profile along Z.
func (p Profile) Extrude(height float64, center bool) (Solid, error) {
	if p.IsZero() {
		return Solid{}, invalidf("extrude: empty profile")
	}
	body, err := p.k.Extrude(p.sec, height, center)
	if err != nil {
		return Solid{}, err
	}
	return Solid{k: p.k, body: body}, nil
}
