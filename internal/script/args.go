package script

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/geom"
	"boxy/internal/mesh"
)

// args is the argument list of one script call: positional values, or the
// keys of a single map literal.
type args struct {
	fn    string
	pos   []any
	named map[string]any
}

func newArgs(fn string, params []any) *args {
	if len(params) == 1 {
		if m, ok := params[0].(map[string]any); ok {
			return &args{fn: fn, named: m}
		}
	}
	return &args{fn: fn, pos: params}
}

func (a *args) errorf(format string, v ...any) error {
	return fmt.Errorf("%w: %s: %s", geom.ErrInvalidArguments, a.fn, fmt.Sprintf(format, v...))
}

// get returns the first present key.
func (a *args) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := a.named[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// popBool removes and returns a trailing boolean positional argument.
func (a *args) popBool() (value, ok bool) {
	if n := len(a.pos); n > 0 {
		if b, isBool := a.pos[n-1].(bool); isBool {
			a.pos = a.pos[:n-1]
			return b, true
		}
	}
	return false, false
}

func (a *args) check(lo, hi int) error {
	if len(a.pos) < lo || len(a.pos) > hi {
		if lo == hi {
			return a.errorf("want %d arguments, got %d", lo, len(a.pos))
		}
		return a.errorf("want %d to %d arguments, got %d", lo, hi, len(a.pos))
	}
	return nil
}

func (a *args) number(v any, what string) (float64, error) {
	f, ok := geom.Scalar(v)
	if !ok {
		return 0, a.errorf("%s: want a number, got %T", what, v)
	}
	return f, nil
}

func (a *args) integer(v any, what string) (int, error) {
	f, err := a.number(v, what)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, a.errorf("%s: want a whole number, got %g", what, f)
	}
	return int(f), nil
}

func (a *args) boolean(v any, what string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, a.errorf("%s: want true or false, got %T", what, v)
	}
	return b, nil
}

func (a *args) str(v any, what string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", a.errorf("%s: want a string, got %T", what, v)
	}
	return s, nil
}

// optNumber reads a named number, reporting whether it was present.
func (a *args) optNumber(keys ...string) (*float64, error) {
	v, ok := a.get(keys...)
	if !ok {
		return nil, nil
	}
	f, err := a.number(v, keys[0])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (a *args) optInt(def int, keys ...string) (int, error) {
	v, ok := a.get(keys...)
	if !ok {
		return def, nil
	}
	return a.integer(v, keys[0])
}

func (a *args) optBool(def bool, keys ...string) (bool, error) {
	v, ok := a.get(keys...)
	if !ok {
		return def, nil
	}
	return a.boolean(v, keys[0])
}

// vec3 normalizes up to three positional coordinate values.
func vec3(vals []any) (r3.Vec, error) {
	var c [3]any
	if len(vals) == 0 || len(vals) > 3 {
		return r3.Vec{}, fmt.Errorf("%w: want 1 to 3 coordinates, got %d", geom.ErrInvalidArguments, len(vals))
	}
	copy(c[:], vals)
	return geom.Normalize3(c[0], c[1], c[2])
}

func vec2(vals []any) (r2.Vec, error) {
	var c [2]any
	if len(vals) == 0 || len(vals) > 2 {
		return r2.Vec{}, fmt.Errorf("%w: want 1 or 2 coordinates, got %d", geom.ErrInvalidArguments, len(vals))
	}
	copy(c[:], vals)
	return geom.Normalize2(c[0], c[1])
}

// namedVec3 reads a coordinate from a map, either whole under one key or as
// separate x, y and z keys. Missing y and z follow the normalizer's
// broadcast rule. The bool reports whether any key was present.
func (a *args) namedVec3(whole string) (r3.Vec, bool, error) {
	if v, ok := a.named[whole]; ok {
		p, err := geom.Normalize3(v, nil, nil)
		return p, true, err
	}
	x, hx := a.named["x"]
	y, hy := a.named["y"]
	z, hz := a.named["z"]
	if !hx && !hy && !hz {
		return r3.Vec{}, false, nil
	}
	if !hx {
		return r3.Vec{}, true, a.errorf("x is required when y or z is given")
	}
	p, err := geom.Normalize3(x, y, z)
	return p, true, err
}

func (a *args) namedVec2(whole string) (r2.Vec, bool, error) {
	if v, ok := a.named[whole]; ok {
		p, err := geom.Normalize2(v, nil)
		return p, true, err
	}
	x, hx := a.named["x"]
	y, hy := a.named["y"]
	if !hx && !hy {
		return r2.Vec{}, false, nil
	}
	if !hx {
		return r2.Vec{}, true, a.errorf("x is required when y is given")
	}
	p, err := geom.Normalize2(x, y)
	return p, true, err
}

func solid(fn string, v any) (geom.Solid, error) {
	switch s := v.(type) {
	case geom.Solid:
		return s, nil
	case geom.Profile:
		return geom.Solid{}, fmt.Errorf("%w: %s: want a solid, got a profile", geom.ErrTypeMismatch, fn)
	default:
		return geom.Solid{}, fmt.Errorf("%w: %s: want a solid, got %T", geom.ErrInvalidArguments, fn, v)
	}
}

func profile(fn string, v any) (geom.Profile, error) {
	switch p := v.(type) {
	case geom.Profile:
		return p, nil
	case geom.Solid:
		return geom.Profile{}, fmt.Errorf("%w: %s: want a profile, got a solid", geom.ErrTypeMismatch, fn)
	default:
		return geom.Profile{}, fmt.Errorf("%w: %s: want a profile, got %T", geom.ErrInvalidArguments, fn, v)
	}
}

func mapper(fn string, v any) (mesh.UVMapper, error) {
	m, ok := v.(mesh.UVMapper)
	if !ok {
		return nil, fmt.Errorf("%w: %s: want a uv mapper, got %T", geom.ErrInvalidArguments, fn, v)
	}
	return m, nil
}

// operand turns the right-hand side of add/subtract into geometry or an
// offset of the left side's dimension.
func operand(fn string, dims int, v any) (geom.Operand, error) {
	switch o := v.(type) {
	case geom.Solid:
		return o, nil
	case geom.Profile:
		return o, nil
	}
	seq, err := geom.Sequence(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if len(seq) != dims {
		return nil, fmt.Errorf("%w: %s: offset needs %d coordinates, got %d", geom.ErrInvalidArguments, fn, dims, len(seq))
	}
	if dims == 3 {
		return geom.Offset{X: seq[0], Y: seq[1], Z: seq[2]}, nil
	}
	return geom.Offset2{X: seq[0], Y: seq[1]}, nil
}
