// Package geom is the authoring algebra: immutable Solid and Profile handles
// over kernel objects, the primitive builder and coordinate normalization.
package geom

import (
	"errors"
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidArguments marks malformed arguments such as a coordinate of
	// the wrong shape or a non-positive size.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrTypeMismatch marks a Profile combined with a Solid.
	ErrTypeMismatch = errors.New("type mismatch")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

func mismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// Normalize3 turns flexible coordinate arguments into a vector. A nil y or z
// is absent. A scalar x fills every absent component, so (5) is (5,5,5) and
// (5,2) is (5,2,5). A sequence x of length 3 is taken as is and requires y and
// z to be absent.
func Normalize3(x, y, z any) (r3.Vec, error) {
	vals, err := normalize(3, x, y, z)
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// Normalize2 is Normalize3 for pairs.
func Normalize2(x, y any) (r2.Vec, error) {
	vals, err := normalize(2, x, y)
	if err != nil {
		return r2.Vec{}, err
	}
	return r2.Vec{X: vals[0], Y: vals[1]}, nil
}

func normalize(dims int, x any, rest ...any) ([]float64, error) {
	if x == nil {
		return nil, invalidf("missing coordinate")
	}
	if v, ok := Scalar(x); ok {
		out := make([]float64, dims)
		out[0] = v
		for i, r := range rest {
			if r == nil {
				out[i+1] = v
				continue
			}
			f, ok := Scalar(r)
			if !ok {
				return nil, invalidf("coordinate %d: want a number, got %T", i+1, r)
			}
			out[i+1] = f
		}
		return out, nil
	}
	seq, err := Sequence(x)
	if err != nil {
		return nil, err
	}
	for _, r := range rest {
		if r != nil {
			return nil, invalidf("a coordinate sequence cannot be combined with more components")
		}
	}
	if len(seq) != dims {
		return nil, invalidf("want %d coordinates, got %d", dims, len(seq))
	}
	return seq, nil
}

// Scalar converts any Go integer or float value to float64.
func Scalar(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// Sequence converts a vector, array or slice of numbers to []float64.
func Sequence(v any) ([]float64, error) {
	switch s := v.(type) {
	case r3.Vec:
		return []float64{s.X, s.Y, s.Z}, nil
	case r2.Vec:
		return []float64{s.X, s.Y}, nil
	case Offset:
		return []float64{s.X, s.Y, s.Z}, nil
	case Offset2:
		return []float64{s.X, s.Y}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, invalidf("want a number or a coordinate sequence, got %T", v)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := Scalar(rv.Index(i).Interface())
		if !ok {
			return nil, invalidf("coordinate %d: want a number, got %T", i, rv.Index(i).Interface())
		}
		out[i] = f
	}
	return out, nil
}
