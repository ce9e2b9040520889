package geom

import (
	"reflect"

	"boxy/internal/kernel"
)

// Union combines any number of solids or profiles. Items may be passed flat
// or as one (possibly nested) slice; the first item decides the family.
func Union(items ...any) (Shape, error) {
	return batch("union", items,
		func(k kernel.Kernel, b []kernel.Body) (kernel.Body, error) { return k.BatchUnion(b) },
		func(k kernel.Kernel, s []kernel.Section) (kernel.Section, error) { return k.BatchUnion2(s) })
}

// Hull returns the convex hull of any number of solids or profiles, with the
// same argument rules as Union.
func Hull(items ...any) (Shape, error) {
	return batch("hull", items,
		func(k kernel.Kernel, b []kernel.Body) (kernel.Body, error) { return k.Hull(b) },
		func(k kernel.Kernel, s []kernel.Section) (kernel.Section, error) { return k.Hull2(s) })
}

// UnionSolids is Union for a known list of solids.
func UnionSolids(items ...Solid) (Solid, error) {
	shape, err := Union(items)
	if err != nil {
		return Solid{}, err
	}
	return shape.(Solid), nil
}

// HullProfiles is Hull for a known list of profiles.
func HullProfiles(items ...Profile) (Profile, error) {
	shape, err := Hull(items)
	if err != nil {
		return Profile{}, err
	}
	return shape.(Profile), nil
}

func batch(
	op string,
	items []any,
	solids func(kernel.Kernel, []kernel.Body) (kernel.Body, error),
	profiles func(kernel.Kernel, []kernel.Section) (kernel.Section, error),
) (Shape, error) {
	shapes, err := flatten(op, items, nil)
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, invalidf("%s: no items", op)
	}
	switch first := shapes[0].(type) {
	case Solid:
		bodies := make([]kernel.Body, len(shapes))
		for i, sh := range shapes {
			s, ok := sh.(Solid)
			if !ok {
				return nil, mismatchf("%s: item %d is a profile, item 0 is a solid", op, i)
			}
			if s.IsZero() {
				return nil, invalidf("%s: item %d is an empty solid", op, i)
			}
			bodies[i] = s.body
		}
		body, err := solids(first.k, bodies)
		if err != nil {
			return nil, err
		}
		return Solid{k: first.k, body: body, uv: first.uv}, nil
	case Profile:
		secs := make([]kernel.Section, len(shapes))
		for i, sh := range shapes {
			p, ok := sh.(Profile)
			if !ok {
				return nil, mismatchf("%s: item %d is a solid, item 0 is a profile", op, i)
			}
			if p.IsZero() {
				return nil, invalidf("%s: item %d is an empty profile", op, i)
			}
			secs[i] = p.sec
		}
		sec, err := profiles(first.k, secs)
		if err != nil {
			return nil, err
		}
		return Profile{k: first.k, sec: sec}, nil
	default:
		return nil, invalidf("%s: unsupported item %T", op, first)
	}
}

// flatten expands nested slices of shapes into out.
func flatten(op string, items []any, out []Shape) ([]Shape, error) {
	for _, it := range items {
		switch v := it.(type) {
		case Solid:
			out = append(out, v)
		case Profile:
			out = append(out, v)
		case nil:
			return nil, invalidf("%s: nil item", op)
		default:
			rv := reflect.ValueOf(it)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return nil, invalidf("%s: unsupported item %T", op, it)
			}
			nested := make([]any, rv.Len())
			for i := range nested {
				nested[i] = rv.Index(i).Interface()
			}
			var err error
			if out, err = flatten(op, nested, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
