package script

import (
	"fmt"

	"github.com/expr-lang/expr"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/geom"
	"boxy/internal/mesh"
	"boxy/internal/scene"
)

type builtin func(params ...any) (any, error)

// builtins returns the functions scripts can call, keyed by name.
func (h *Host) builtins() map[string]builtin {
	return map[string]builtin{
		"Box":              h.box,
		"Cuboid":           h.box,
		"Sphere":           h.sphere,
		"Cylinder":         h.cylinder,
		"Rectangle":        h.rectangle,
		"Circle":           h.circle,
		"RoundedRectangle": h.roundedRectangle,

		"translate": translate,
		"rotate":    rotate,
		"scale":     scale,
		"add":       add,
		"subtract":  subtract,
		"intersect": intersect,
		"union":     func(p ...any) (any, error) { return geom.Union(p...) },
		"hull":      func(p ...any) (any, error) { return geom.Hull(p...) },
		"revolve":   revolve,
		"extrude":   extrude,
		"refine":    refine,
		"withUV":    withUV,

		"register":           h.register,
		"setDefaultSegments": h.setDefaultSegments,
		"boxUV":              boxUV,
		"cylindricalUV":      cylindricalUV,
	}
}

func (h *Host) exprOptions() []expr.Option {
	fns := h.builtins()
	opts := make([]expr.Option, 0, len(fns))
	for name, fn := range fns {
		opts = append(opts, expr.Function(name, fn))
	}
	return opts
}

// Box(x[, y, z][, center]) or Box({size|x,y,z, center}). Centred by default.
func (h *Host) box(params ...any) (any, error) {
	a := newArgs("Box", params)
	var (
		size   r3.Vec
		center = true
		err    error
	)
	if a.named != nil {
		var ok bool
		if size, ok, err = a.namedVec3("size"); err != nil {
			return nil, err
		} else if !ok {
			return nil, a.errorf("size is required")
		}
		if center, err = a.optBool(true, "center"); err != nil {
			return nil, err
		}
	} else {
		if c, ok := a.popBool(); ok {
			center = c
		}
		if size, err = vec3(a.pos); err != nil {
			return nil, fmt.Errorf("Box: %w", err)
		}
	}
	return h.sc.Box(size, center)
}

// Sphere(r[, segments]) or Sphere({r|radius|d, segments}).
func (h *Host) sphere(params ...any) (any, error) {
	a := newArgs("Sphere", params)
	var (
		r        float64
		segments int
		err      error
	)
	if a.named != nil {
		if r, err = radius(a); err != nil {
			return nil, err
		}
		if segments, err = a.optInt(0, "segments"); err != nil {
			return nil, err
		}
	} else {
		if err = a.check(1, 2); err != nil {
			return nil, err
		}
		if r, err = a.number(a.pos[0], "radius"); err != nil {
			return nil, err
		}
		if len(a.pos) == 2 {
			if segments, err = a.integer(a.pos[1], "segments"); err != nil {
				return nil, err
			}
		}
	}
	return h.sc.Sphere(r, segments)
}

// radius reads r, radius or d (as a diameter) from a map.
func radius(a *args) (float64, error) {
	if v, ok := a.get("r", "radius"); ok {
		return a.number(v, "radius")
	}
	if v, ok := a.get("d", "diameter"); ok {
		d, err := a.number(v, "diameter")
		return d / 2, err
	}
	return 0, a.errorf("radius is required")
}

// Cylinder(h, r1[, r2][, center]) or
// Cylinder({h|height, r|r1, r2, d|d1, d2, center, segments}). Centred by default.
func (h *Host) cylinder(params ...any) (any, error) {
	a := newArgs("Cylinder", params)
	p := geom.CylinderParams{Center: true}
	var err error
	if a.named != nil {
		v, ok := a.get("h", "height")
		if !ok {
			return nil, a.errorf("height is required")
		}
		if p.Height, err = a.number(v, "height"); err != nil {
			return nil, err
		}
		if p.R1, err = a.optNumber("r1", "r"); err != nil {
			return nil, err
		}
		if p.R2, err = a.optNumber("r2"); err != nil {
			return nil, err
		}
		if p.D1, err = a.optNumber("d1", "d"); err != nil {
			return nil, err
		}
		if p.D2, err = a.optNumber("d2"); err != nil {
			return nil, err
		}
		if p.Center, err = a.optBool(true, "center"); err != nil {
			return nil, err
		}
		if p.Segments, err = a.optInt(0, "segments"); err != nil {
			return nil, err
		}
	} else {
		if c, ok := a.popBool(); ok {
			p.Center = c
		}
		if err = a.check(2, 3); err != nil {
			return nil, err
		}
		if p.Height, err = a.number(a.pos[0], "height"); err != nil {
			return nil, err
		}
		r1, err := a.number(a.pos[1], "r1")
		if err != nil {
			return nil, err
		}
		p.R1 = &r1
		if len(a.pos) == 3 {
			r2, err := a.number(a.pos[2], "r2")
			if err != nil {
				return nil, err
			}
			p.R2 = &r2
		}
	}
	return h.sc.Cylinder(p)
}

// Rectangle(x[, y][, center]) or Rectangle({size|x,y, center}).
func (h *Host) rectangle(params ...any) (any, error) {
	a := newArgs("Rectangle", params)
	var (
		size   r2.Vec
		center bool
		err    error
	)
	if a.named != nil {
		var ok bool
		if size, ok, err = a.namedVec2("size"); err != nil {
			return nil, err
		} else if !ok {
			return nil, a.errorf("size is required")
		}
		if center, err = a.optBool(false, "center"); err != nil {
			return nil, err
		}
	} else {
		center, _ = a.popBool()
		if size, err = vec2(a.pos); err != nil {
			return nil, fmt.Errorf("Rectangle: %w", err)
		}
	}
	return h.sc.Rectangle(size, center)
}

// Circle(r[, segments]) or Circle({r|radius|d, segments}).
func (h *Host) circle(params ...any) (any, error) {
	a := newArgs("Circle", params)
	var (
		r        float64
		segments int
		err      error
	)
	if a.named != nil {
		if r, err = radius(a); err != nil {
			return nil, err
		}
		if segments, err = a.optInt(0, "segments"); err != nil {
			return nil, err
		}
	} else {
		if err = a.check(1, 2); err != nil {
			return nil, err
		}
		if r, err = a.number(a.pos[0], "radius"); err != nil {
			return nil, err
		}
		if len(a.pos) == 2 {
			if segments, err = a.integer(a.pos[1], "segments"); err != nil {
				return nil, err
			}
		}
	}
	return h.sc.Circle(r, segments)
}

// RoundedRectangle(r, w[, h][, center]) or
// RoundedRectangle({r|roundness, size|w,h, center, segments}).
func (h *Host) roundedRectangle(params ...any) (any, error) {
	a := newArgs("RoundedRectangle", params)
	var (
		r        float64
		size     r2.Vec
		center   bool
		segments int
		err      error
	)
	if a.named != nil {
		v, ok := a.get("r", "roundness", "radius")
		if !ok {
			return nil, a.errorf("corner radius is required")
		}
		if r, err = a.number(v, "radius"); err != nil {
			return nil, err
		}
		if v, ok := a.get("size"); ok {
			if size, err = geom.Normalize2(v, nil); err != nil {
				return nil, err
			}
		} else {
			w, hasW := a.get("w", "width")
			if !hasW {
				return nil, a.errorf("width is required")
			}
			ht, _ := a.get("h", "height")
			if size, err = geom.Normalize2(w, ht); err != nil {
				return nil, err
			}
		}
		if center, err = a.optBool(false, "center"); err != nil {
			return nil, err
		}
		if segments, err = a.optInt(0, "segments"); err != nil {
			return nil, err
		}
	} else {
		center, _ = a.popBool()
		if err = a.check(2, 3); err != nil {
			return nil, err
		}
		if r, err = a.number(a.pos[0], "radius"); err != nil {
			return nil, err
		}
		if size, err = vec2(a.pos[1:]); err != nil {
			return nil, fmt.Errorf("RoundedRectangle: %w", err)
		}
	}
	return h.sc.RoundedRectangle(r, size, segments, center)
}

// translate(shape, x[, y, z]).
func translate(params ...any) (any, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("%w: translate: want a shape and an offset", geom.ErrInvalidArguments)
	}
	switch s := params[0].(type) {
	case geom.Solid:
		v, err := vec3(params[1:])
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		return s.Translate(v)
	case geom.Profile:
		v, err := vec2(params[1:])
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		return s.Translate(v)
	default:
		return nil, fmt.Errorf("%w: translate: want a shape, got %T", geom.ErrInvalidArguments, params[0])
	}
}

// rotate(solid, x[, y, z]), rotate(solid, {x, y, z}) or rotate(profile, degrees).
func rotate(params ...any) (any, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("%w: rotate: want a shape and an angle", geom.ErrInvalidArguments)
	}
	switch s := params[0].(type) {
	case geom.Solid:
		if m, ok := params[1].(map[string]any); ok && len(params) == 2 {
			a := &args{fn: "rotate", named: m}
			var deg [3]float64
			for i, k := range []string{"x", "y", "z"} {
				if v, ok := m[k]; ok {
					f, err := a.number(v, k)
					if err != nil {
						return nil, err
					}
					deg[i] = f
				}
			}
			return s.Rotate(r3.Vec{X: deg[0], Y: deg[1], Z: deg[2]})
		}
		v, err := vec3(params[1:])
		if err != nil {
			return nil, fmt.Errorf("rotate: %w", err)
		}
		return s.Rotate(v)
	case geom.Profile:
		a := newArgs("rotate", params[1:])
		if err := a.check(1, 1); err != nil {
			return nil, err
		}
		deg, err := a.number(a.pos[0], "degrees")
		if err != nil {
			return nil, err
		}
		return s.Rotate(deg)
	default:
		return nil, fmt.Errorf("%w: rotate: want a shape, got %T", geom.ErrInvalidArguments, params[0])
	}
}

// scale(shape, x[, y, z]).
func scale(params ...any) (any, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("%w: scale: want a shape and factors", geom.ErrInvalidArguments)
	}
	switch s := params[0].(type) {
	case geom.Solid:
		v, err := vec3(params[1:])
		if err != nil {
			return nil, fmt.Errorf("scale: %w", err)
		}
		return s.Scale(v)
	case geom.Profile:
		v, err := vec2(params[1:])
		if err != nil {
			return nil, fmt.Errorf("scale: %w", err)
		}
		return s.Scale(v)
	default:
		return nil, fmt.Errorf("%w: scale: want a shape, got %T", geom.ErrInvalidArguments, params[0])
	}
}

// binary applies add/subtract/intersect to a pair.
func binary(fn string, params []any, offsets bool,
	onSolid func(geom.Solid, geom.Operand) (geom.Solid, error),
	onProfile func(geom.Profile, geom.Operand) (geom.Profile, error),
) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%w: %s: want 2 arguments, got %d", geom.ErrInvalidArguments, fn, len(params))
	}
	dims := 0
	switch params[0].(type) {
	case geom.Solid:
		dims = 3
	case geom.Profile:
		dims = 2
	default:
		return nil, fmt.Errorf("%w: %s: want a shape, got %T", geom.ErrInvalidArguments, fn, params[0])
	}
	var (
		op  geom.Operand
		err error
	)
	if offsets {
		op, err = operand(fn, dims, params[1])
	} else if sh, ok := params[1].(geom.Shape); ok {
		op = sh
	} else {
		err = fmt.Errorf("%w: %s: want a shape, got %T", geom.ErrInvalidArguments, fn, params[1])
	}
	if err != nil {
		return nil, err
	}
	if dims == 3 {
		return onSolid(params[0].(geom.Solid), op)
	}
	return onProfile(params[0].(geom.Profile), op)
}

// add(a, b) unions two shapes or moves a by the coordinate list b.
func add(params ...any) (any, error) {
	return binary("add", params, true, geom.Solid.Add, geom.Profile.Add)
}

// subtract(a, b) cuts b from a or moves a by the negated coordinate list b.
func subtract(params ...any) (any, error) {
	return binary("subtract", params, true, geom.Solid.Sub, geom.Profile.Sub)
}

func intersect(params ...any) (any, error) {
	return binary("intersect", params, false,
		func(s geom.Solid, op geom.Operand) (geom.Solid, error) {
			o, ok := op.(geom.Solid)
			if !ok {
				return geom.Solid{}, fmt.Errorf("%w: intersect: cannot intersect a solid with a profile", geom.ErrTypeMismatch)
			}
			return s.Intersect(o)
		},
		func(p geom.Profile, op geom.Operand) (geom.Profile, error) {
			o, ok := op.(geom.Profile)
			if !ok {
				return geom.Profile{}, fmt.Errorf("%w: intersect: cannot intersect a profile with a solid", geom.ErrTypeMismatch)
			}
			return p.Intersect(o)
		})
}

// revolve(profile[, degrees[, segments[, insideOut]]]) or
// revolve(profile, {degrees, segments, insideOut}).
func revolve(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: revolve: want a profile", geom.ErrInvalidArguments)
	}
	p, err := profile("revolve", params[0])
	if err != nil {
		return nil, err
	}
	a := newArgs("revolve", params[1:])
	degrees, segments, insideOut := 360.0, 0, false
	if a.named != nil {
		if v, ok := a.get("degrees"); ok {
			if degrees, err = a.number(v, "degrees"); err != nil {
				return nil, err
			}
		}
		if segments, err = a.optInt(0, "segments"); err != nil {
			return nil, err
		}
		if insideOut, err = a.optBool(false, "insideOut"); err != nil {
			return nil, err
		}
	} else {
		if err = a.check(0, 3); err != nil {
			return nil, err
		}
		if len(a.pos) > 0 {
			if degrees, err = a.number(a.pos[0], "degrees"); err != nil {
				return nil, err
			}
		}
		if len(a.pos) > 1 {
			if segments, err = a.integer(a.pos[1], "segments"); err != nil {
				return nil, err
			}
		}
		if len(a.pos) > 2 {
			if insideOut, err = a.boolean(a.pos[2], "insideOut"); err != nil {
				return nil, err
			}
		}
	}
	return p.Revolve(degrees, segments, insideOut)
}

// extrude(profile, height[, center]).
func extrude(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: extrude: want a profile", geom.ErrInvalidArguments)
	}
	p, err := profile("extrude", params[0])
	if err != nil {
		return nil, err
	}
	a := newArgs("extrude", params[1:])
	center, _ := a.popBool()
	if err := a.check(1, 1); err != nil {
		return nil, err
	}
	height, err := a.number(a.pos[0], "height")
	if err != nil {
		return nil, err
	}
	return p.Extrude(height, center)
}

// refine(solid, n).
func refine(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%w: refine: want a solid and a factor", geom.ErrInvalidArguments)
	}
	s, err := solid("refine", params[0])
	if err != nil {
		return nil, err
	}
	n, err := (&args{fn: "refine"}).integer(params[1], "n")
	if err != nil {
		return nil, err
	}
	return s.Refine(n)
}

// withUV(solid, mapper).
func withUV(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%w: withUV: want a solid and a mapper", geom.ErrInvalidArguments)
	}
	s, err := solid("withUV", params[0])
	if err != nil {
		return nil, err
	}
	m, err := mapper("withUV", params[1])
	if err != nil {
		return nil, err
	}
	return s.WithUV(m), nil
}

// registration reads material, name and mapper from a positional list
// (strings in that order, a mapper anywhere) or from one map.
func registration(fn string, params []any) (material string, opts []scene.Option, err error) {
	a := newArgs(fn, params)
	if a.named != nil {
		if v, ok := a.get("material"); ok {
			if material, err = a.str(v, "material"); err != nil {
				return "", nil, err
			}
		}
		if v, ok := a.get("name"); ok {
			name, err := a.str(v, "name")
			if err != nil {
				return "", nil, err
			}
			opts = append(opts, scene.WithName(name))
		}
		if v, ok := a.get("uv", "uvMapper"); ok {
			m, err := mapper(fn, v)
			if err != nil {
				return "", nil, err
			}
			opts = append(opts, scene.WithUV(m))
		}
		return material, opts, nil
	}
	strs := 0
	for _, v := range a.pos {
		switch x := v.(type) {
		case string:
			switch strs {
			case 0:
				material = x
			case 1:
				opts = append(opts, scene.WithName(x))
			default:
				return "", nil, a.errorf("too many strings")
			}
			strs++
		case mesh.UVMapper:
			opts = append(opts, scene.WithUV(x))
		default:
			return "", nil, a.errorf("unexpected %T", v)
		}
	}
	return material, opts, nil
}

// register(solid[, material[, name]][, mapper]) queues solid for export and
// returns it.
func (h *Host) register(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: register: want a solid", geom.ErrInvalidArguments)
	}
	s, err := solid("register", params[0])
	if err != nil {
		return nil, err
	}
	material, opts, err := registration("register", params[1:])
	if err != nil {
		return nil, err
	}
	if err := h.sc.Registry.Register(s, material, opts...); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *Host) setDefaultSegments(params ...any) (any, error) {
	a := newArgs("setDefaultSegments", params)
	if err := a.check(1, 1); err != nil {
		return nil, err
	}
	n, err := a.integer(a.pos[0], "segments")
	if err != nil {
		return nil, err
	}
	return n, h.sc.SetDefaultSegments(n)
}

func boxUV(params ...any) (any, error) {
	if len(params) != 0 {
		return nil, fmt.Errorf("%w: boxUV takes no arguments", geom.ErrInvalidArguments)
	}
	return mesh.BoxMapper{}, nil
}

// cylindricalUV([axis[, origin[, scaleU[, scaleV[, offset]]]]]) or
// cylindricalUV({axis, origin, scaleU, scaleV, offset}).
func cylindricalUV(params ...any) (any, error) {
	a := newArgs("cylindricalUV", params)
	var m mesh.CylindricalMapper
	vecAt := func(v any) (r3.Vec, error) { return geom.Normalize3(v, nil, nil) }
	num := func(dst *float64, v any, what string) error {
		f, err := a.number(v, what)
		*dst = f
		return err
	}
	var err error
	if a.named != nil {
		if v, ok := a.get("axis"); ok {
			if m.Axis, err = vecAt(v); err != nil {
				return nil, err
			}
		}
		if v, ok := a.get("origin"); ok {
			if m.Origin, err = vecAt(v); err != nil {
				return nil, err
			}
		}
		for key, dst := range map[string]*float64{"scaleU": &m.ScaleU, "scaleV": &m.ScaleV, "offset": &m.Offset} {
			if v, ok := a.get(key); ok {
				if err := num(dst, v, key); err != nil {
					return nil, err
				}
			}
		}
		return m, nil
	}
	if err := a.check(0, 5); err != nil {
		return nil, err
	}
	for i, v := range a.pos {
		switch i {
		case 0:
			m.Axis, err = vecAt(v)
		case 1:
			m.Origin, err = vecAt(v)
		case 2:
			err = num(&m.ScaleU, v, "scaleU")
		case 3:
			err = num(&m.ScaleV, v, "scaleV")
		case 4:
			err = num(&m.Offset, v, "offset")
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}
