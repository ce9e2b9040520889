// Package scene holds the per-compile registry of solids to export and the
// compile context that scripts build into.
package scene

import (
	"fmt"

	"boxy/internal/geom"
	"boxy/internal/kernel"
	"boxy/internal/mesh"
)

// DefaultMaterial is used when a registration names no material.
const DefaultMaterial = "basic"

// Registration is one solid queued for export.
type Registration struct {
	Solid    geom.Solid
	Material string
	Name     string
	// UV overrides the solid's own mapper for this registration only.
	UV mesh.UVMapper
}

// Mapper returns the UV mapper to finish this registration with: the
// override, else the solid's mapper, else box projection.
func (r Registration) Mapper() mesh.UVMapper {
	if r.UV != nil {
		return r.UV
	}
	if m := r.Solid.UV(); m != nil {
		return m
	}
	return mesh.BoxMapper{}
}

// Option adjusts a registration.
type Option func(*Registration)

func WithName(name string) Option {
	return func(r *Registration) { r.Name = name }
}

func WithUV(mapper mesh.UVMapper) Option {
	return func(r *Registration) { r.UV = mapper }
}

// Factory produces a solid for declarative registration.
type Factory func() (geom.Solid, error)

// Registry is the ordered list of registrations of one compile. Names are not
// unique. It is not safe for concurrent use; each compile owns its own.
type Registry struct {
	items []Registration
}

func NewRegistry() *Registry { return &Registry{} }

// Register appends s under material.
func (r *Registry) Register(s geom.Solid, material string, opts ...Option) error {
	if s.IsZero() {
		return fmt.Errorf("%w: register: empty solid", geom.ErrInvalidArguments)
	}
	if material == "" {
		material = DefaultMaterial
	}
	reg := Registration{Solid: s, Material: material}
	for _, opt := range opts {
		opt(&reg)
	}
	r.items = append(r.items, reg)
	return nil
}

// Define calls factory right away, registers its solid under name (unless an
// option overrides it) and hands the factory back for further composition.
func (r *Registry) Define(name, material string, factory Factory, opts ...Option) (Factory, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: define %q: nil factory", geom.ErrInvalidArguments, name)
	}
	s, err := factory()
	if err != nil {
		return factory, fmt.Errorf("define %q: %w", name, err)
	}
	opts = append([]Option{WithName(name)}, opts...)
	if err := r.Register(s, material, opts...); err != nil {
		return factory, fmt.Errorf("define %q: %w", name, err)
	}
	return factory, nil
}

// Clear drops every registration.
func (r *Registry) Clear() { r.items = r.items[:0] }

// Entries returns a copy of the registrations in call order.
func (r *Registry) Entries() []Registration {
	return append([]Registration(nil), r.items...)
}

func (r *Registry) Len() int { return len(r.items) }

// Context is everything one compile builds into. Create one per compile.
type Context struct {
	*geom.Builder
	Registry *Registry
}

func NewContext(k kernel.Kernel) *Context {
	return &Context{Builder: geom.NewBuilder(k), Registry: NewRegistry()}
}

// Reset clears the registry and the default resolution before a (re)load.
func (c *Context) Reset() {
	c.Registry.Clear()
	_ = c.SetDefaultSegments(0)
}
