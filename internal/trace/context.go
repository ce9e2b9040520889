package trace

import "context"

// carrier is everything a compile threads through its context for tracing.
// Each With* call copies it, so sibling goroutines never see each other's
// span or object.
type carrier struct {
	tracer Tracer
	span   SpanContext
	object string
}

type carrierKey struct{}

func carried(ctx context.Context) carrier {
	if ctx != nil {
		if c, ok := ctx.Value(carrierKey{}).(carrier); ok {
			return c
		}
	}
	return carrier{tracer: Nop}
}

func attach(ctx context.Context, edit func(*carrier)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := carried(ctx)
	edit(&c)
	return context.WithValue(ctx, carrierKey{}, c)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return carried(ctx).tracer
}

func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return attach(ctx, func(c *carrier) { c.tracer = t })
}

// SpanContext identifies the innermost open span.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// CurrentSpan is the zero SpanContext outside any span.
func CurrentSpan(ctx context.Context) SpanContext {
	return carried(ctx).span
}

func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return attach(ctx, func(c *carrier) { c.span = sc })
}

// WithObject names the registration the work under ctx belongs to. Spans
// opened with Start below it record the name.
func WithObject(ctx context.Context, name string) context.Context {
	return attach(ctx, func(c *carrier) { c.object = name })
}

// ObjectFromContext returns the registration name set by WithObject.
func ObjectFromContext(ctx context.Context) string {
	return carried(ctx).object
}
