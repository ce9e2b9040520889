// Package script runs scene scripts: short programs of expr-lang statements
// that build solids and register them into a scene.Context.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"

	"boxy/internal/geom"
	"boxy/internal/scene"
	"boxy/internal/trace"
)

// Error is a script failure at a source line.
type Error struct {
	File string
	Line int
	Err  error
}

// Message is the failure text without its location.
func (e *Error) Message() string {
	var fe *file.Error
	if errors.As(e.Err, &fe) {
		return fe.Message
	}
	return e.Err.Error()
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Host evaluates statements against one scene context. Bindings made by a
// statement are visible to the statements after it.
type Host struct {
	sc   *scene.Context
	env  map[string]any
	opts []expr.Option
	fns  map[string]builtin
}

func New(sc *scene.Context) *Host {
	h := &Host{sc: sc}
	h.fns = h.builtins()
	h.opts = h.exprOptions()
	h.env = map[string]any{"pi": math.Pi}
	return h
}

// Lookup returns a value bound by the script.
func (h *Host) Lookup(name string) (any, bool) {
	v, ok := h.env[name]
	return v, ok
}

// Run executes src. It stops at the first failing statement and returns a
// *Error; registrations made before that statement stay in the context.
func (h *Host) Run(ctx context.Context, name string, src []byte) error {
	stmts, err := split(string(src))
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			se.File = name
		}
		return err
	}
	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	var pending *statement // an @add line waiting for its binding
	for i := range stmts {
		st := &stmts[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if args, ok := decorator(st.text); ok {
			if pending != nil {
				return h.fail(name, pending.line, errors.New("@add must be followed by a binding"))
			}
			st.text = args
			pending = st
			continue
		}
		span := trace.Begin(tr, trace.ScopeNode, "stmt", parent).WithExtra("line", strconv.Itoa(st.line))
		err := h.exec(st, pending)
		pending = nil
		span.End("")
		if err != nil {
			var se *Error
			if errors.As(err, &se) {
				se.File = name
				return se
			}
			return h.fail(name, st.line, err)
		}
	}
	if pending != nil {
		return h.fail(name, pending.line, errors.New("@add must be followed by a binding"))
	}
	return nil
}

func (h *Host) exec(st *statement, decorated *statement) error {
	target, src, isBinding := binding(st.text)
	if !isBinding {
		if decorated != nil {
			return h.fail("", decorated.line, errors.New("@add must be followed by a binding"))
		}
		_, err := h.eval(st.line, st.text)
		return err
	}
	if _, reserved := h.fns[target]; reserved || target == "pi" {
		return h.fail("", st.line, fmt.Errorf("cannot rebind %q", target))
	}
	if decorated == nil {
		v, err := h.eval(st.line, src)
		if err != nil {
			return err
		}
		h.env[target] = v
		return nil
	}

	material, opts, err := h.decoration(decorated)
	if err != nil {
		return err
	}
	var value geom.Solid
	factory := func() (geom.Solid, error) {
		v, err := h.eval(st.line, src)
		if err != nil {
			return geom.Solid{}, err
		}
		s, err := solid("@add", v)
		if err != nil {
			return geom.Solid{}, h.fail("", st.line, err)
		}
		value = s
		return s, nil
	}
	if _, err := h.sc.Registry.Define(target, material, factory, opts...); err != nil {
		var se *Error
		if errors.As(err, &se) {
			return se
		}
		return h.fail("", st.line, err)
	}
	h.env[target] = value
	return nil
}

// decoration evaluates the argument list of an @add line.
func (h *Host) decoration(st *statement) (string, []scene.Option, error) {
	if st.text == "" {
		return "", nil, nil
	}
	v, err := h.eval(st.line, "["+st.text+"]")
	if err != nil {
		return "", nil, err
	}
	list, _ := v.([]any)
	material, opts, err := registration("@add", list)
	if err != nil {
		return "", nil, h.fail("", st.line, err)
	}
	return material, opts, nil
}

func (h *Host) eval(line int, src string) (any, error) {
	opts := append([]expr.Option{expr.Env(h.env)}, h.opts...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, h.fail("", line, err)
	}
	out, err := expr.Run(program, h.env)
	if err != nil {
		return nil, h.fail("", line, err)
	}
	return out, nil
}

// fail builds an *Error, moving line forward by the line inside a
// multi-line statement that expr reported.
func (h *Host) fail(name string, line int, err error) *Error {
	var fe *file.Error
	if errors.As(err, &fe) && fe.Line > 1 {
		line += fe.Line - 1
	}
	return &Error{File: name, Line: line, Err: err}
}

// Run executes src against sc with a fresh Host.
func Run(ctx context.Context, sc *scene.Context, name string, src []byte) error {
	return New(sc).Run(ctx, name, src)
}

// RunFile reads path and runs it against sc.
func RunFile(ctx context.Context, sc *scene.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return Run(ctx, sc, path, src)
}
