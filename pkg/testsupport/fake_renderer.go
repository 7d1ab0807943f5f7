package testsupport

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/go-rendereach/pkg/render/template"
)

// FakeCall records one rendering made through a FakeRenderer.
type FakeCall struct {
	Route    string
	Template string
	Locals   map[string]any
	Extra    map[string]any
	// ContextID identifies the locals map the caller passed in.
	ContextID uintptr
}

// FakeResolve records one ResolveRoutine lookup.
type FakeResolve struct {
	Template string
	Shape    []string
	Hit      bool
}

// RenderFunc produces the output of one fake rendering.
type RenderFunc func(name string, locals map[string]any) (string, error)

// FakeRenderer is a controllable collaborator: RenderFunc decides the output,
// AllowRoutine decides which shapes resolve to routines, and every call is
// recorded. Routines and the generic path share RenderFunc, so both routes
// produce the same output.
type FakeRenderer struct {
	RenderFunc RenderFunc

	shapes   map[string]struct{}
	Calls    []FakeCall
	Resolves []FakeResolve
}

var (
	_ template.Renderer        = (*FakeRenderer)(nil)
	_ template.RoutineResolver = (*FakeRenderer)(nil)
)

// NewFakeRenderer returns a FakeRenderer using fn, or FormatLocals when fn is
// nil.
func NewFakeRenderer(fn RenderFunc) *FakeRenderer {
	if fn == nil {
		fn = FormatLocals
	}
	return &FakeRenderer{
		RenderFunc: fn,
		shapes:     make(map[string]struct{}),
	}
}

// AllowRoutine makes ResolveRoutine succeed for name and the given local
// names. No names registers the zero-argument shape.
func (f *FakeRenderer) AllowRoutine(name string, locals ...string) {
	shape := append([]string(nil), locals...)
	sort.Strings(shape)
	f.shapes[shapeKey(name, shape)] = struct{}{}
}

// RenderItem implements template.Renderer.
func (f *FakeRenderer) RenderItem(ctx context.Context, name string, opts template.RenderOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.record("generic", name, opts.Locals, opts.Extra)
	return f.RenderFunc(name, opts.Locals)
}

// ResolveRoutine implements template.RoutineResolver.
func (f *FakeRenderer) ResolveRoutine(name string, locals []string) (template.Routine, bool) {
	_, ok := f.shapes[shapeKey(name, locals)]
	f.Resolves = append(f.Resolves, FakeResolve{
		Template: name,
		Shape:    append([]string{}, locals...),
		Hit:      ok,
	})
	if !ok {
		return nil, false
	}
	return template.RoutineFunc(func(ctx context.Context, locals map[string]any) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f.record("optimized", name, locals, nil)
		return f.RenderFunc(name, locals)
	}), true
}

// Routes returns the route of every recorded call, in order.
func (f *FakeRenderer) Routes() []string {
	out := make([]string, 0, len(f.Calls))
	for _, call := range f.Calls {
		out = append(out, call.Route)
	}
	return out
}

// GenericOnly hides the routine capability so callers see a plain Renderer.
func (f *FakeRenderer) GenericOnly() template.Renderer {
	return genericOnly{f}
}

func (f *FakeRenderer) record(route, name string, locals, extra map[string]any) {
	f.Calls = append(f.Calls, FakeCall{
		Route:     route,
		Template:  name,
		Locals:    maps.Clone(locals),
		Extra:     maps.Clone(extra),
		ContextID: reflect.ValueOf(locals).Pointer(),
	})
}

type genericOnly struct {
	f *FakeRenderer
}

func (g genericOnly) RenderItem(ctx context.Context, name string, opts template.RenderOptions) (string, error) {
	return g.f.RenderItem(ctx, name, opts)
}

// FormatLocals renders locals as sorted "key=value" pairs inside brackets.
func FormatLocals(_ string, locals map[string]any) (string, error) {
	keys := make([]string, 0, len(locals))
	for key := range locals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, locals[key]))
	}
	return "[" + strings.Join(parts, " ") + "]", nil
}

func shapeKey(name string, shape []string) string {
	return name + "\x00" + strings.Join(shape, ",")
}
