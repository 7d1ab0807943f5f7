package template

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrTemplateNotFound is wrapped by engines when a named template cannot be
	// located or compiled.
	ErrTemplateNotFound = errors.New("template: not found")
	// ErrRender is wrapped by engines when executing a template fails.
	ErrRender = errors.New("template: render failed")
)

// RenderOptions is the option set handed to a Renderer on the generic path.
// Locals is owned by the caller and is mutated as soon as the call returns;
// engines must copy what they need instead of retaining the map.
type RenderOptions struct {
	Locals map[string]any
	// Extra carries caller options the dispatcher does not understand. They are
	// forwarded verbatim.
	Extra map[string]any
}

// Renderer renders a named template with a full option set.
type Renderer interface {
	RenderItem(ctx context.Context, name string, opts RenderOptions) (string, error)
}

// RoutineResolver is an optional Renderer capability. ResolveRoutine returns a
// reusable routine for exactly the given template and sorted local names, or
// false when none is available. It must be idempotent.
type RoutineResolver interface {
	ResolveRoutine(name string, locals []string) (Routine, bool)
}

// Routine is a precompiled rendering procedure for one template and one fixed
// set of local names. Execute must not retain locals past the call.
type Routine interface {
	Execute(ctx context.Context, locals map[string]any) (string, error)
}

// RoutineFunc adapts a function to the Routine interface.
type RoutineFunc func(ctx context.Context, locals map[string]any) (string, error)

// Execute calls f.
func (f RoutineFunc) Execute(ctx context.Context, locals map[string]any) (string, error) {
	return f(ctx, locals)
}

// TemplateRenderer mirrors the github.com/goliatone/go-template engine
// contract. Engines satisfying it can serve the generic path through
// FromTemplateRenderer.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
