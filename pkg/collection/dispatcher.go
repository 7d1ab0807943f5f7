package collection

import (
	"context"
	"errors"
	"iter"
	"maps"

	"go.uber.org/zap"

	"github.com/goliatone/go-rendereach/pkg/render/template"
)

var (
	// ErrNoRenderer is returned when a Dispatcher has no renderer to call.
	ErrNoRenderer = errors.New("collection: renderer is required")
	// ErrNoCallback is returned by Stream when fn is nil.
	ErrNoCallback = errors.New("collection: stream callback is required")
)

// Dispatcher renders a template once per element of a sequence.
type Dispatcher struct {
	renderer  template.Renderer
	logger    *zap.Logger
	separator string
	optimize  bool
}

// New constructs a Dispatcher for renderer. Routines are used whenever the
// renderer implements template.RoutineResolver, unless WithoutOptimizedPath
// is given.
func New(renderer template.Renderer, options ...Option) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		logger:   zap.NewNop(),
		optimize: true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

// Each renders name once per element of seq. When fn is nil the renderings
// are concatenated and returned. When fn is non-nil each rendering is passed
// to fn as it completes and the result is nil.
//
// The first error from the renderer stops the iteration and is returned
// unchanged. Renderings already streamed stay delivered.
func (d *Dispatcher) Each(ctx context.Context, seq iter.Seq[any], name string, opts Options, fn StreamFunc) (*string, error) {
	if fn != nil {
		return nil, d.run(ctx, seq, name, opts, streamer{fn: fn})
	}
	acc := &accumulator{separator: d.separator}
	if err := d.run(ctx, seq, name, opts, acc); err != nil {
		return nil, err
	}
	out := acc.String()
	return &out, nil
}

// Render concatenates one rendering of name per element of seq.
func (d *Dispatcher) Render(ctx context.Context, seq iter.Seq[any], name string, opts Options) (string, error) {
	acc := &accumulator{separator: d.separator}
	if err := d.run(ctx, seq, name, opts, acc); err != nil {
		return "", err
	}
	return acc.String(), nil
}

// Stream passes one rendering of name per element of seq to fn.
func (d *Dispatcher) Stream(ctx context.Context, seq iter.Seq[any], name string, opts Options, fn StreamFunc) error {
	if fn == nil {
		return ErrNoCallback
	}
	return d.run(ctx, seq, name, opts, streamer{fn: fn})
}

// Plan returns the plan a call with these arguments would use.
func (d *Dispatcher) Plan(name string, opts Options) Plan {
	if !d.optimize {
		bound, ok := boundName(name, opts)
		return Plan{Route: RouteGeneric, Bound: bound, HasBound: ok}
	}
	return Resolve(d.renderer, name, opts)
}

func (d *Dispatcher) run(ctx context.Context, seq iter.Seq[any], name string, opts Options, out sink) error {
	if d.renderer == nil {
		return ErrNoRenderer
	}

	plan := d.Plan(name, opts)
	d.logger.Debug("collection plan resolved",
		zap.String("template", name),
		zap.Stringer("route", plan.Route),
		zap.Strings("shape", plan.Shape),
	)

	locals := newContext(opts.Locals, plan)
	renderOpts := template.RenderOptions{Locals: locals, Extra: opts.Extra}

	if seq == nil {
		return nil
	}

	count := 0
	var err error
	for item := range seq {
		if err = ctx.Err(); err != nil {
			break
		}
		if plan.HasBound {
			locals[plan.Bound] = item
		}

		var rendered string
		if plan.Route == RouteOptimized {
			rendered, err = plan.Routine.Execute(ctx, locals)
		} else {
			rendered, err = d.renderer.RenderItem(ctx, name, renderOpts)
		}
		if err != nil {
			break
		}
		out.write(rendered)
		count++
	}
	if err != nil {
		d.logger.Debug("collection render aborted",
			zap.String("template", name),
			zap.Int("rendered", count),
			zap.Error(err),
		)
		return err
	}

	d.logger.Debug("collection rendered",
		zap.String("template", name),
		zap.Stringer("route", plan.Route),
		zap.Int("items", count),
	)
	return nil
}

// newContext builds the single rendering context shared by every element of
// one call.
func newContext(locals map[string]any, plan Plan) map[string]any {
	size := len(locals)
	if plan.HasBound {
		size++
	}
	ctx := make(map[string]any, size)
	maps.Copy(ctx, locals)
	if plan.HasBound {
		ctx[plan.Bound] = nil
	}
	return ctx
}
