package collection

import "go.uber.org/zap"

// Options is the per-call option set.
type Options struct {
	// Locals are merged into every element's rendering context.
	Locals map[string]any
	// Local overrides the bound-variable name derived from the template name.
	Local string
	// Unbound suppresses the per-element variable entirely. It wins over Local.
	Unbound bool
	// Extra is forwarded verbatim to the renderer's generic path. Any entry
	// disables the optimized path.
	Extra map[string]any
}

// IsZero reports whether no option was supplied at all.
func (o Options) IsZero() bool {
	return o.Locals == nil && o.Local == "" && !o.Unbound && o.Extra == nil
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for plan and completion events.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSeparator inserts sep between accumulated renderings. Streamed
// renderings are delivered unchanged.
func WithSeparator(sep string) Option {
	return func(d *Dispatcher) {
		d.separator = sep
	}
}

// WithoutOptimizedPath forces every call onto the renderer's generic path.
func WithoutOptimizedPath() Option {
	return func(d *Dispatcher) {
		d.optimize = false
	}
}
