package rendereach

import (
	"context"
	"iter"

	"github.com/goliatone/go-rendereach/pkg/collection"
	"github.com/goliatone/go-rendereach/pkg/render/template"
	"github.com/goliatone/go-rendereach/pkg/render/template/gotemplate"
)

// Options aliases collection.Options for callers that only import the root
// package.
type Options = collection.Options

// StreamFunc receives each rendering in stream mode.
type StreamFunc = collection.StreamFunc

// Renderer is the generic rendering seam a Dispatcher calls.
type Renderer = template.Renderer

// New exposes the dispatcher constructor from the top-level module.
func New(renderer Renderer, options ...collection.Option) *collection.Dispatcher {
	return collection.New(renderer, options...)
}

// NewEngine constructs the pongo2-backed engine, which offers precompiled
// routines to the dispatcher.
func NewEngine(options ...gotemplate.Option) (*gotemplate.Engine, error) {
	return gotemplate.New(options...)
}

// RenderEach renders name once per element of seq. Without fn the renderings
// are concatenated and returned; with fn each rendering is passed to fn and
// the result is nil.
func RenderEach(ctx context.Context, renderer Renderer, seq iter.Seq[any], name string, opts Options, fn StreamFunc) (*string, error) {
	return collection.New(renderer).Each(ctx, seq, name, opts, fn)
}

// RenderSlice is RenderEach in accumulate mode over a slice.
func RenderSlice[T any](ctx context.Context, renderer Renderer, items []T, name string, opts Options) (string, error) {
	return collection.New(renderer).Render(ctx, collection.Values(items), name, opts)
}
