package template

import (
	"context"
	"errors"
	"fmt"
	"maps"

	gotemplatepkg "github.com/goliatone/go-template"
)

var _ TemplateRenderer = (*gotemplatepkg.Engine)(nil)

type templateRendererAdapter struct {
	engine TemplateRenderer
}

// FromTemplateRenderer wraps a go-template compatible engine so it can serve
// as a generic-path Renderer. The adapter exposes no routines. Extra options
// are merged under the locals, so a local always wins over an option of the
// same name. Engine failures are wrapped with ErrRender.
func FromTemplateRenderer(engine TemplateRenderer) Renderer {
	return &templateRendererAdapter{engine: engine}
}

func (a *templateRendererAdapter) RenderItem(ctx context.Context, name string, opts RenderOptions) (string, error) {
	if a == nil || a.engine == nil {
		return "", errors.New("template: engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := make(map[string]any, len(opts.Locals)+len(opts.Extra))
	maps.Copy(data, opts.Extra)
	maps.Copy(data, opts.Locals)
	rendered, err := a.engine.RenderTemplate(name, data)
	if err != nil {
		return "", fmt.Errorf("template: render %q: %w: %w", name, ErrRender, err)
	}
	return rendered, nil
}
