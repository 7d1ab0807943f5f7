package gotemplate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-rendereach/pkg/render/template"
)

// Option keys recognised by RenderItem. Any other extra option is exposed to
// the template under its own name.
const (
	OptionSanitize = "sanitize"
	OptionTrim     = "trim"
)

// Engine is a pongo2-backed template set. It serves the generic path through
// RenderItem and hands out precompiled routines through ResolveRoutine.
type Engine struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	templates   map[string]*pongo2.Template
	tplExt      string
	files       fs.FS

	routineMu sync.RWMutex
	routines  map[string]*routine

	hits   atomic.Int64
	misses atomic.Int64

	policyOnce sync.Once
	policy     *bluemonday.Policy
}

// Stats reports routine cache activity.
type Stats struct {
	Hits     int64
	Misses   int64
	Routines int
}

var (
	_ template.TemplateRenderer = (*Engine)(nil)
	_ template.Renderer         = (*Engine)(nil)
	_ template.RoutineResolver  = (*Engine)(nil)
)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{
		extension: ".tpl",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	files := cfg.templates
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
		if files == nil {
			files = os.DirFS(cfg.baseDir)
		}
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}

	engine := &Engine{
		templateSet: pongo2.NewSet("rendereach", loaders...),
		templates:   make(map[string]*pongo2.Template),
		tplExt:      cfg.extension,
		files:       files,
		routines:    make(map[string]*routine),
		policy:      cfg.policy,
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("gotemplate: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := engine.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("gotemplate: register template func %q: %w", name, err)
		}
	}

	return engine, nil
}

// RenderItem renders name with the given locals. The locals map is copied into
// a fresh pongo2 context, so the caller may mutate it once the call returns.
func (e *Engine) RenderItem(ctx context.Context, name string, opts template.RenderOptions) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpl, templatePath, err := e.lookup(name)
	if err != nil {
		return "", err
	}

	var sanitize, trim bool
	viewContext := make(pongo2.Context, len(opts.Locals)+len(opts.Extra))
	for key, value := range opts.Extra {
		switch key {
		case OptionSanitize:
			sanitize = truthy(value)
		case OptionTrim:
			trim = truthy(value)
		default:
			viewContext[key] = value
		}
	}
	for key, value := range opts.Locals {
		viewContext[key] = value
	}

	rendered, err := e.execute(tmpl, viewContext)
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute template %q: %w: %w", templatePath, template.ErrRender, err)
	}
	if sanitize {
		rendered = e.sanitizer().Sanitize(rendered)
	}
	if trim {
		rendered = strings.TrimSpace(rendered)
	}
	return rendered, nil
}

// ResolveRoutine returns a routine for name and the sorted local names. Any
// template that loads successfully accepts any shape, so the shape only keys
// the cache. A template that fails to load is reported as a miss and the
// caller's generic path surfaces the load error.
func (e *Engine) ResolveRoutine(name string, locals []string) (template.Routine, bool) {
	if e == nil || e.templateSet == nil {
		return nil, false
	}
	key := routineKey(name, locals)

	e.routineMu.RLock()
	r, ok := e.routines[key]
	e.routineMu.RUnlock()
	if ok {
		e.hits.Add(1)
		return r, true
	}

	tmpl, templatePath, err := e.lookup(name)
	if err != nil {
		e.misses.Add(1)
		return nil, false
	}

	e.routineMu.Lock()
	defer e.routineMu.Unlock()
	if r, ok := e.routines[key]; ok {
		e.hits.Add(1)
		return r, true
	}
	r = &routine{engine: e, tmpl: tmpl, path: templatePath}
	e.routines[key] = r
	e.misses.Add(1)
	return r, true
}

// Stats returns a snapshot of the routine cache counters.
func (e *Engine) Stats() Stats {
	e.routineMu.RLock()
	n := len(e.routines)
	e.routineMu.RUnlock()
	return Stats{
		Hits:     e.hits.Load(),
		Misses:   e.misses.Load(),
		Routines: n,
	}
}

// Templates lists the template names available to the engine, without the
// configured extension, sorted.
func (e *Engine) Templates() ([]string, error) {
	if e == nil || e.files == nil {
		return nil, errors.New("gotemplate: engine has no template files")
	}
	var names []string
	err := fs.WalkDir(e.files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, e.tplExt) {
			return nil
		}
		names = append(names, strings.TrimSuffix(path, e.tplExt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gotemplate: list templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Render renders either inline template content or a named template.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if isTemplateContent(name) {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders a named template with arbitrary data.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("gotemplate: engine is nil")
	}

	tmpl, templatePath, err := e.lookup(name)
	if err != nil {
		return "", err
	}

	viewContext, err := viewData(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}

	rendered, err := e.execute(tmpl, viewContext)
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute template %q: %w: %w", templatePath, template.ErrRender, err)
	}
	if err := writeAll(rendered, out); err != nil {
		return "", err
	}
	return rendered, nil
}

// RenderString parses and renders inline template content.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("gotemplate: engine is nil")
	}

	tmpl, err := e.templateSet.FromString(templateContent)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse template string: %w", err)
	}

	viewContext, err := viewData(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}

	rendered, err := e.execute(tmpl, viewContext)
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute template string: %w: %w", template.ErrRender, err)
	}
	if err := writeAll(rendered, out); err != nil {
		return "", err
	}
	return rendered, nil
}

// RegisterFilter registers a template filter.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext seeds global data visible to every template.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := viewData(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) execute(tmpl *pongo2.Template, viewContext pongo2.Context) (string, error) {
	var buf bytes.Buffer

	e.mu.RLock()
	err := tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()

	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) lookup(name string) (*pongo2.Template, string, error) {
	templatePath := name
	if !strings.HasSuffix(templatePath, e.tplExt) {
		templatePath += e.tplExt
	}
	tmpl, err := e.getTemplate(templatePath)
	if err != nil {
		return nil, templatePath, err
	}
	return tmpl, templatePath, nil
}

func (e *Engine) getTemplate(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[path]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[path]; ok {
		return tmpl, nil
	}

	tmpl, err := e.templateSet.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load template %q: %w: %w", path, template.ErrTemplateNotFound, err)
	}

	e.templates[path] = tmpl
	return tmpl, nil
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	return nil
}

func (e *Engine) sanitizer() *bluemonday.Policy {
	e.policyOnce.Do(func() {
		if e.policy == nil {
			e.policy = bluemonday.UGCPolicy()
		}
	})
	return e.policy
}

// routine executes a compiled template directly against the dispatcher's
// context. pongo2 copies the context before execution.
type routine struct {
	engine *Engine
	tmpl   *pongo2.Template
	path   string
}

func (r *routine) Execute(ctx context.Context, locals map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rendered, err := r.engine.execute(r.tmpl, pongo2.Context(locals))
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute routine %q: %w: %w", r.path, template.ErrRender, err)
	}
	return rendered, nil
}

func routineKey(name string, locals []string) string {
	return name + "\x00" + strings.Join(locals, ",")
}

func writeAll(rendered string, out []io.Writer) error {
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return err
		}
	}
	return nil
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

func isTemplateContent(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}
