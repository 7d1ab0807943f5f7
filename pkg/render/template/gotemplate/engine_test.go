package gotemplate_test

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-rendereach/pkg/collection"
	"github.com/goliatone/go-rendereach/pkg/render/template"
	"github.com/goliatone/go-rendereach/pkg/render/template/gotemplate"
	"github.com/goliatone/go-rendereach/pkg/testsupport"
)

//go:embed testdata/templates
var embeddedTemplates embed.FS

type user struct {
	Name string
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("render template mismatch writer\nwant: %q\n got: %q", want, written)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, _ := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("use-global", nil, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-global.golden"))
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}

	result, _ := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-filter.golden"))
	if result != want {
		t.Fatalf("render template mismatch result\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_RenderString(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.Render("{{ a|lowerfirst }}-{{ b|trim }}", map[string]any{"a": "ABC", "b": "  x "})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "aBC-x" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_RenderItem(t *testing.T) {
	engine := newEngine(t)
	ctx := testsupport.Context()

	got, err := engine.RenderItem(ctx, "partials/item", template.RenderOptions{
		Locals: map[string]any{"item": "a"},
	})
	if err != nil {
		t.Fatalf("render item: %v", err)
	}
	if got != "<li>a</li>" {
		t.Fatalf("got %q", got)
	}

	got, err = engine.RenderItem(ctx, "partials/item.tpl", template.RenderOptions{
		Locals: map[string]any{"item": "b"},
		Extra:  map[string]any{"item": "ignored", "trim": true},
	})
	if err != nil {
		t.Fatalf("render item with extension: %v", err)
	}
	if got != "<li>b</li>" {
		t.Fatalf("locals must win over extra options, got %q", got)
	}
}

func TestEngine_RenderItemSanitize(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderItem(testsupport.Context(), "markup", template.RenderOptions{
		Locals: map[string]any{"markup": "safe"},
		Extra:  map[string]any{gotemplate.OptionSanitize: true},
	})
	if err != nil {
		t.Fatalf("render item: %v", err)
	}
	if strings.Contains(got, "onclick") {
		t.Fatalf("sanitized output still carries event handler: %q", got)
	}
	if !strings.Contains(got, "safe") {
		t.Fatalf("sanitized output lost content: %q", got)
	}
}

func TestEngine_WithSanitizePolicy(t *testing.T) {
	opts := template.RenderOptions{
		Locals: map[string]any{"markup": "safe"},
		Extra:  map[string]any{gotemplate.OptionSanitize: true},
	}

	ugc, err := newEngine(t).RenderItem(testsupport.Context(), "markup", opts)
	if err != nil {
		t.Fatalf("render item: %v", err)
	}
	if ugc != "<p>safe</p>" {
		t.Fatalf("default policy got %q", ugc)
	}

	strict := newEngine(t, gotemplate.WithSanitizePolicy(bluemonday.StrictPolicy()))
	got, err := strict.RenderItem(testsupport.Context(), "markup", opts)
	if err != nil {
		t.Fatalf("render item: %v", err)
	}
	if got != "safe" {
		t.Fatalf("strict policy got %q", got)
	}
}

func TestEngine_WithGlobalData(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "production"},
	}))

	got, err := engine.RenderItem(testsupport.Context(), "use-global", template.RenderOptions{})
	if err != nil {
		t.Fatalf("render item: %v", err)
	}
	if got != "Env: production" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_WithTemplateFunc(t *testing.T) {
	engine := newEngine(t, gotemplate.WithTemplateFunc(map[string]any{
		"greet": func(name string) string { return "hi " + name },
	}))

	got, err := collection.New(engine).Render(testsupport.Context(), collection.Seq("ignored"), "use-func", collection.Options{
		Locals: map[string]any{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "hi Ada" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_DerivedLocalMustBeIdentifier(t *testing.T) {
	engine := newEngine(t)
	ctx := testsupport.Context()

	_, err := collection.New(engine).Render(ctx, collection.Seq(1, 2), "user-row", collection.Options{})
	if !errors.Is(err, template.ErrRender) {
		t.Fatalf("err = %v, want ErrRender", err)
	}

	got, err := collection.New(engine).Render(ctx, collection.Seq("a", "b"), "user-row", collection.Options{Local: "row"})
	if err != nil {
		t.Fatalf("render with explicit local: %v", err)
	}
	if got != "<a><b>" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_MissingTemplate(t *testing.T) {
	engine := newEngine(t)

	_, err := engine.RenderItem(testsupport.Context(), "missing", template.RenderOptions{})
	if !errors.Is(err, template.ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
	if _, ok := engine.ResolveRoutine("missing", nil); ok {
		t.Fatal("missing template must not resolve a routine")
	}
	if _, ok := engine.ResolveRoutine("broken", []string{"item"}); ok {
		t.Fatal("template that fails to compile must not resolve a routine")
	}
	if stats := engine.Stats(); stats.Misses != 2 || stats.Routines != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestEngine_ResolveRoutineCachesByShape(t *testing.T) {
	engine := newEngine(t)

	first, ok := engine.ResolveRoutine("partials/item", []string{"item"})
	if !ok {
		t.Fatal("expected routine")
	}
	second, ok := engine.ResolveRoutine("partials/item", []string{"item"})
	if !ok || first != second {
		t.Fatal("expected the cached routine for the same shape")
	}
	if _, ok := engine.ResolveRoutine("partials/item", []string{"item", "title"}); !ok {
		t.Fatal("expected routine for a wider shape")
	}

	want := gotemplate.Stats{Hits: 1, Misses: 2, Routines: 2}
	if diff := cmp.Diff(want, engine.Stats()); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	got, err := first.Execute(testsupport.Context(), map[string]any{"item": "z"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "<li>z</li>" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_DispatchRoutesMatch(t *testing.T) {
	engine := newEngine(t)
	ctx := testsupport.Context()
	users := collection.Values([]user{{Name: "Ada"}, {Name: "Grace"}})
	opts := collection.Options{Locals: map[string]any{"sep": ";"}}
	golden := filepath.Join("testdata", "users.golden")

	d := collection.New(engine)
	if plan := d.Plan("partials/user", opts); plan.Route != collection.RouteOptimized {
		t.Fatalf("route = %v, want optimized", plan.Route)
	}
	fast, err := d.Render(ctx, users, "partials/user", opts)
	if err != nil {
		t.Fatalf("optimized render: %v", err)
	}

	slow, err := collection.New(engine, collection.WithoutOptimizedPath()).Render(ctx, users, "partials/user", opts)
	if err != nil {
		t.Fatalf("generic render: %v", err)
	}

	if testsupport.WriteMaybeGolden(t, golden, []byte(fast)) {
		return
	}
	want := testsupport.MustReadGoldenString(t, golden)
	if fast != want || slow != want {
		t.Fatalf("want %q, optimized %q, generic %q", want, fast, slow)
	}
}

func TestEngine_FromTemplateRenderer(t *testing.T) {
	engine := newEngine(t)
	r := template.FromTemplateRenderer(engine)

	if _, ok := r.(template.RoutineResolver); ok {
		t.Fatal("adapter must not expose routines")
	}
	got, err := collection.New(r).Render(testsupport.Context(), collection.Seq("a", "b"), "partials/item", collection.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<li>a</li><li>b</li>" {
		t.Fatalf("got %q", got)
	}
}

func TestEngine_Templates(t *testing.T) {
	engine := newEngine(t)

	names, err := engine.Templates()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	want := []string{"broken", "hello", "markup", "partials/item", "partials/user", "use-filter", "use-func", "use-global", "user-row"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatal("expected error without base dir or fs")
	}
}

func newEngine(t *testing.T, options ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}

	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(templatesFS)}, options...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
