package gotemplate

import (
	"strings"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"
)

// viewData prepares data for the TemplateRenderer entry points with
// go-template's JSON conversion, so json struct tags apply. Callables cannot
// round-trip through JSON and are carried over unchanged. RenderItem and
// routines skip this step so both dispatch paths see the same Go values.
func viewData(data any) (pongo2.Context, error) {
	var funcs map[string]any
	if m, ok := asMap(data); ok {
		plain := make(map[string]any, len(m))
		for key, value := range m {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if isCallable(value) {
				if funcs == nil {
					funcs = make(map[string]any)
				}
				funcs[key] = value
				continue
			}
			plain[key] = value
		}
		data = plain
	}

	viewContext, err := gotemplatepkg.ConvertToContext(data)
	if err != nil {
		return nil, err
	}
	for key, fn := range funcs {
		viewContext[key] = fn
	}
	return viewContext, nil
}

func asMap(data any) (map[string]any, bool) {
	switch v := data.(type) {
	case map[string]any:
		return v, true
	case pongo2.Context:
		return v, true
	}
	return nil, false
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("lowerfirst") {
		_ = pongo2.RegisterFilter("lowerfirst", filterLowerFirst)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	for i, r := range t {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		return pongo2.AsValue(t[:i] + strings.ToLower(string(r)) + t[i+utf8.RuneLen(r):]), nil
	}
	return pongo2.AsValue(t), nil
}
