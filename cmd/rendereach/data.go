package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// readSource reads path, or stdin when path is "-".
func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// loadItems decodes a YAML (or JSON) list. A single document that is not a
// list is treated as a one-element list.
func loadItems(path string, stdin io.Reader) ([]any, error) {
	data, err := readSource(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing items: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return []any{v}, nil
	}
}

func loadLocals(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading locals: %w", err)
	}
	var locals map[string]any
	if err := yaml.Unmarshal(data, &locals); err != nil {
		return nil, fmt.Errorf("parsing locals: %w", err)
	}
	return locals, nil
}

// parseExtra turns key=value pairs into extra render options. Values are
// decoded as YAML scalars so "true" and "3" keep their types.
func parseExtra(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", pair)
		}
		var decoded any
		if err := yaml.Unmarshal([]byte(value), &decoded); err != nil || decoded == nil {
			decoded = value
		}
		extra[key] = decoded
	}
	return extra, nil
}
