package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "rendereach"

var envConfig = strings.ToUpper(appName) + "_CONFIG"

// Config holds defaults that flags can override.
type Config struct {
	Templates string `yaml:"templates"`
	Extension string `yaml:"extension"`
	Separator string `yaml:"separator"`
	Sanitize  bool   `yaml:"sanitize"`
	LogLevel  string `yaml:"log_level"`
	// Globals are visible to every template, under every engine.
	Globals map[string]any `yaml:"globals"`
}

func defaultConfig() Config {
	return Config{
		Templates: "templates",
		Extension: ".tpl",
		LogLevel:  "warn",
	}
}

// loadConfig reads path, or $RENDEREACH_CONFIG when path is empty. A missing
// implicit config is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(envConfig)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
