// Package curriculum holds the static lesson catalogue: modules of lessons,
// each with content, a quiz and a photo challenge.
package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Builtin returns the registry compiled into the binary.
func Builtin() (*Registry, error) {
	r, err := Parse(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("built-in curriculum: %w", err)
	}
	return r, nil
}

// Load reads a curriculum YAML file. An empty path selects the built-in curriculum.
func Load(path string) (*Registry, error) {
	if path == "" {
		r, err := Builtin()
		if err != nil {
			return nil, err
		}
		slog.Info("curriculum loaded", "source", "builtin", "modules", len(r.modules), "lessons", r.Count())
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum %s: %w", path, err)
	}

	slog.Info("curriculum loaded", "source", path, "modules", len(r.modules), "lessons", r.Count())
	return r, nil
}

// Parse validates YAML against the schema and builds a registry from it.
func Parse(data []byte) (*Registry, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := checkSchema(tree); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}
	return NewRegistry(doc.Modules)
}
