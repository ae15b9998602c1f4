package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"multisearch/internal/logger"

	"gopkg.in/yaml.v3"
)

// LoadModelsFromDir reads every *.yml definition in dir. The definitions are
// parsed but not yet validated.
func LoadModelsFromDir(dir string) (map[string]*Model, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no search definitions (*.yml) in %s", dir)
	}

	out := make(map[string]*Model, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m, err := ParseModel(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[name] = m
		logger.Info("search_definition_loaded", map[string]any{
			"name":  name,
			"table": m.Table,
		})
	}
	return out, nil
}

// ParseModel validates and decodes one definition.
func ParseModel(name string, data []byte) (*Model, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], name); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже decode в модель
	var m Model
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	m.Name = name
	return &m, nil
}
