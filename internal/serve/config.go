package serve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRoutes loads canned routes from a YAML or JSON file
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	var file struct {
		Routes []Route `json:"routes" yaml:"routes"`
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse YAML routes: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON routes: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported routes file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateRoutes(file.Routes); err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}
	return file.Routes, nil
}

func validateRoutes(routes []Route) error {
	for i, route := range routes {
		if route.Path == "" {
			return fmt.Errorf("route %d: path is required", i)
		}
		if route.PathType != "" && route.PathType != "exact" && route.PathType != "prefix" && route.PathType != "regex" {
			return fmt.Errorf("route %d: pathType must be 'exact', 'prefix', or 'regex'", i)
		}
	}
	return nil
}
