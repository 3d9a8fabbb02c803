// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRegistry reads a template registry from a .json, .yaml or .yml file.
func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reg TemplateRegistry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &reg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &reg)
	default:
		return nil, fmt.Errorf("unsupported registry format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// SaveRegistry writes reg to path, choosing JSON or YAML by extension, and
// creates the parent directory when missing.
func SaveRegistry(reg *TemplateRegistry, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(reg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(reg)
	default:
		return fmt.Errorf("unsupported registry format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
