package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeFile unmarshals a JSON (.json) or YAML (.yaml, .yml) document into v.
func DecodeFile(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("parse json %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported file extension for %s", path)
	}
	return nil
}
