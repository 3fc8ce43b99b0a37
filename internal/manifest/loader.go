package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// LoadFromPath reads a manifest file (YAML, JSON, or TOML) and returns the
// parsed, validated Manifest. Format is detected by extension
// (.yaml/.yml → YAML, .json → JSON, .toml → TOML) or by content.
func LoadFromPath(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Load(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest dir: %w", err)
	}
	m.dir = abs
	return m, nil
}

// Load parses a manifest from bytes. ext is the file extension for the
// format hint; empty = detect from content.
func Load(data []byte, ext string) (*Manifest, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	var m Manifest
	switch ext {
	case ".yaml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest toml: %w", err)
		}
	default:
		// Detect: JSON starts with {, TOML tends to open with a table or
		// key assignment; everything else parses as YAML.
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") {
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("parse manifest json: %w", err)
			}
		} else if strings.HasPrefix(trimmed, "[") {
			if err := toml.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("parse manifest toml: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("parse manifest yaml: %w", err)
			}
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
