package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/wattbench/pkg/jsonschema"
)

//go:embed run.schema.json
var runSchemaSource string

var runSchema = jsonschema.MustCompile("run.schema.json", runSchemaSource)

// SchemaSource returns the JSON Schema for run files.
func SchemaSource() string {
	return runSchemaSource
}

// LoadConfig loads a run file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// Fields the file omits keep their Default values.
func LoadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data, path)
}

// ParseConfig parses run file data. The format is chosen from the extension
// of path and defaults to YAML. The document is checked against the run
// file schema before it is decoded.
func ParseConfig(data []byte, path string) (*RunConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var generic interface{}
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if generic == nil {
		// empty document
		return Default(), nil
	}

	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("config is not representable as JSON: %w", err)
	}
	if err := runSchema.Validate(asJSON); err != nil {
		return nil, fmt.Errorf("config %s: %w", filepath.Base(path), err)
	}

	cfg := Default()
	if err := json.Unmarshal(asJSON, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// Marshal renders cfg in the format implied by path's extension.
func Marshal(cfg *RunConfig, path string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return json.MarshalIndent(cfg, "", "  ")
	}
	return yaml.Marshal(cfg)
}
