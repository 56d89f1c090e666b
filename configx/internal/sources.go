// Package internal provides internal implementation details for configx.
//
// Overview:
//   - Responsibility: Implement configuration sources (Env, File)
//   - Key Types: EnvSource, FileSource
//   - Concurrency Model: All sources are safe for concurrent use
//   - Error Semantics: Sources return wrapped errors for read and parse failures
//   - Performance Notes: Each Load reads the environment or file once
//
// Usage:
//
//	envSource := configx.NewEnvSource(configx.EnvOptions{Prefix: "APP_"})
//	fileSource := configx.NewFileSource("logdecor.yaml", configx.FileOptions{})
package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string // Only variables with this prefix are read; the prefix is stripped
	Lowercase bool   // Convert keys to lowercase
	Uppercase bool   // Convert keys to uppercase
}

// EnvSource loads configuration from environment variables.
type EnvSource struct {
	prefix    string
	lowercase bool
	uppercase bool
}

// NewEnvSource creates a new environment variable source.
func NewEnvSource(opts EnvOptions) Source {
	return &EnvSource{
		prefix:    opts.Prefix,
		lowercase: opts.Lowercase,
		uppercase: opts.Uppercase,
	}
}

// Name implements Source.
func (s *EnvSource) Name() string {
	if s.prefix == "" {
		return "env"
	}
	return "env:" + s.prefix
}

// Load reads configuration from environment variables.
func (s *EnvSource) Load(ctx context.Context) (map[string]string, error) {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}

		if s.lowercase {
			key = strings.ToLower(key)
		} else if s.uppercase {
			key = strings.ToUpper(key)
		}

		config[key] = value
	}

	return config, nil
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Format   string // "json" or "yaml" (default: from the file extension)
	Optional bool   // A missing file yields an empty snapshot instead of an error
}

// FileSource loads configuration from a YAML or JSON file.
// Nested keys are flattened with "_" and upper-cased: {logger: {prop: x}} becomes LOGGER_PROP.
type FileSource struct {
	path     string
	format   string
	optional bool
}

// NewFileSource creates a new file source.
func NewFileSource(path string, opts FileOptions) Source {
	format := opts.Format
	if format == "" {
		format = detectFileFormat(path)
	}

	return &FileSource{
		path:     path,
		format:   format,
		optional: opts.Optional,
	}
}

// Name implements Source.
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Load reads configuration from the file.
func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) && s.optional {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	config, err := parseConfigFile(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return config, nil
}

// detectFileFormat detects file format from extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// parseConfigFile decodes data and flattens it into key-value pairs.
func parseConfigFile(data []byte, format string) (map[string]string, error) {
	var tree map[string]any
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&tree); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	config := make(map[string]string)
	flatten("", tree, config)
	return config, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = scalarString(item)
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = scalarString(val)
		}
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ",")
	default:
		return fmt.Sprint(val)
	}
}
