// Package configx provides configuration loading for logdecor programs.
//
// # Overview
//
// configx reads configuration from the environment and from YAML or JSON
// files, merges the sources with last-wins semantics, and binds the result into
// structs through env and default tags. Bound structs are checked with
// go-playground/validator tags.
//
// # Features
//
//   - Multiple sources with last-wins merge semantics
//   - Type-safe struct binding via env/default tags
//   - YAML and JSON files with nested keys flattened to KEY_SUBKEY
//   - Any type with Name and Load is a Source (k8sx adds a ConfigMap source)
//   - LoggerConfig covering LOG_LEVEL, LOG_FORMAT, NO_COLOR and the logger property settings
//
// # Usage
//
//	cfg, err := configx.LoadLoggerConfig(ctx, logger, "logdecor.yaml")
//	if err != nil { return err }
//
// # Layer
//
// configx depends on core only.
package configx
