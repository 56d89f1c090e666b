// Package internal provides tests for configx internal implementation.
package internal

import (
	"strings"
	"testing"
	"time"
)

func TestBindToStruct_BasicTypes(t *testing.T) {
	type Config struct {
		StringField   string        `env:"STRING_FIELD"`
		IntField      int           `env:"INT_FIELD"`
		Int8Field     int8          `env:"INT8_FIELD"`
		UintField     uint          `env:"UINT_FIELD"`
		BoolField     bool          `env:"BOOL_FIELD"`
		FloatField    float64       `env:"FLOAT_FIELD"`
		Float32Field  float32       `env:"FLOAT32_FIELD"`
		DurationField time.Duration `env:"DURATION_FIELD"`
		ListField     []string      `env:"LIST_FIELD"`
	}

	snapshot := map[string]string{
		"STRING_FIELD":   "test-value",
		"INT_FIELD":      "42",
		"INT8_FIELD":     "127",
		"UINT_FIELD":     "100",
		"BOOL_FIELD":     "true",
		"FLOAT_FIELD":    "3.14",
		"FLOAT32_FIELD":  "2.5",
		"DURATION_FIELD": "1500ms",
		"LIST_FIELD":     "apple, banana,,cherry",
	}

	var cfg Config
	if err := BindToStruct(snapshot, &cfg); err != nil {
		t.Fatalf("BindToStruct() error = %v", err)
	}

	if cfg.StringField != "test-value" {
		t.Errorf("StringField = %q, want %q", cfg.StringField, "test-value")
	}
	if cfg.IntField != 42 || cfg.Int8Field != 127 || cfg.UintField != 100 {
		t.Errorf("integers = %d/%d/%d", cfg.IntField, cfg.Int8Field, cfg.UintField)
	}
	if !cfg.BoolField {
		t.Error("BoolField should be true")
	}
	if cfg.FloatField != 3.14 || cfg.Float32Field != 2.5 {
		t.Errorf("floats = %v/%v", cfg.FloatField, cfg.Float32Field)
	}
	if cfg.DurationField != 1500*time.Millisecond {
		t.Errorf("DurationField = %v", cfg.DurationField)
	}
	if strings.Join(cfg.ListField, "|") != "apple|banana|cherry" {
		t.Errorf("ListField = %v", cfg.ListField)
	}
}

func TestBindToStruct_Defaults(t *testing.T) {
	type Config struct {
		Level  string `env:"LOG_LEVEL" default:"info"`
		Prop   string `env:"LOGGER_PROP" default:"logger"`
		Port   int    `env:"PORT" default:"8080"`
		NoTag  string
		hidden string `env:"HIDDEN" default:"x"`
	}

	var cfg Config
	if err := BindToStruct(map[string]string{"LOG_LEVEL": "debug"}, &cfg); err != nil {
		t.Fatalf("BindToStruct() error = %v", err)
	}

	if cfg.Level != "debug" {
		t.Errorf("Level = %q, value should override the default", cfg.Level)
	}
	if cfg.Prop != "logger" || cfg.Port != 8080 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.NoTag != "" || cfg.hidden != "" {
		t.Errorf("untagged and unexported fields must be left alone: %+v", cfg)
	}
}

func TestBindToStruct_NestedAndEmbedded(t *testing.T) {
	type Metrics struct {
		Addr string `env:"METRICS_ADDR" default:":9091"`
	}
	type Base struct {
		Service string `env:"SERVICE_NAME"`
	}
	type Config struct {
		Base
		Metrics Metrics
	}

	var cfg Config
	if err := BindToStruct(map[string]string{"SERVICE_NAME": "fruit"}, &cfg); err != nil {
		t.Fatalf("BindToStruct() error = %v", err)
	}
	if cfg.Service != "fruit" || cfg.Metrics.Addr != ":9091" {
		t.Errorf("nested binding failed: %+v", cfg)
	}
}

func TestBindToStruct_EmptyValueKeepsZero(t *testing.T) {
	type Config struct {
		Count int `env:"COUNT" default:"5"`
	}

	var cfg Config
	if err := BindToStruct(map[string]string{"COUNT": ""}, &cfg); err != nil {
		t.Fatalf("BindToStruct() error = %v", err)
	}
	if cfg.Count != 0 {
		t.Errorf("Count = %d; a present empty value keeps the zero value", cfg.Count)
	}
}

func TestBindToStruct_InvalidTarget(t *testing.T) {
	type Config struct{}
	var nilPtr *Config

	for name, target := range map[string]any{
		"non-pointer":    Config{},
		"pointer to int": new(int),
		"nil pointer":    nilPtr,
	} {
		if err := BindToStruct(map[string]string{}, target); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestBindToStruct_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		target any
		value  string
	}{
		{"int", &struct {
			V int `env:"V"`
		}{}, "not-a-number"},
		{"int8 overflow", &struct {
			V int8 `env:"V"`
		}{}, "300"},
		{"uint", &struct {
			V uint `env:"V"`
		}{}, "-1"},
		{"bool", &struct {
			V bool `env:"V"`
		}{}, "maybe"},
		{"float", &struct {
			V float64 `env:"V"`
		}{}, "pi"},
		{"duration", &struct {
			V time.Duration `env:"V"`
		}{}, "soon"},
		{"unsupported slice", &struct {
			V []int `env:"V"`
		}{}, "1,2"},
		{"unsupported kind", &struct {
			V map[string]string `env:"V"`
		}{}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BindToStruct(map[string]string{"V": tt.value}, tt.target)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "V=") {
				t.Errorf("error should name the key: %v", err)
			}
		})
	}
}
