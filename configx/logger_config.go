package configx

import (
	"context"
	"fmt"

	"go.eggybyte.com/logdecor/core/log"
)

// LoggerConfig is the environment-facing configuration of provisioned loggers.
type LoggerConfig struct {
	ServiceName   string `env:"SERVICE_NAME" default:"app" validate:"required"`
	LogLevel      string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug verbose info warn error"`
	LogFormat     string `env:"LOG_FORMAT" default:"json" validate:"oneof=json logfmt"`
	NoColor       string `env:"NO_COLOR"` // Any non-empty value disables colors
	LoggerProp    string `env:"LOGGER_PROP" default:"logger" validate:"required"`
	LoggerScope   string `env:"LOGGER_SCOPE" default:"class" validate:"oneof=class instance"`
	LoggerBinding string `env:"LOGGER_BINDING" default:"class" validate:"oneof=class process"`
	MetricsAddr   string `env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// ColorDisabled reports whether NO_COLOR was set.
func (c LoggerConfig) ColorDisabled() bool {
	return c.NoColor != ""
}

// LoadLoggerConfig reads files (later wins) and the environment, binds the
// result into a LoggerConfig, and validates it.
func LoadLoggerConfig(ctx context.Context, logger log.Logger, files ...string) (LoggerConfig, error) {
	mgr, err := DefaultManager(ctx, logger, files...)
	if err != nil {
		return LoggerConfig{}, err
	}
	return BindLoggerConfig(mgr)
}

// BindLoggerConfig binds and validates the manager's current snapshot. Call it
// again from OnReload to pick up changes.
func BindLoggerConfig(mgr Manager) (LoggerConfig, error) {
	var cfg LoggerConfig
	if err := mgr.Bind(&cfg); err != nil {
		return cfg, fmt.Errorf("bind logger config: %w", err)
	}
	if err := ValidateStruct(nil, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
