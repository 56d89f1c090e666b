package provisionx

import (
	"go.eggybyte.com/logdecor/configx"
	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/logx"
	"go.eggybyte.com/logdecor/metax"
)

// FromConfig converts loaded configuration into a declaration Config.
// Unlike Define, it rejects unknown values with INVALID_ARGUMENT.
func FromConfig(lc configx.LoggerConfig) (Config, error) {
	invalid := func(field, value string) error {
		return errors.Build(errors.CodeInvalidArgument).
			WithOp("provisionx.FromConfig").
			WithMsgf("invalid %s %q", field, value).
			WithDetails("field", field).
			Err()
	}

	if _, err := logx.ParseLevel(lc.LogLevel); err != nil {
		return Config{}, errors.Build(errors.CodeInvalidArgument).
			WithOp("provisionx.FromConfig").
			WithErr(err).
			Err()
	}

	var encoding logx.Format
	switch lc.LogFormat {
	case "", "json":
		encoding = logx.FormatJSON
	case "logfmt":
		encoding = logx.FormatLogfmt
	default:
		return Config{}, invalid("log format", lc.LogFormat)
	}

	scope, ok := ParseScope(lc.LoggerScope)
	if !ok {
		return Config{}, invalid("logger scope", lc.LoggerScope)
	}
	binding, ok := metax.ParseBinding(lc.LoggerBinding)
	if !ok {
		return Config{}, invalid("logger binding", lc.LoggerBinding)
	}

	cfg := Config{
		Level:    lc.LogLevel,
		Encoding: encoding,
		Prop:     lc.LoggerProp,
		Scope:    scope,
		Binding:  binding,
		NoColor:  lc.ColorDisabled(),
	}
	if lc.ServiceName != "" {
		cfg.DefaultMeta = map[string]any{"service": lc.ServiceName}
	}
	return cfg, nil
}
