package provisionx

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.eggybyte.com/logdecor/configx"
	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/logx"
	"go.eggybyte.com/logdecor/metax"
	"go.eggybyte.com/logdecor/testingx"
)

type FruitManager struct {
	Host
	items []string
}

type Basket struct {
	Host
}

func testConfig(reg *metax.Registry, w io.Writer, cfg Config) Config {
	cfg.Registry = reg
	cfg.Transports = []io.Writer{w}
	cfg.NoColor = true
	return cfg
}

func TestDefine_Defaults(t *testing.T) {
	reg := metax.New()
	buf := testingx.NewRecordBuffer()

	class := Define[FruitManager](testConfig(reg, buf, Config{}))

	assert.Equal(t, "logger", class.Prop())
	assert.Equal(t, "FruitManager", class.Name())
	assert.Equal(t, reflect.TypeFor[FruitManager](), class.Type())
	assert.Same(t, reg, class.Registry())
	assert.Equal(t, "logger", reg.Resolve(class.Type()))

	class.Logger().Info("hello")
	class.Logger().Debug("filtered at info")

	records := buf.Records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "FruitManager", records[0].String("context"))
	assert.Equal(t, "info", records[0].String("level"))
	assert.Equal(t, "hello", records[0].Message())
	assert.NotEmpty(t, records[0].String("timestamp"))
}

func TestDefine_NoConfigUsesDefaultRegistry(t *testing.T) {
	metax.Default().Reset()
	t.Cleanup(metax.Default().Reset)

	class := Define[Basket]()

	assert.Same(t, metax.Default(), class.Registry())
	assert.Equal(t, "logger", metax.Default().Resolve(reflect.TypeFor[Basket]()))
}

func TestDefine_InvalidLevelFallsBackToInfo(t *testing.T) {
	buf := testingx.NewRecordBuffer()

	class := Define[FruitManager](testConfig(metax.New(), buf, Config{Level: "shouting"}))
	class.Logger().Verbose("hidden")
	class.Logger().Info("shown")

	records := buf.Records(t)
	require.Len(t, records, 2)
	assert.Equal(t, "warn", records[0].String("level"))
	assert.Equal(t, "invalid log level configured, using default level", records[0].Message())
	assert.Equal(t, "shown", records[1].Message())
}

func TestDefine_LevelsAndMeta(t *testing.T) {
	buf := testingx.NewRecordBuffer()
	class := Define[FruitManager](testConfig(metax.New(), buf, Config{
		Level:       "verbose",
		DefaultMeta: map[string]any{"context": "Fruits"},
	}))

	logger := class.Logger()
	logger.Debug("d")
	logger.Verbose("v")
	logger.Info("i")
	logger.Warn("w")
	logger.Error(nil, "e")

	records := buf.Records(t)
	require.Len(t, records, 4)
	assert.Equal(t, "verbose", records[0].String("level"))
	for _, rec := range records {
		assert.Equal(t, "Fruits", rec.String("context"), "caller meta overrides the type name")
	}
}

func TestDefine_MetaKeepsTypeContext(t *testing.T) {
	var buf bytes.Buffer
	class := Define[FruitManager](testConfig(metax.New(), &buf, Config{
		DefaultMeta: map[string]any{"team": "orchard"},
		Format: func(r logx.Record) []byte {
			ctx, _ := r.Lookup("context")
			team, _ := r.Lookup("team")
			return []byte(ctx.String() + " " + team.String() + "\n")
		},
	}))
	class.Logger().Info("x")
	assert.Equal(t, "FruitManager orchard\n", buf.String())
}

func TestDefine_CustomRendererAndEncoding(t *testing.T) {
	var buf bytes.Buffer
	class := Define[FruitManager](testConfig(metax.New(), &buf, Config{
		Format: func(r logx.Record) []byte {
			ctx, _ := r.Lookup("context")
			return []byte(logx.LevelName(r.Level) + " " + ctx.String() + " " + r.Message + "\n")
		},
	}))
	class.Logger().Warn("careful")
	assert.Equal(t, "warn FruitManager careful\n", buf.String())

	buf.Reset()
	logfmt := Define[FruitManager](testConfig(metax.New(), &buf, Config{Encoding: logx.FormatLogfmt}))
	logfmt.Logger().Info("plain")
	assert.Contains(t, buf.String(), `context="FruitManager"`)
	assert.Contains(t, buf.String(), `msg="plain"`)
}

func TestDefine_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	var colored, plain bytes.Buffer
	Define[FruitManager](Config{Registry: metax.New(), Transports: []io.Writer{&colored}}).Logger().Error(nil, "x")
	Define[FruitManager](Config{Registry: metax.New(), Transports: []io.Writer{&plain}, NoColor: true}).Logger().Error(nil, "x")

	assert.True(t, strings.HasPrefix(colored.String(), "\033[31m"))
	assert.False(t, strings.Contains(plain.String(), "\033["))

	t.Setenv("NO_COLOR", "1")
	var env bytes.Buffer
	Define[FruitManager](Config{Registry: metax.New(), Transports: []io.Writer{&env}}).Logger().Error(nil, "x")
	assert.False(t, strings.Contains(env.String(), "\033["))
}

func TestDefine_MultipleTransports(t *testing.T) {
	a, b := testingx.NewRecordBuffer(), testingx.NewRecordBuffer()
	class := Define[FruitManager](Config{Registry: metax.New(), Transports: []io.Writer{a, b}, NoColor: true})

	class.Logger().Info("both")

	assert.Len(t, a.Records(t), 1)
	assert.Len(t, b.Records(t), 1)
}

func TestDefine_ConfigsMerge(t *testing.T) {
	reg := metax.New()
	class := Define[FruitManager](
		Config{Registry: reg, Prop: "first", DefaultMeta: map[string]any{"a": 1}},
		Config{Prop: "second", Scope: ScopeInstance, DefaultMeta: map[string]any{"b": 2}},
	)

	assert.Equal(t, "second", class.Prop())
	assert.Same(t, reg, class.Registry())
	assert.Equal(t, "second", reg.Resolve(class.Type()))
}

func TestConfigMerge_ZeroValuesKeepEarlierChoice(t *testing.T) {
	base := Config{Scope: ScopeInstance, Binding: metax.BindProcess, NoColor: true, Level: "warn"}

	got := base.merge(Config{Scope: ScopeClass, Binding: metax.BindClass, NoColor: false, Level: "debug"})

	assert.Equal(t, ScopeInstance, got.Scope)
	assert.Equal(t, metax.BindProcess, got.Binding)
	assert.True(t, got.NoColor)
	assert.Equal(t, "debug", got.Level)
}

func TestDefine_Binding(t *testing.T) {
	reg := metax.New()
	var buf bytes.Buffer

	Define[FruitManager](testConfig(reg, &buf, Config{Prop: "myLogger"}))
	assert.Equal(t, "logger", reg.Get(), "class binding leaves the process slot alone")
	assert.Equal(t, "myLogger", reg.Resolve(reflect.TypeFor[FruitManager]()))

	Define[Basket](testConfig(reg, &buf, Config{Prop: "custom", Binding: metax.BindProcess}))
	assert.Equal(t, "custom", reg.Get())
	assert.Equal(t, "myLogger", reg.Resolve(reflect.TypeFor[FruitManager]()))
}

func TestInstall_ScopeClassSharesLogger(t *testing.T) {
	class := Define[FruitManager](testConfig(metax.New(), io.Discard, Config{}))

	a, b := class.New(), class.New()

	la, ok := a.Logger("logger")
	require.True(t, ok)
	lb, ok := b.Logger("logger")
	require.True(t, ok)
	assert.Same(t, la, lb)
	assert.Same(t, class.Logger(), la)
	assert.Equal(t, reflect.TypeFor[FruitManager](), a.HostType())
}

func TestInstall_ScopeInstanceBuildsFreshLoggers(t *testing.T) {
	buf := testingx.NewRecordBuffer()
	class := Define[FruitManager](testConfig(metax.New(), buf, Config{Scope: ScopeInstance}))

	a, b := class.New(), class.New()

	la, lb := class.LoggerFor(a), class.LoggerFor(b)
	assert.NotSame(t, la, lb)
	assert.NotSame(t, class.Logger(), la)

	la.Info("from a")
	records := buf.Records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "FruitManager", records[0].String("context"))
}

func TestInstall_ExistingInstance(t *testing.T) {
	class := Define[FruitManager](testConfig(metax.New(), io.Discard, Config{Prop: "myLogger"}))

	fm := &FruitManager{items: []string{"apple"}}
	got := class.Install(fm)

	assert.Same(t, fm, got)
	assert.Equal(t, []string{"apple"}, fm.items)
	_, ok := fm.Property("myLogger")
	assert.True(t, ok)
	_, ok = fm.Property("logger")
	assert.False(t, ok)
}

func TestLoggerFor_FallsBackToTemplate(t *testing.T) {
	class := Define[FruitManager](testConfig(metax.New(), io.Discard, Config{}))

	assert.Same(t, class.Logger(), class.LoggerFor(&FruitManager{}))
}

func TestHost(t *testing.T) {
	var h Host

	_, ok := h.Property("logger")
	assert.False(t, ok)
	assert.Nil(t, h.HostType())

	h.Set("logger", "not a logger")
	v, ok := h.Property("logger")
	assert.True(t, ok)
	assert.Equal(t, "not a logger", v)
	_, ok = h.Logger("logger")
	assert.False(t, ok)

	mock := testingx.NewMockLogger(t)
	h.Set("logger", log.Logger(mock))
	got, ok := h.Logger("logger")
	require.True(t, ok)
	assert.Same(t, mock, got)
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"": ScopeClass, "class": ScopeClass, "instance": ScopeInstance} {
		got, ok := ParseScope(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseScope("galaxy")
	assert.False(t, ok)
}

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(configx.LoggerConfig{
		ServiceName:   "fruitdemo",
		LogLevel:      "debug",
		LogFormat:     "logfmt",
		NoColor:       "1",
		LoggerProp:    "myLogger",
		LoggerScope:   "instance",
		LoggerBinding: "process",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, logx.FormatLogfmt, cfg.Encoding)
	assert.Equal(t, "myLogger", cfg.Prop)
	assert.Equal(t, ScopeInstance, cfg.Scope)
	assert.Equal(t, metax.BindProcess, cfg.Binding)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, map[string]any{"service": "fruitdemo"}, cfg.DefaultMeta)
}

func TestFromConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  configx.LoggerConfig
	}{
		{"level", configx.LoggerConfig{LogLevel: "shouting"}},
		{"format", configx.LoggerConfig{LogFormat: "xml"}},
		{"scope", configx.LoggerConfig{LoggerScope: "galaxy"}},
		{"binding", configx.LoggerConfig{LoggerBinding: "galaxy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.cfg)
			testingx.AssertError(t, err, errors.CodeInvalidArgument)
		})
	}
}
