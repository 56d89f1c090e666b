// Package main runs the FruitManager demo of provisioned, instrumented loggers.
//
// Overview:
//   - Responsibility: Load logger configuration, provision FruitManager and run its calls
//   - Key Types: options, FruitManager
//   - Concurrency Model: Single command; getItems resolves on a worker goroutine
//   - Error Semantics: Configuration and metrics errors exit with code 1
//   - Performance Notes: Metrics and health are served only with --metrics-addr
//
// Usage:
//
//	fruitdemo [--config file.yaml] [--level debug] [--format logfmt] [--metrics-addr :9090]
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/logdecor/configx"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/instrumentx"
	"go.eggybyte.com/logdecor/k8sx"
	"go.eggybyte.com/logdecor/logx"
	"go.eggybyte.com/logdecor/metax"
	"go.eggybyte.com/logdecor/obsx"
	"go.eggybyte.com/logdecor/provisionx"
	"go.eggybyte.com/logdecor/runtimex"
)

// newKubeClient is replaced in tests.
var newKubeClient = k8sx.NewInClusterClient

type options struct {
	configFiles []string
	configMap   string
	level       string
	format      string
	noColor     bool
	metricsAddr string
	items       []string
	delay       time.Duration
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "fruitdemo",
		Short: "Run the FruitManager logging demo",
		Long: `Provisions a logger for FruitManager, then calls addItems (sync) and
getItems (async). Each call emits one record with its responseTime.

Configuration is read from --config files, then the --configmap ConfigMap,
then environment variables, then flags. While serving metrics the ConfigMap
is watched and changes are reported.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.configFiles, "config", nil, "YAML or JSON config files, later files win")
	f.StringVar(&opts.configMap, "configmap", "", "read settings from a Kubernetes ConfigMap, as namespace/name")
	f.StringVar(&opts.level, "level", "", "log level: debug, verbose, info, warn, error")
	f.StringVar(&opts.format, "format", "", "record encoding: json or logfmt")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored levels")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address and wait for a signal")
	f.StringSliceVar(&opts.items, "items", []string{"apple", "banana", "cherry"}, "fruit to add")
	f.DurationVar(&opts.delay, "delay", 50*time.Millisecond, "getItems latency")
	return cmd
}

type loaded struct {
	lc      configx.LoggerConfig
	mgr     configx.Manager
	kube    kubernetes.Interface
	cmName  string
	cmSpace string
}

func (o options) apply(lc *configx.LoggerConfig) {
	if o.level != "" {
		lc.LogLevel = o.level
	}
	if o.format != "" {
		lc.LogFormat = o.format
	}
	if o.noColor {
		lc.NoColor = "1"
	}
	if o.metricsAddr != "" {
		lc.MetricsAddr = o.metricsAddr
	}
}

func loadConfig(ctx context.Context, cmd *cobra.Command, opts options) (*loaded, error) {
	bootstrap := logx.New(
		logx.WithWriter(cmd.ErrOrStderr()),
		logx.WithLevel(logx.LevelWarn),
		logx.WithDefaultMeta(map[string]any{"context": "fruitdemo"}),
	)

	out := &loaded{}
	sources := configx.DefaultSources(opts.configFiles...)
	if opts.configMap != "" {
		kube, err := newKubeClient()
		if err != nil {
			return nil, err
		}
		out.kube = kube
		out.cmName, out.cmSpace = k8sx.ParseRef(opts.configMap)
		src := k8sx.NewConfigMapSource(kube, out.cmName, out.cmSpace, k8sx.SourceOptions{})
		env := sources[len(sources)-1]
		sources = append(sources[:len(sources)-1:len(sources)-1], src, env)
	}

	mgr, err := configx.NewManager(ctx, configx.Options{Logger: bootstrap, Sources: sources})
	if err != nil {
		return nil, err
	}
	lc, err := configx.BindLoggerConfig(mgr)
	if err != nil {
		return nil, err
	}
	opts.apply(&lc)
	out.lc, out.mgr = lc, mgr
	return out, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ld, err := loadConfig(ctx, cmd, opts)
	if err != nil {
		return err
	}
	lc := ld.lc
	cfg, err := provisionx.FromConfig(lc)
	if err != nil {
		return err
	}
	registry := metax.New()
	cfg.Registry = registry
	cfg.Transports = []io.Writer{cmd.OutOrStdout()}

	rtLogger := logx.New(cfgLoggerOptions(cmd, lc)...)
	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: lc.ServiceName})
	if err != nil {
		return err
	}
	defer shutdownProvider(provider, rtLogger)
	recorder, err := provider.CallRecorder()
	if err != nil {
		return err
	}

	class := provisionx.Define[FruitManager](cfg)
	m := newFruitManager(class, opts.delay,
		instrumentx.WithRegistry(registry),
		instrumentx.WithObserver(recorder),
	)

	m.AddItems(opts.items...)
	items, err := m.GetItems(ctx).Await(ctx)
	if err != nil {
		return err
	}
	class.Logger().Info("basket: " + strings.Join(items, ","))

	if lc.MetricsAddr == "" {
		return nil
	}
	if err := provider.EnableRuntimeMetrics(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var services []runtimex.Service
	if ld.kube != nil {
		services = append(services, watchConfig(ctx, ld, opts, rtLogger))
	}
	return runtimex.Run(ctx, services, runtimex.Options{
		Logger:  rtLogger,
		Metrics: &runtimex.Endpoint{Addr: lc.MetricsAddr, Handler: provider.Handler()},
		Health:  &runtimex.Endpoint{Addr: lc.MetricsAddr},
	})
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownProvider flushes the metrics provider on exit. Failures are logged
// since the command result is already decided.
func shutdownProvider(p shutdowner, logger log.Logger) {
	if err := p.Shutdown(context.Background()); err != nil {
		logger.Error(err, "metrics provider shutdown failed")
	}
}

// watchConfig reloads the manager on ConfigMap changes. Loggers are declared
// once, so a changed level is reported rather than applied.
func watchConfig(ctx context.Context, ld *loaded, opts options, logger log.Logger) runtimex.Service {
	ld.mgr.OnReload(func(map[string]string) {
		next, err := configx.BindLoggerConfig(ld.mgr)
		if err != nil {
			logger.Error(err, "reloaded configuration is invalid")
			return
		}
		opts.apply(&next)
		if next.LogLevel != ld.lc.LogLevel || next.LogFormat != ld.lc.LogFormat {
			logger.Warn("logger configuration changed, restart to apply",
				log.Str("level", next.LogLevel), log.Str("format", next.LogFormat))
		}
	})
	return k8sx.NewWatcher(ld.kube, ld.cmName, ld.cmSpace, logger, func(map[string]string) {
		if err := ld.mgr.Reload(ctx); err != nil {
			logger.Error(err, "configuration reload failed")
		}
	})
}

// cfgLoggerOptions builds the runtime's own logger from the same settings,
// under the "fruitdemo" context.
func cfgLoggerOptions(cmd *cobra.Command, lc configx.LoggerConfig) []logx.Option {
	level, _ := logx.ParseLevel(lc.LogLevel)
	opts := []logx.Option{
		logx.WithWriter(cmd.OutOrStdout()),
		logx.WithLevel(level),
		logx.WithColor(!lc.ColorDisabled() && logx.ColorEnabled()),
		logx.WithDefaultMeta(map[string]any{"context": "fruitdemo", "service": lc.ServiceName}),
	}
	if lc.LogFormat != "" {
		opts = append(opts, logx.WithFormat(logx.Format(lc.LogFormat)))
	}
	return opts
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
