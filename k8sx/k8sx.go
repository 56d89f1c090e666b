// Package k8sx reads logger configuration from a Kubernetes ConfigMap and
// watches it for changes.
//
// Overview:
//   - Responsibility: ConfigMap-backed configx source and a watch service
//   - Key Types: ConfigMapSource, Watcher
//   - Concurrency Model: Source loads are independent; Watcher runs one goroutine
//   - Error Semantics: A missing ConfigMap is NOT_FOUND unless the source is optional
//   - Performance Notes: One GET per load; the watch is a single long-lived request
//
// Usage:
//
//	client, err := k8sx.NewInClusterClient()
//	src := k8sx.NewConfigMapSource(client, "fruitdemo", "default", k8sx.SourceOptions{})
//	mgr, err := configx.NewManager(ctx, configx.Options{Logger: logger, Sources: []configx.Source{src}})
//	w := k8sx.NewWatcher(client, "fruitdemo", "default", logger, func(map[string]string) { mgr.Reload(ctx) })
package k8sx

import (
	"context"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/k8sx/internal"
)

const defaultRetryDelay = 5 * time.Second

// NewInClusterClient builds a clientset from the pod's service account.
func NewInClusterClient() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, errors.Wrap(errors.CodeFailedPrecondition, "k8sx.NewInClusterClient", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "k8sx.NewInClusterClient", err)
	}
	return client, nil
}

// ParseRef splits "namespace/name". A bare name uses namespace "default".
func ParseRef(ref string) (name, namespace string) {
	if ns, n, ok := strings.Cut(ref, "/"); ok {
		return n, ns
	}
	return ref, "default"
}

// EnvKey maps a ConfigMap key to the upper-case, underscore-separated form
// that configx env tags use: "log.level" and "log-level" become "LOG_LEVEL".
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// SourceOptions configures a ConfigMapSource.
type SourceOptions struct {
	Optional bool // treat a missing ConfigMap as empty
}

// ConfigMapSource is a configx source over one ConfigMap's data.
type ConfigMapSource struct {
	client    kubernetes.Interface
	name      string
	namespace string
	opts      SourceOptions
}

// NewConfigMapSource creates a source for namespace/name.
func NewConfigMapSource(client kubernetes.Interface, name, namespace string, opts SourceOptions) *ConfigMapSource {
	return &ConfigMapSource{client: client, name: name, namespace: namespace, opts: opts}
}

// Name identifies the source in configx errors.
func (s *ConfigMapSource) Name() string {
	return "configmap:" + s.namespace + "/" + s.name
}

// Load fetches the ConfigMap and returns its data keyed by EnvKey.
func (s *ConfigMapSource) Load(ctx context.Context) (map[string]string, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		if s.opts.Optional {
			return map[string]string{}, nil
		}
		return nil, errors.Build(errors.CodeNotFound).
			WithOp("k8sx.Load").
			WithMsgf("configmap %s/%s not found", s.namespace, s.name).
			WithErr(err).
			Err()
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "k8sx.Load", err)
	}

	out := make(map[string]string, len(cm.Data))
	for k, v := range cm.Data {
		out[EnvKey(k)] = v
	}
	return out, nil
}

// Watcher watches one ConfigMap. It satisfies runtimex.Service.
type Watcher struct {
	impl *internal.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherConfig)

type watcherConfig struct {
	retryDelay time.Duration
}

// WithRetryDelay sets the pause before re-establishing a closed watch.
func WithRetryDelay(d time.Duration) WatcherOption {
	return func(c *watcherConfig) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewWatcher creates a watcher calling onUpdate on every change. Deletion
// reports an empty map.
func NewWatcher(client kubernetes.Interface, name, namespace string, logger log.Logger, onUpdate func(data map[string]string), opts ...WatcherOption) *Watcher {
	cfg := watcherConfig{retryDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Watcher{impl: internal.NewWatcher(client, name, namespace, logger, cfg.retryDelay, onUpdate)}
}

// Start begins watching in the background.
func (w *Watcher) Start(ctx context.Context) error {
	return w.impl.Start(ctx)
}

// Stop ends the watch.
func (w *Watcher) Stop(ctx context.Context) error {
	return w.impl.Stop(ctx)
}
