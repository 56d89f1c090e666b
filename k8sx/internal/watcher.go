// Package internal contains the ConfigMap watch loop.
package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"go.eggybyte.com/logdecor/core/log"
)

// Watcher calls onUpdate with the ConfigMap data on every add or modify,
// and with an empty map on delete. The watch is re-established after
// RetryDelay when the server closes it.
type Watcher struct {
	client     kubernetes.Interface
	name       string
	namespace  string
	logger     log.Logger
	onUpdate   func(data map[string]string)
	retryDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a stopped watcher.
func NewWatcher(client kubernetes.Interface, name, namespace string, logger log.Logger, retryDelay time.Duration, onUpdate func(map[string]string)) *Watcher {
	return &Watcher{
		client:     client,
		name:       name,
		namespace:  namespace,
		logger:     logger.With(log.Str("configmap", namespace+"/"+name)),
		onUpdate:   onUpdate,
		retryDelay: retryDelay,
	}
}

// Start launches the watch loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return fmt.Errorf("watcher already running")
	}

	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.done = make(chan struct{})
	go w.loop(ctx)
	w.logger.Verbose("configmap watch started")
	return nil
}

// Stop ends the loop and waits for it, bounded by ctx.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		if err := w.watchOnce(ctx); err != nil {
			w.logger.Error(err, "configmap watch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *Watcher) watchOnce(ctx context.Context) error {
	wi, err := w.client.CoreV1().ConfigMaps(w.namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector: "metadata.name=" + w.name,
	})
	if err != nil {
		return err
	}
	defer wi.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wi.ResultChan():
			if !ok {
				return nil
			}
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev watch.Event) {
	switch ev.Type {
	case watch.Added, watch.Modified:
		cm, ok := ev.Object.(*corev1.ConfigMap)
		if !ok || cm.Name != w.name {
			return
		}
		w.logger.Info("configmap updated", log.Int("keys", len(cm.Data)))
		w.onUpdate(cm.Data)
	case watch.Deleted:
		cm, ok := ev.Object.(*corev1.ConfigMap)
		if !ok || cm.Name != w.name {
			return
		}
		w.logger.Warn("configmap deleted")
		w.onUpdate(map[string]string{})
	case watch.Error:
		w.logger.Error(nil, "configmap watch error event")
	}
}
