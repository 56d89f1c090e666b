package main

import (
	"context"
	"sync"
	"time"

	"go.eggybyte.com/logdecor/asyncx"
	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/instrumentx"
	"go.eggybyte.com/logdecor/provisionx"
)

// FruitManager keeps a basket of fruit. Its operations are instrumented:
// each completed call produces one record carrying responseTime.
type FruitManager struct {
	provisionx.Host

	mu    sync.Mutex
	items []string
	delay time.Duration

	AddItems func(items ...string)
	GetItems func(ctx context.Context) *asyncx.Future[[]string]
}

func newFruitManager(class *provisionx.Class[FruitManager, *FruitManager], delay time.Duration, opts ...instrumentx.Option) *FruitManager {
	m := class.New()
	m.delay = delay

	logger := class.LoggerFor(m)
	logger.Debug("debug message")
	logger.Verbose("verbose message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error(errors.New(errors.CodeInternal, "sample failure"), "error message")

	addOpts := append([]instrumentx.Option{
		instrumentx.WithFormat(func(d instrumentx.FormatData) string {
			return "Executing " + d.Method + "(" + d.Join(",") + ")"
		}),
	}, opts...)
	m.AddItems = instrumentx.Wrap(m, "addItems", m.addItems, addOpts...)
	m.GetItems = instrumentx.Wrap(m, "getItems", m.getItems, opts...)
	return m
}

func (m *FruitManager) addItems(items ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
}

func (m *FruitManager) getItems(ctx context.Context) *asyncx.Future[[]string] {
	return asyncx.Go(func() ([]string, error) {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		return append([]string(nil), m.items...), nil
	})
}
