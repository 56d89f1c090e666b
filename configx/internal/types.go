// Package internal provides internal implementation details for configx.
package internal

import "context"

// Source reads one configuration snapshot.
// Implementations must be thread-safe and honor context cancellation.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string

	// Load reads the current configuration as flat key-value pairs.
	Load(ctx context.Context) (map[string]string, error)
}
