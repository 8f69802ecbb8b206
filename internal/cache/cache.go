// Package cache is the one-time handoff buffer between the evaluation
// pipeline and the results reader. Values are JSON encoded, and Take reads
// and evicts in one step.
package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Take when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

type Cache interface {
	Put(ctx context.Context, key string, v any) error
	// Take decodes the value for key into dst and removes it.
	Take(ctx context.Context, key string, dst any) error
}
