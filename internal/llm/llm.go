// Package llm wraps the generative-text backends used for live suggestions
// and transcript evaluation.
package llm

import (
	"context"
	"errors"
	"iter"
)

// ErrMissingKey is returned when a backend is used without a credential.
var ErrMissingKey = errors.New("llm: api key missing")

// Generator produces text for a prompt, either in one shot or as a finite
// stream of deltas. A stream yields ("", err) once and stops on failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// errSeq is a stream that fails immediately.
func errSeq(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) { yield("", err) }
}
