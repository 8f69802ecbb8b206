// Package suggestion turns conversation prompts into streamed example answers
// shown to the learner while the call is in progress.
package suggestion

import (
	"context"
	"iter"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/metrics"
)

// Status is the engine's generation state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
)

// State is an immutable snapshot of the engine. Suggestions are newest first.
type State struct {
	Status       Status   `json:"status"`
	StreamedText string   `json:"streamedText"`
	Suggestions  []string `json:"suggestions"`
}

// Streamer produces a finite stream of text deltas for a prompt.
type Streamer interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Engine runs at most one live suggestion stream at a time. A new prompt
// supersedes the stream in flight: the old stream is cancelled and nothing it
// produces is published afterwards.
type Engine struct {
	streamer Streamer
	onChange func(State)
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewEngine creates an Engine. onChange receives every state change; it is
// called with the engine locked and must not call back into the engine.
func NewEngine(streamer Streamer, onChange func(State)) *Engine {
	return &Engine{
		streamer: streamer,
		onChange: onChange,
		log:      logger.Named("suggestion"),
		state:    State{Status: StatusWaiting},
	}
}

// Generate starts streaming a suggestion for prompt and returns immediately.
// An empty prompt resets the engine to waiting without calling the backend.
func (e *Engine) Generate(prompt string) {
	prompt = strings.TrimSpace(prompt)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.state.StreamedText = ""
	if prompt == "" {
		e.state.Status = StatusWaiting
		e.publishLocked()
		return
	}
	e.state.Status = StatusGenerating
	e.publishLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	token := e.gen
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		e.run(ctx, token, prompt)
	}()
}

func (e *Engine) run(ctx context.Context, token uint64, prompt string) {
	var b strings.Builder
	for delta, err := range e.streamer.Stream(ctx, prompt) {
		if err != nil {
			e.fail(token, err)
			return
		}
		b.WriteString(delta)
		if !e.update(token, func(s *State) { s.StreamedText = b.String() }) {
			metrics.SuggestionsTotal.WithLabelValues("superseded").Inc()
			return
		}
	}

	text := strings.TrimSpace(b.String())
	ok := e.update(token, func(s *State) {
		if text != "" {
			s.Suggestions = append([]string{text}, s.Suggestions...)
		}
		s.StreamedText = ""
		s.Status = StatusReady
	})
	if ok {
		metrics.SuggestionsTotal.WithLabelValues("ready").Inc()
	} else {
		metrics.SuggestionsTotal.WithLabelValues("superseded").Inc()
	}
}

func (e *Engine) fail(token uint64, err error) {
	ok := e.update(token, func(s *State) {
		s.StreamedText = ""
		s.Status = StatusWaiting
	})
	if !ok {
		metrics.SuggestionsTotal.WithLabelValues("superseded").Inc()
		return
	}
	metrics.SuggestionsTotal.WithLabelValues("failed").Inc()
	e.log.Warn("suggestion stream failed", zap.Error(err))
}

// update applies fn and publishes if token is still the current generation
// and the engine is open. It reports whether fn was applied.
func (e *Engine) update(token uint64, fn func(*State)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || token != e.gen {
		return false
	}
	fn(&e.state)
	e.publishLocked()
	return true
}

func (e *Engine) publishLocked() {
	if e.onChange != nil {
		e.onChange(e.snapshotLocked())
	}
}

func (e *Engine) snapshotLocked() State {
	s := e.state
	s.Suggestions = append([]string(nil), e.state.Suggestions...)
	return s
}

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Wait blocks until every started stream has returned.
func (e *Engine) Wait() { e.wg.Wait() }

// Close cancels the stream in flight and stops all publishing.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
}
