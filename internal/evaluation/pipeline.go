// Package evaluation rates a finished practice conversation with a
// generative model and persists the result.
package evaluation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/metrics"
)

// ParseFailure is the error marker carried by a degraded report.
const ParseFailure = "failed to parse structured response"

// CacheKey is the handoff cache key for a session's result.
func CacheKey(sessionID string) string { return "evaluation_" + sessionID }

// Report is the response of one evaluation attempt. Exactly one of
// Evaluation and RawResponse is set.
type Report struct {
	SessionID    string             `json:"sessionId"`
	MessageCount int                `json:"messageCount"`
	Level        string             `json:"level"`
	Evaluation   *domain.Evaluation `json:"evaluation,omitempty"`
	RawResponse  string             `json:"rawResponse,omitempty"`
	Error        string             `json:"error,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	ProcessedAt  time.Time          `json:"processedAt"`
}

// Degraded reports whether the model output could not be used.
func (r *Report) Degraded() bool { return r.Evaluation == nil }

// CachedResult is what the pipeline hands to the results reader.
type CachedResult struct {
	SessionID  string            `json:"sessionID"`
	Level      string            `json:"level"`
	Evaluation domain.Evaluation `json:"evaluation"`
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store persists ratings on the session row.
type Store interface {
	UpdateEvaluation(ctx context.Context, sessionID string, ev domain.Evaluation) error
}

type Cache interface {
	Put(ctx context.Context, key string, v any) error
}

// Archiver keeps a copy of the raw transcript.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, sessionID string, messages []domain.SavedMessage) error
}

// Pipeline evaluates transcripts. Cache and Archiver are optional.
type Pipeline struct {
	gen      Generator
	store    Store
	cache    Cache
	archiver Archiver
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Pipeline)

func WithCache(c Cache) Option { return func(p *Pipeline) { p.cache = c } }

func WithArchiver(a Archiver) Option { return func(p *Pipeline) { p.archiver = a } }

func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func NewPipeline(gen Generator, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{gen: gen, store: store, now: time.Now, log: logger.Named("evaluation")}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Evaluate rates messages for sessionID. A response the model formatted
// badly yields a degraded Report, not an error. Backend and store failures
// are returned as errors.
func (p *Pipeline) Evaluate(ctx context.Context, sessionID string, messages []domain.SavedMessage, level string) (*Report, error) {
	if len(messages) == 0 {
		return nil, apperr.InvalidInput("Messages array is required")
	}
	log := p.log.With(zap.String("session_id", sessionID), zap.Int("messages", len(messages)))

	start := time.Now()
	raw, err := p.gen.Generate(ctx, BuildPrompt(messages, level))
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues("error").Inc()
		log.Error("evaluation backend failed", zap.Error(err))
		var ae *apperr.AppError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.Backend("evaluation request failed", err)
	}

	report := &Report{
		SessionID:    sessionID,
		MessageCount: len(messages),
		Level:        level,
		ProcessedAt:  p.now().UTC(),
	}

	out := Decode(raw)
	if !out.OK {
		metrics.EvaluationsTotal.WithLabelValues("degraded").Inc()
		log.Warn("unusable evaluation response", zap.String("reason", out.Reason))
		report.RawResponse = out.Raw
		report.Error = ParseFailure
		report.Reason = out.Reason
		return report, nil
	}

	ev := out.Value
	if err := p.store.UpdateEvaluation(ctx, sessionID, ev); err != nil {
		metrics.EvaluationsTotal.WithLabelValues("error").Inc()
		log.Error("persisting evaluation", zap.Error(err))
		return nil, apperr.Database("failed to persist evaluation", err)
	}
	report.Evaluation = &ev
	metrics.EvaluationsTotal.WithLabelValues("ok").Inc()

	if p.cache != nil {
		cached := CachedResult{SessionID: sessionID, Level: level, Evaluation: ev}
		if err := p.cache.Put(ctx, CacheKey(sessionID), cached); err != nil {
			log.Warn("caching evaluation", zap.Error(err))
		}
	}
	if p.archiver != nil {
		if err := p.archiver.ArchiveTranscript(ctx, sessionID, messages); err != nil {
			log.Warn("archiving transcript", zap.Error(err))
		}
	}
	log.Info("evaluation stored", zap.Float64("ielts_overall", ev.IELTS.Overall), zap.Float64("toefl_overall", ev.TOEFL.Overall))
	return report, nil
}
