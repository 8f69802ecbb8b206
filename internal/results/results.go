// Package results reads back a session's rating, preferring the one-time
// handoff left by the evaluation pipeline.
package results

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/cache"
	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/evaluation"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/metrics"
	"github.com/chadiek/speaking-coach/internal/store"
)

// Result is the rating shown on the results page.
type Result = evaluation.CachedResult

type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
}

type Taker interface {
	Take(ctx context.Context, key string, dst any) error
}

type Service struct {
	cache Taker
	store SessionReader
	log   *zap.Logger
}

// NewService builds a Service. c may be nil.
func NewService(c Taker, s SessionReader) *Service {
	return &Service{cache: c, store: s, log: logger.Named("results")}
}

// GetResult returns the cached result once, then falls back to the stored
// session. A session without ratings counts as missing.
func (s *Service) GetResult(ctx context.Context, sessionID string) (*Result, error) {
	log := s.log.With(zap.String("session_id", sessionID))

	if s.cache != nil {
		var r Result
		err := s.cache.Take(ctx, evaluation.CacheKey(sessionID), &r)
		switch {
		case err == nil:
			metrics.ResultLookupsTotal.WithLabelValues("cache").Inc()
			return &r, nil
		case !errors.Is(err, cache.ErrMiss):
			log.Warn("reading result cache", zap.Error(err))
		}
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !sess.Evaluated()) {
		metrics.ResultLookupsTotal.WithLabelValues("miss").Inc()
		return nil, apperr.NotFound("No evaluation found for this session")
	}
	if err != nil {
		return nil, apperr.Database("failed to load session", err)
	}
	metrics.ResultLookupsTotal.WithLabelValues("store").Inc()
	return &Result{
		SessionID: sessionID,
		Level:     sess.Level,
		Evaluation: domain.Evaluation{
			IELTS:    *sess.IELTSRating,
			TOEFL:    *sess.TOEFLRating,
			Feedback: *sess.Feedback,
		},
	}, nil
}
