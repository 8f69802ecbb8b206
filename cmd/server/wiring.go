package main

import (
	"context"
	"fmt"

	"github.com/chadiek/speaking-coach/internal/config"
	"github.com/chadiek/speaking-coach/internal/evaluation"
	"github.com/chadiek/speaking-coach/internal/llm"
	"github.com/chadiek/speaking-coach/internal/store"
)

// newGenerators returns the single-shot evaluator backend and the streaming
// suggestion backend for the configured provider.
func newGenerators(ctx context.Context, cfg config.Config) (evaluation.Generator, llm.Generator, error) {
	if cfg.LLMProvider == "cerebras" {
		c := llm.NewCerebrasClient(cfg.CerebrasKey, cfg.CerebrasModelID)
		return c, c, nil
	}
	eval, err := llm.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	eval.JSON = true
	stream, err := llm.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return eval, stream, nil
}

// newStore opens the configured session store. The archiver is nil when the
// backend has no object storage.
func newStore(ctx context.Context, cfg config.Config) (store.Store, evaluation.Archiver, func(), error) {
	switch cfg.SessionStore {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg, nil, pg.Close, nil
	default:
		sb, err := store.NewSupabase(store.SupabaseConfig{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("supabase: %w", err)
		}
		return sb, sb, func() {}, nil
	}
}
