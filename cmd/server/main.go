package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chadiek/speaking-coach/internal/agent"
	"github.com/chadiek/speaking-coach/internal/cache"
	"github.com/chadiek/speaking-coach/internal/config"
	"github.com/chadiek/speaking-coach/internal/evaluation"
	"github.com/chadiek/speaking-coach/internal/httpserver"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/results"
	"github.com/chadiek/speaking-coach/internal/suggestion"
	"github.com/chadiek/speaking-coach/internal/voice"
)

func main() {
	logger.InitDefault()
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	evalGen, streamGen, err := newGenerators(ctx, cfg)
	if err != nil {
		log.Fatal("llm setup failed", zap.Error(err))
	}

	sessions, archiver, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal("session store setup failed", zap.Error(err))
	}
	defer closeStore()

	var resultCache cache.Cache = cache.NewMemory(cfg.ResultCacheTTL, 1024)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.ResultCacheTTL)
		if err != nil {
			log.Warn("redis unavailable, using in-memory result cache", zap.Error(err))
		} else {
			defer rc.Close()
			resultCache = rc
		}
	}

	var suggestions suggestion.Streamer = streamGen
	if cfg.SuggestionEndpoint != "" {
		suggestions = suggestion.NewRemoteStreamer(cfg.SuggestionEndpoint)
	}

	opts := []evaluation.Option{evaluation.WithCache(resultCache)}
	if archiver != nil {
		opts = append(opts, evaluation.WithArchiver(archiver))
	}
	pipeline := evaluation.NewPipeline(evalGen, sessions, opts...)

	deps := httpserver.Deps{
		Config:      cfg,
		Evaluator:   pipeline,
		Results:     results.NewService(resultCache, sessions),
		Suggestions: suggestions,
		Sessions:    sessions,
		Registry:    agent.NewRegistry(),
	}
	if cfg.VoiceWSURL != "" {
		deps.NewTransport = func() agent.Transport { return voice.NewWSTransport(cfg.VoiceWSURL, cfg.VoiceAPIKey) }
	}
	srv := httpserver.New(deps)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
			_ = server.Close()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
