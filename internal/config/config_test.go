package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("RESULT_CACHE_TTL", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider by default, got %q", cfg.LLMProvider)
	}
	if cfg.GeminiModel == "" {
		t.Fatalf("expected default gemini model")
	}
	if cfg.SessionStore != "supabase" {
		t.Fatalf("expected supabase store by default, got %q", cfg.SessionStore)
	}
	if cfg.ResultCacheTTL != 15*time.Minute {
		t.Fatalf("expected default cache ttl, got %s", cfg.ResultCacheTTL)
	}
}

func TestLoad_UnknownValuesFallBack(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "nope")
	t.Setenv("SESSION_STORE", "mongo")
	t.Setenv("RESULT_CACHE_TTL", "not-a-duration")
	cfg := Load()
	if cfg.LLMProvider != "gemini" || cfg.SessionStore != "supabase" {
		t.Fatalf("expected fallbacks, got %q/%q", cfg.LLMProvider, cfg.SessionStore)
	}
	if cfg.ResultCacheTTL != 15*time.Minute {
		t.Fatalf("expected default ttl on bad input")
	}
}

func TestLLMKeyName(t *testing.T) {
	cfg := Config{LLMProvider: "cerebras", CerebrasKey: "k"}
	if cfg.LLMKeyName() != "CEREBRAS_API_KEY" || cfg.LLMKey() != "k" {
		t.Fatalf("unexpected key selection")
	}
	cfg = Config{LLMProvider: "gemini", GeminiKey: "g"}
	if cfg.LLMKeyName() != "GEMINI_API_KEY" || cfg.LLMKey() != "g" {
		t.Fatalf("unexpected key selection")
	}
}
