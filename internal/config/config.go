package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/logger"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// LLMProvider selects the generative-text backend: "gemini" or "cerebras".
	LLMProvider     string
	GeminiKey       string
	GeminiModel     string
	CerebrasKey     string
	CerebrasModelID string
	// SuggestionEndpoint, when set, routes live suggestions through a remote
	// streaming endpoint instead of calling the backend in-process.
	SuggestionEndpoint string

	SessionStore           string // "supabase" or "postgres"
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
	DatabaseURL            string

	RedisURL       string
	ResultCacheTTL time.Duration

	VoiceWSURL  string
	VoiceAPIKey string
}

// Load reads environment variables (and .env when present) and returns Config
// with sane defaults.
func Load() Config {
	log := logger.Named("config")
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", zap.Error(err))
	}

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		LLMProvider:            strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiKey:              os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		CerebrasKey:            os.Getenv("CEREBRAS_API_KEY"),
		CerebrasModelID:        getEnv("CEREBRAS_MODEL_ID", "gpt-oss-120b"),
		SuggestionEndpoint:     os.Getenv("SUGGESTION_ENDPOINT"),
		SessionStore:           strings.ToLower(getEnv("SESSION_STORE", "supabase")),
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "transcripts"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		ResultCacheTTL:         getDuration("RESULT_CACHE_TTL", 15*time.Minute),
		VoiceWSURL:             os.Getenv("VOICE_WS_URL"),
		VoiceAPIKey:            os.Getenv("VOICE_API_KEY"),
	}

	switch cfg.LLMProvider {
	case "cerebras":
		if cfg.CerebrasKey == "" {
			log.Warn("CEREBRAS_API_KEY not set - evaluation and suggestions will not work")
		}
	default:
		cfg.LLMProvider = "gemini"
		if cfg.GeminiKey == "" {
			log.Warn("GEMINI_API_KEY not set - evaluation and suggestions will not work")
		}
	}
	switch cfg.SessionStore {
	case "postgres":
		if cfg.DatabaseURL == "" {
			log.Warn("DATABASE_URL not set - session persistence will not work")
		}
	default:
		cfg.SessionStore = "supabase"
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
			log.Warn("SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set - session persistence will not work")
		}
	}
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set - using in-memory result cache")
	}
	if cfg.VoiceWSURL == "" {
		log.Warn("VOICE_WS_URL not set - live calls will not connect")
	}

	log.Info("config loaded",
		zap.String("http_address", cfg.HTTPAddress),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("session_store", cfg.SessionStore),
	)
	return cfg
}

// LLMKey returns the credential of the selected backend.
func (c Config) LLMKey() string {
	if c.LLMProvider == "cerebras" {
		return c.CerebrasKey
	}
	return c.GeminiKey
}

// LLMKeyName is the env var naming the selected backend credential.
func (c Config) LLMKeyName() string {
	if c.LLMProvider == "cerebras" {
		return "CEREBRAS_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
