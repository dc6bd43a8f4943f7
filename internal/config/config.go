package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Client side: where the conversion service lives.
	ServiceURL     string
	RequestTimeout time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Analysis results are cached by content hash.
	AnalysisCacheTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Optional Claude feature writer. Empty key means rules only.
	AnthropicAPIKey string
	AnthropicModel  string
	LLMStatsWindow  time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set
// in the environment win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8000"),

		ServiceURL:     envOr("BDDGEN_SERVICE_URL", "http://localhost:8000"),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 60*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		AnalysisCacheTTL: envDuration("ANALYSIS_CACHE_TTL", 10*time.Minute),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		LLMStatsWindow:  envDuration("LLM_STATS_WINDOW", 1*time.Hour),
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.AnalysisCacheTTL <= 0 {
		cfg.AnalysisCacheTTL = 10 * time.Minute
	}
	if cfg.LLMStatsWindow <= 0 {
		cfg.LLMStatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT must be a TCP port, got %q", c.Port)
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BDDGEN_SERVICE_URL must be an http(s) URL, got %q", c.ServiceURL)
	}
	if c.AnthropicAPIKey != "" && c.AnthropicModel == "" {
		return fmt.Errorf("ANTHROPIC_MODEL is required when ANTHROPIC_API_KEY is set")
	}
	return nil
}

// LLMEnabled reports whether features should be written by Claude.
func (c Config) LLMEnabled() bool { return c.AnthropicAPIKey != "" }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
