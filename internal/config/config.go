// SPDX-License-Identifier: MIT

// Package config loads litkeeper configuration from the environment with
// logged defaults and fail-fast validation.
package config

import (
	"fmt"
	"net"
	"time"
)

// AppConfig holds the full runtime configuration of the litkeeper daemon.
type AppConfig struct {
	// Core paths and listen address
	DataDir string // root of the writable data directory
	Listen  string // HTTP listen address

	// Logging
	LogLevel   string
	LogService string
	Version    string

	// Fetch pipeline
	Workers      int           // concurrent download jobs
	FetchTimeout time.Duration // per-page request deadline
	FetchRetries int           // retries per page on transient failure
	FetchDelay   time.Duration // politeness delay between page requests
	MaxPages     int           // hard cap on pages per story

	// Selector profiles
	SelectorsPath string // optional YAML file overriding the built-in profile

	// Page cache (optional Redis; in-memory fallback)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Notifications
	TelegramBotToken string
	TelegramChatID   string

	// API rate limits (requests per minute per IP)
	APIRateLimit    int
	SubmitRateLimit int

	// Tracing
	TracingEnabled  bool
	TracingEndpoint string
	TracingExporter string // "grpc", "http" or "noop"
	TracingSampling float64
}

// Load reads the configuration from the environment, applying defaults.
func Load(version string) AppConfig {
	return AppConfig{
		DataDir: ParseString("LITKEEPER_DATA", "/app/data"),
		Listen:  ParseString("LITKEEPER_LISTEN", ":8000"),

		LogLevel:   ParseString("LITKEEPER_LOG_LEVEL", "info"),
		LogService: ParseString("LITKEEPER_LOG_SERVICE", "litkeeper"),
		Version:    version,

		Workers:      ParseInt("LITKEEPER_WORKERS", 2),
		FetchTimeout: ParseDuration("LITKEEPER_FETCH_TIMEOUT", 10*time.Second),
		FetchRetries: ParseInt("LITKEEPER_FETCH_RETRIES", 2),
		FetchDelay:   ParseDuration("LITKEEPER_FETCH_DELAY", 3*time.Second),
		MaxPages:     ParseInt("LITKEEPER_MAX_PAGES", 500),

		SelectorsPath: ParseString("LITKEEPER_SELECTORS", ""),

		RedisAddr:     ParseString("LITKEEPER_REDIS_ADDR", ""),
		RedisPassword: ParseString("LITKEEPER_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("LITKEEPER_REDIS_DB", 0),
		CacheTTL:      ParseDuration("LITKEEPER_CACHE_TTL", 15*time.Minute),

		TelegramBotToken: ParseString("LITKEEPER_TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   ParseString("LITKEEPER_TELEGRAM_CHAT_ID", ""),

		APIRateLimit:    ParseInt("LITKEEPER_RATE_LIMIT", 600),
		SubmitRateLimit: ParseInt("LITKEEPER_SUBMIT_RATE_LIMIT", 10),

		TracingEnabled:  ParseBool("LITKEEPER_TRACING_ENABLED", false),
		TracingEndpoint: ParseString("LITKEEPER_TRACING_ENDPOINT", ""),
		TracingExporter: ParseString("LITKEEPER_TRACING_EXPORTER", "noop"),
		TracingSampling: ParseFloat("LITKEEPER_TRACING_SAMPLING", 1.0),
	}
}

// Validate checks the configuration for fatal misconfiguration.
// Either the full config is valid, or startup aborts with the returned error.
func Validate(cfg AppConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory is empty")
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must be >= 0, got %d", cfg.FetchRetries)
	}
	if cfg.FetchDelay < 0 {
		return fmt.Errorf("fetch delay must be >= 0, got %s", cfg.FetchDelay)
	}
	if cfg.MaxPages < 1 {
		return fmt.Errorf("max pages must be >= 1, got %d", cfg.MaxPages)
	}
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == "") {
		return fmt.Errorf("telegram notifications require both bot token and chat id")
	}
	switch cfg.TracingExporter {
	case "noop", "grpc", "http":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", cfg.TracingExporter)
	}
	return nil
}
