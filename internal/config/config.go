/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	// External collaborators
	CatalogURL    string // Catalog lookup base URL (e.g., http://catalog:8090)
	CatalogAPIKey string // optional X-API-Key sent on catalog lookups
	PlayerURL     string // Remote player device base URL (e.g., http://player:8091)

	// Playback
	PollInterval   time.Duration // boundary-watch poll period
	PlaylistPath   string        // optional YAML medley loaded at startup
	RequestTimeout time.Duration // catalog/player HTTP call timeout

	// Resolver snapshot cache (optional)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Now-playing fanout (optional)
	NATSURL string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MEDLEY_ENV", "development"),
		HTTPBind:    getEnv("MEDLEY_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("MEDLEY_HTTP_PORT", 8080),
		MetricsBind: getEnv("MEDLEY_METRICS_BIND", "127.0.0.1:9000"),

		CatalogURL:    getEnv("MEDLEY_CATALOG_URL", ""),
		CatalogAPIKey: getEnv("MEDLEY_CATALOG_API_KEY", ""),
		PlayerURL:     getEnv("MEDLEY_PLAYER_URL", ""),

		PollInterval:   time.Duration(getEnvInt("MEDLEY_POLL_INTERVAL_MS", 100)) * time.Millisecond,
		PlaylistPath:   getEnv("MEDLEY_PLAYLIST_PATH", ""),
		RequestTimeout: time.Duration(getEnvInt("MEDLEY_REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,

		RedisEnabled:  getEnvBool("MEDLEY_REDIS_ENABLED", false),
		RedisAddr:     getEnv("MEDLEY_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("MEDLEY_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MEDLEY_REDIS_DB", 0),

		NATSURL: getEnv("MEDLEY_NATS_URL", ""),

		TracingEnabled:    getEnvBool("MEDLEY_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MEDLEY_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MEDLEY_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.CatalogURL == "" {
		return nil, fmt.Errorf("MEDLEY_CATALOG_URL must be provided")
	}
	if cfg.PlayerURL == "" {
		return nil, fmt.Errorf("MEDLEY_PLAYER_URL must be provided")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("MEDLEY_POLL_INTERVAL_MS must be positive")
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("MEDLEY_TRACING_SAMPLE_RATE must be within [0, 1]")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
