// Package config loads process configuration from the environment.
//
// Configuration is pure data: Load reads env vars once at process start and
// returns a value, nothing in this package performs I/O beyond that read.
// Components receive a Config by value in their constructors and never reach
// back into the environment themselves (see internal/provider).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment gates fail-fast vs in-memory fallback behaviour for the
// circuit-breaker store and other shared dependencies.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// Config is the fully resolved, immutable process configuration.
type Config struct {
	Environment Environment

	Server ServerConfig

	RedisURL string

	SpatialIndexURI string

	Countries map[string]bool // e.g. "AU" -> true, "NZ" -> true

	PublicBuckets map[string]bool // bucket names served unsigned

	Sources SourcesConfig

	BatchMaxPoints  int
	QueryConcurrency int
}

type ServerConfig struct {
	Host        string
	Port        string
	Environment string
}

// SourceConfig holds the per-source tuning knobs: api_key, timeout_ms,
// daily_request_quota, failure_threshold, recovery_timeout_ms.
type SourceConfig struct {
	Enabled            bool
	APIKey             string
	BaseURL            string
	Timeout            time.Duration
	DailyRequestQuota  int
	FailureThreshold   int
	RecoveryTimeout    time.Duration
}

type SourcesConfig struct {
	PrivateBucket SourceConfig
	PublicBucket  SourceConfig
	HTTPAPIA      SourceConfig
	HTTPAPIB      SourceConfig
}

// Load reads configuration from the environment, optionally seeded by a
// .env file in the working directory (ignored if absent, matching local-dev
// convenience elsewhere in the stack).
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := Environment(getenv("APP_ENV", string(Development)))
	if env != Production && env != Development {
		return nil, fmt.Errorf("invalid APP_ENV %q: must be %q or %q", env, Production, Development)
	}

	indexURI := os.Getenv("SPATIAL_INDEX_URI")
	if indexURI == "" {
		return nil, fmt.Errorf("SPATIAL_INDEX_URI environment variable required")
	}

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Host:        getenv("HOST", "0.0.0.0"),
			Port:        getenv("PORT", "8080"),
			Environment: string(env),
		},
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379"),
		SpatialIndexURI: indexURI,
		Countries:       parseEnabledCountries(),
		PublicBuckets:   parseSet(getenv("PUBLIC_BUCKETS", "")),
		Sources: SourcesConfig{
			PrivateBucket: loadSourceConfig("PRIVATE_BUCKET", 2*time.Second, 3, 30*time.Second),
			PublicBucket:  loadSourceConfig("PUBLIC_BUCKET", 2*time.Second, 3, 30*time.Second),
			HTTPAPIA:      loadSourceConfig("HTTP_API_A", 8*time.Second, 5, 60*time.Second),
			HTTPAPIB:      loadSourceConfig("HTTP_API_B", 15*time.Second, 5, 60*time.Second),
		},
		BatchMaxPoints:   getenvInt("BATCH_MAX_POINTS", 500),
		QueryConcurrency: getenvInt("QUERY_CONCURRENCY", 12),
	}

	if env == Production && !strings.Contains(cfg.RedisURL, "://") {
		return nil, fmt.Errorf("REDIS_URL must be a valid URL in production, got %q", cfg.RedisURL)
	}

	slog.Info("configuration loaded",
		"environment", cfg.Environment,
		"spatial_index_uri", cfg.SpatialIndexURI,
		"batch_max_points", cfg.BatchMaxPoints,
		"query_concurrency", cfg.QueryConcurrency,
	)

	return cfg, nil
}

func loadSourceConfig(prefix string, defaultTimeout time.Duration, defaultThreshold int, defaultRecovery time.Duration) SourceConfig {
	return SourceConfig{
		Enabled:           getenvBool(prefix+"_ENABLED", true),
		APIKey:            os.Getenv(prefix + "_API_KEY"),
		BaseURL:           os.Getenv(prefix + "_BASE_URL"),
		Timeout:           getenvDuration(prefix+"_TIMEOUT_MS", defaultTimeout),
		DailyRequestQuota: getenvInt(prefix+"_DAILY_REQUEST_QUOTA", 0),
		FailureThreshold:  getenvInt(prefix+"_FAILURE_THRESHOLD", defaultThreshold),
		RecoveryTimeout:   getenvDuration(prefix+"_RECOVERY_TIMEOUT_MS", defaultRecovery),
	}
}

func parseEnabledCountries() map[string]bool {
	countries := map[string]bool{}
	for _, tag := range []string{"AU", "NZ"} {
		countries[tag] = getenvBool("ENABLE_COUNTRY_"+tag, true)
	}
	return countries
}

func parseSet(raw string) map[string]bool {
	set := map[string]bool{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			set[item] = true
		}
	}
	return set
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
		slog.Warn("invalid duration env var (expected milliseconds), using default", "key", key, "value", v, "default", fallback)
	}
	return fallback
}
