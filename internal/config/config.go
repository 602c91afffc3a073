package config

import (
	"time"

	"github.com/namelens/pitchscore/internal/ailink"
)

// Config represents the complete application configuration.
// Precedence, lowest first: built-in defaults, config file, environment
// variables, runtime overrides.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies on /api routes.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// RateLimitConfig configures the fixed-window limiter on POST /api/score.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Limit         int           `mapstructure:"limit"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Message       string        `mapstructure:"message"`
	Stats         StatsConfig   `mapstructure:"stats"`
}

// StatsConfig configures optional Redis-backed decision counters.
type StatsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	Prefix          string        `mapstructure:"prefix"`
	TTL             time.Duration `mapstructure:"ttl"`
	TrackIdentities bool          `mapstructure:"track_identities"`
}

// ScoringConfig configures the scoring orchestrator.
type ScoringConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	ScorePrompt    string        `mapstructure:"score_prompt"`
	FeedbackPrompt string        `mapstructure:"feedback_prompt"`
	ScoreRole      string        `mapstructure:"score_role"`
	FeedbackRole   string        `mapstructure:"feedback_role"`
	History        HistoryConfig `mapstructure:"history"`
}

// HistoryConfig controls the per-identity result journal.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Keep is the number of analyses retained per identity.
	Keep int `mapstructure:"keep"`
}

// StoreConfig contains database configuration for libsql/Turso or sqlite.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`

	// Format is json or console for the server sink.
	Format string `mapstructure:"format"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`

	// Namespace prefixes exported metric names.
	Namespace string `mapstructure:"namespace"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}
