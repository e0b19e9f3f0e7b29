// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper. The loaded
// value is immutable and passed explicitly into constructors; nothing
// reads ambient process state after startup.
type Config struct {
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	DB       DBConfig       `mapstructure:"db"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WatcherConfig locates the target registry and sets the daemon cadence.
type WatcherConfig struct {
	TargetsFile     string `mapstructure:"targets_file"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// HTTPConfig configures the fetcher and its retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxBodyBytes     int    `mapstructure:"max_body_bytes"`
}

// HeadlessConfig configures the rendered-fetch fallback for HTML targets.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// PipelineConfig governs orchestration of a run.
type PipelineConfig struct {
	Concurrency        int  `mapstructure:"concurrency"`
	RunDeadlineSeconds int  `mapstructure:"run_deadline_seconds"`
	StrictParsing      bool `mapstructure:"strict_parsing"`
}

// DBConfig controls the Postgres-backed snapshot gateway. An empty DSN
// selects the in-memory gateway.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// OpsConfig controls the health/metrics HTTP server.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig selects the zap flavor and minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("watcher.targets_file", "targets.yaml")
	v.SetDefault("watcher.interval_seconds", 3600)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 8000)
	v.SetDefault("http.user_agent", "docwatch/0.1")
	v.SetDefault("http.max_body_bytes", 2*1024*1024)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("pipeline.concurrency", 10)
	v.SetDefault("pipeline.run_deadline_seconds", 600)
	v.SetDefault("pipeline.strict_parsing", false)
	v.SetDefault("db.table", "snapshots")
	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.port", 8090)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Watcher.TargetsFile == "" {
		return fmt.Errorf("watcher.targets_file must be set")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.RunDeadlineSeconds <= 0 {
		return fmt.Errorf("pipeline.run_deadline_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when the ops server is enabled")
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RunDeadline returns the overall run deadline as a duration.
func (c Config) RunDeadline() time.Duration {
	return time.Duration(c.Pipeline.RunDeadlineSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// Interval returns the daemon sleep between runs.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Watcher.IntervalSeconds) * time.Second
}
