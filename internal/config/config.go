// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New returns a Config filled with defaults.
//   - Load layers defaults, an optional YAML file and CLICKER_ env vars.
//   - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// AppName prefixes exported file names.
	AppName string `koanf:"app_name"`
	// PublicBaseURL is the origin used to build share links.
	PublicBaseURL string `koanf:"public_base_url"`

	// StoreDriver selects the document store: memory, sqlite, postgres or
	// http (a remote score server).
	StoreDriver    string `koanf:"store_driver"`
	SQLitePath     string `koanf:"sqlite_path"`
	PostgresDSN    string `koanf:"postgres_dsn"`
	ScoreServerURL string `koanf:"score_server_url"`

	// WSOrigins is a comma separated list of extra origin patterns allowed
	// to open live sessions.
	WSOrigins string `koanf:"ws_origins"`

	// QueueSize bounds the async I/O job queue.
	QueueSize int `koanf:"queue_size"`
	// PublishedCacheSize bounds the in-process cache of stored hashes.
	PublishedCacheSize int `koanf:"published_cache_size"`
	// WorkerCount sets the number of async I/O workers.
	WorkerCount int `koanf:"worker_count"`

	ReplayIntervalMS int     `koanf:"replay_interval_ms"`
	JitterThreshold  float64 `koanf:"jitter_threshold"`
	PreRollSeconds   float64 `koanf:"pre_roll_seconds"`

	// Default key bindings, used when no preference file overrides them.
	KeyPositive    string `koanf:"key_positive"`
	KeyNegative    string `koanf:"key_negative"`
	JudgeNameLimit int    `koanf:"judge_name_limit"`
	PrefsPath      string `koanf:"prefs_path"`

	// ExportDriver selects where exported documents land: dir or s3.
	ExportDriver string `koanf:"export_driver"`
	ExportDir    string `koanf:"export_dir"`
	S3Endpoint   string `koanf:"s3_endpoint"`
	S3Bucket     string `koanf:"s3_bucket"`
	S3Region     string `koanf:"s3_region"`
	S3AccessKey  string `koanf:"s3_access_key"`
	S3SecretKey  string `koanf:"s3_secret_key"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		AppName:            "44clicker",
		PublicBaseURL:      "http://localhost:9080",
		StoreDriver:        "sqlite",
		SQLitePath:         "clicker.db",
		QueueSize:          1024,
		PublishedCacheSize: 10000,
		WorkerCount:        runtime.NumCPU(),
		ReplayIntervalMS:   10,
		JitterThreshold:    0.05,
		PreRollSeconds:     5,
		KeyPositive:        "1",
		KeyNegative:        "0",
		JudgeNameLimit:     30,
		PrefsPath:          "clicker-prefs.json",
		ExportDriver:       "dir",
		ExportDir:          ".",
		S3Region:           "eu-central-1",
	}
}

// ReplayInterval returns the replay polling period.
func (c *Config) ReplayInterval() time.Duration {
	return time.Duration(c.ReplayIntervalMS) * time.Millisecond
}

// OriginPatterns splits WSOrigins.
func (c *Config) OriginPatterns() []string {
	var out []string
	for _, p := range strings.Split(c.WSOrigins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ReplayIntervalMS <= 0:
		return fmt.Errorf("%w: replay_interval_ms must be positive", ErrInvalidConfig)
	case c.JitterThreshold <= 0:
		return fmt.Errorf("%w: jitter_threshold must be positive", ErrInvalidConfig)
	case c.PreRollSeconds < 0:
		return fmt.Errorf("%w: pre_roll_seconds must not be negative", ErrInvalidConfig)
	case c.JudgeNameLimit <= 0:
		return fmt.Errorf("%w: judge_name_limit must be positive", ErrInvalidConfig)
	case utf8.RuneCountInString(c.KeyPositive) != 1 || utf8.RuneCountInString(c.KeyNegative) != 1 || c.KeyPositive == c.KeyNegative:
		return fmt.Errorf("%w: key bindings must be two distinct single characters", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	case "http":
		if c.ScoreServerURL == "" {
			return fmt.Errorf("%w: score_server_url is required for the http store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: unknown store_driver %q", ErrInvalidConfig, ErrUnknownDriver, c.StoreDriver)
	}

	switch c.ExportDriver {
	case "dir":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("%w: s3_bucket is required for the s3 export driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %w: unknown export_driver %q", ErrInvalidConfig, ErrUnknownDriver, c.ExportDriver)
	}
	return nil
}
