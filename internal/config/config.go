// Package config provides configuration loading for the daemon and its
// maintenance CLI.
//
// Configuration starts from hardcoded defaults, which a YAML file overrides,
// which environment variables in turn override.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete daemon configuration.
type Config struct {
	Store         StoreConfig
	Watcher       WatcherConfig
	Query         QueryConfig
	Correlator    CorrelatorConfig
	Observability ObservabilityConfig
}

// StoreConfig holds SQLite store configuration.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string `koanf:"db_path"`

	// BusyTimeout bounds how long a writer waits on SQLITE_BUSY before failing.
	BusyTimeout Duration `koanf:"busy_timeout"`

	// CacheSizeMB sets SQLite's page cache size.
	CacheSizeMB int `koanf:"cache_size_mb"`

	// MmapSizeMB sets SQLite's memory-mapped I/O window.
	MmapSizeMB int `koanf:"mmap_size_mb"`
}

// WatcherConfig holds directory watcher configuration.
type WatcherConfig struct {
	// TranscriptRoot is the directory tree watched for *.jsonl transcript files.
	TranscriptRoot string `koanf:"transcript_root"`

	// Debounce is how long the watcher waits after the last write event to a
	// file before enqueuing it for indexing.
	Debounce Duration `koanf:"debounce"`

	// QueueSize bounds the watcher's internal event queue.
	QueueSize int `koanf:"queue_size"`
}

// QueryConfig holds query engine defaults.
type QueryConfig struct {
	DefaultPageSize     int `koanf:"default_page_size"`
	DefaultMaxTokens    int `koanf:"default_max_tokens"`
	SnippetWindowTokens int `koanf:"snippet_window_tokens"`
}

// CorrelatorConfig holds conversation-git correlator configuration.
type CorrelatorConfig struct {
	// Window bounds how far back from a commit the correlator scans for
	// the conversation that produced it.
	Window Duration `koanf:"window"`

	// MinConfidence is the minimum confidence score a correlation must reach
	// to be persisted.
	MinConfidence float64 `koanf:"min_confidence"`

	// CacheTTL bounds how long a correlation result stays in the lazy-evicting
	// in-memory cache before recomputation.
	CacheTTL Duration `koanf:"cache_ttl"`
}

// ObservabilityConfig holds logging/tracing service identity configuration.
type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	LogLevel    string `koanf:"log_level"`
	LogFormat   string `koanf:"log_format"`
}

// NewDefaultConfig returns config with sensible local-daemon defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DBPath:      "~/.config/ctxmemd/ctxmemd.db",
			BusyTimeout: Duration(5 * time.Second),
			CacheSizeMB: 64,
			MmapSizeMB:  256,
		},
		Watcher: WatcherConfig{
			TranscriptRoot: "~/.claude/projects",
			Debounce:       Duration(500 * time.Millisecond),
			QueueSize:      1024,
		},
		Query: QueryConfig{
			DefaultPageSize:     20,
			DefaultMaxTokens:    4000,
			SnippetWindowTokens: 60,
		},
		Correlator: CorrelatorConfig{
			Window:        Duration(30 * time.Minute),
			MinConfidence: 0.5,
			CacheTTL:      Duration(60 * time.Second),
		},
		Observability: ObservabilityConfig{
			ServiceName: "ctxmemd",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Store.DBPath == "" {
		return errors.New("store.db_path must not be empty")
	}
	if c.Store.BusyTimeout.Duration() <= 0 {
		return errors.New("store.busy_timeout must be positive")
	}
	if c.Store.CacheSizeMB <= 0 {
		return fmt.Errorf("store.cache_size_mb must be positive, got %d", c.Store.CacheSizeMB)
	}
	if c.Store.MmapSizeMB < 0 {
		return fmt.Errorf("store.mmap_size_mb must be non-negative, got %d", c.Store.MmapSizeMB)
	}

	if c.Watcher.TranscriptRoot == "" {
		return errors.New("watcher.transcript_root must not be empty")
	}
	if c.Watcher.Debounce.Duration() <= 0 {
		return errors.New("watcher.debounce must be positive")
	}
	if c.Watcher.QueueSize <= 0 {
		return fmt.Errorf("watcher.queue_size must be positive, got %d", c.Watcher.QueueSize)
	}

	if c.Query.DefaultPageSize <= 0 {
		return fmt.Errorf("query.default_page_size must be positive, got %d", c.Query.DefaultPageSize)
	}
	if c.Query.DefaultMaxTokens <= 0 {
		return fmt.Errorf("query.default_max_tokens must be positive, got %d", c.Query.DefaultMaxTokens)
	}
	if c.Query.SnippetWindowTokens <= 0 {
		return fmt.Errorf("query.snippet_window_tokens must be positive, got %d", c.Query.SnippetWindowTokens)
	}

	if c.Correlator.Window.Duration() <= 0 {
		return errors.New("correlator.window must be positive")
	}
	if c.Correlator.MinConfidence < 0 || c.Correlator.MinConfidence > 1 {
		return fmt.Errorf("correlator.min_confidence must be in [0,1], got %f", c.Correlator.MinConfidence)
	}
	if c.Correlator.CacheTTL.Duration() <= 0 {
		return errors.New("correlator.cache_ttl must be positive")
	}

	if c.Observability.ServiceName == "" {
		return errors.New("observability.service_name must not be empty")
	}
	switch c.Observability.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("observability.log_format must be 'json' or 'console', got %q", c.Observability.LogFormat)
	}

	return nil
}
