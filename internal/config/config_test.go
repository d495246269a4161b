package config

import (
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Store.DBPath == "" {
		t.Error("Store.DBPath should not be empty")
	}
	if cfg.Store.BusyTimeout.Duration() != 5*time.Second {
		t.Errorf("Store.BusyTimeout = %v, want 5s", cfg.Store.BusyTimeout.Duration())
	}
	if cfg.Watcher.Debounce.Duration() != 500*time.Millisecond {
		t.Errorf("Watcher.Debounce = %v, want 500ms", cfg.Watcher.Debounce.Duration())
	}
	if cfg.Query.DefaultPageSize != 20 {
		t.Errorf("Query.DefaultPageSize = %d, want 20", cfg.Query.DefaultPageSize)
	}
	if cfg.Correlator.MinConfidence != 0.5 {
		t.Errorf("Correlator.MinConfidence = %v, want 0.5", cfg.Correlator.MinConfidence)
	}
	if cfg.Observability.ServiceName != "ctxmemd" {
		t.Errorf("Observability.ServiceName = %q, want ctxmemd", cfg.Observability.ServiceName)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate cleanly: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty db path",
			mutate:  func(c *Config) { c.Store.DBPath = "" },
			wantErr: true,
		},
		{
			name:    "non-positive busy timeout",
			mutate:  func(c *Config) { c.Store.BusyTimeout = Duration(0) },
			wantErr: true,
		},
		{
			name:    "empty transcript root",
			mutate:  func(c *Config) { c.Watcher.TranscriptRoot = "" },
			wantErr: true,
		},
		{
			name:    "non-positive debounce",
			mutate:  func(c *Config) { c.Watcher.Debounce = Duration(0) },
			wantErr: true,
		},
		{
			name:    "non-positive page size",
			mutate:  func(c *Config) { c.Query.DefaultPageSize = 0 },
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			mutate:  func(c *Config) { c.Correlator.MinConfidence = 1.5 },
			wantErr: true,
		},
		{
			name:    "empty service name",
			mutate:  func(c *Config) { c.Observability.ServiceName = "" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Observability.LogFormat = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
