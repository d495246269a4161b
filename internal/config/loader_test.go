package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// setupTestHome creates a temporary home directory for testing.
// Returns the home dir path and a cleanup function.
func setupTestHome(t *testing.T) (string, func()) {
	t.Helper()

	tmpHome := t.TempDir()

	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)

	cleanup := func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		} else {
			os.Unsetenv("HOME")
		}
	}

	return tmpHome, cleanup
}

// TestLoadWithFile_ValidYAML tests loading configuration from a valid YAML file.
func TestLoadWithFile_ValidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	yamlContent := `store:
  db_path: /tmp/ctxmemd-test.db

observability:
  service_name: ctxmemd-test
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Store.DBPath != "/tmp/ctxmemd-test.db" {
		t.Errorf("Store.DBPath = %q, want /tmp/ctxmemd-test.db", cfg.Store.DBPath)
	}

	if cfg.Observability.ServiceName != "ctxmemd-test" {
		t.Errorf("Observability.ServiceName = %q, want %q", cfg.Observability.ServiceName, "ctxmemd-test")
	}
}

// TestLoadWithFile_EnvironmentOverride tests that environment variables override YAML.
func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	yamlContent := `store:
  db_path: /tmp/yaml-path.db

observability:
  service_name: yaml-service
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	os.Setenv("STORE_DB_PATH", "/tmp/env-path.db")
	os.Setenv("OBSERVABILITY_SERVICE_NAME", "env-service")
	defer os.Unsetenv("STORE_DB_PATH")
	defer os.Unsetenv("OBSERVABILITY_SERVICE_NAME")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Store.DBPath != "/tmp/env-path.db" {
		t.Errorf("Store.DBPath = %q, want /tmp/env-path.db (from env override)", cfg.Store.DBPath)
	}

	if cfg.Observability.ServiceName != "env-service" {
		t.Errorf("Observability.ServiceName = %q, want %q (from env override)", cfg.Observability.ServiceName, "env-service")
	}
}

// TestLoadWithFile_DefaultPath tests using default config path.
func TestLoadWithFile_DefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	configDir := filepath.Join(home, ".config", "ctxmemd")
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Skip("No config file at default path")
	}

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile(\"\") error = %v, want nil", err)
	}

	if cfg.Store.DBPath == "" {
		t.Error("Store.DBPath should not be empty")
	}
}

// TestLoadWithFile_MissingFile tests handling of missing config file.
func TestLoadWithFile_MissingFile(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := filepath.Join(home, ".config", "ctxmemd", "config.yaml")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should not error on missing file, got: %v", err)
	}

	if cfg == nil {
		t.Error("LoadWithFile() returned nil config for missing file")
	}
}

// TestLoadWithFile_InvalidYAML tests handling of malformed YAML.
func TestLoadWithFile_InvalidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	invalidYAML := `store:
  db_path: not-a-number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("LoadWithFile() should error on invalid YAML, got nil")
	}
}

// TestLoadWithFile_Validation tests configuration validation.
func TestLoadWithFile_Validation(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	yamlContent := `correlator:
  min_confidence: 5.0

observability:
  service_name: test
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("LoadWithFile() should error on out-of-range min_confidence, got nil")
	}
}

// TestLoadWithFile_PathTraversal tests path traversal attack prevention.
func TestLoadWithFile_PathTraversal(t *testing.T) {
	_, cleanup := setupTestHome(t)
	defer cleanup()

	_, err := LoadWithFile("../../../../etc/passwd")
	if err == nil {
		t.Error("Expected error for path traversal, got nil")
	}
	if !strings.Contains(err.Error(), "must be in ~/.config/ctxmemd/ or /etc/ctxmemd/") {
		t.Errorf("Expected path validation error, got: %v", err)
	}
}

// TestLoadWithFile_InsecurePermissions tests file permission enforcement.
func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	yamlContent := `store:
  db_path: /tmp/insecure.db
`

	// Write with insecure permissions (0644 - world readable)
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for insecure permissions, got nil")
	}
	if !strings.Contains(err.Error(), "insecure") && !strings.Contains(err.Error(), "permissions") {
		t.Errorf("Expected 'insecure permissions' error, got: %v", err)
	}
}

// TestLoadWithFile_SecurePermissions tests that 0600 permissions are accepted.
func TestLoadWithFile_SecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	yamlContent := `store:
  db_path: /tmp/secure.db
`

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() should succeed with 0600 permissions, got error: %v", err)
	}

	if cfg.Store.DBPath != "/tmp/secure.db" {
		t.Errorf("Store.DBPath = %q, want /tmp/secure.db", cfg.Store.DBPath)
	}
}

// TestLoadWithFile_FileTooLarge tests file size limit enforcement.
func TestLoadWithFile_FileTooLarge(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "ctxmemd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Create 2MB file (exceeds 1MB limit)
	largeContent := bytes.Repeat([]byte("# comment line\n"), 150000)
	if err := os.WriteFile(configPath, largeContent, 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Error("Expected error for large file, got nil")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected 'too large' error, got: %v", err)
	}
}
