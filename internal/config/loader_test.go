package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp dir and returns the sprintai config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "sprintai")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  http_port: 9191
store:
  driver: sqlite
  path: /tmp/sprintai-test.db
inference:
  model: llama-3.3-70b-versatile
  api_key: gsk_test
identity:
  session_ttl: 2h
redact:
  enabled: false
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.Path != "/tmp/sprintai-test.db" {
		t.Errorf("Store = %+v, want sqlite at /tmp/sprintai-test.db", cfg.Store)
	}
	if cfg.Inference.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Inference.Model = %q", cfg.Inference.Model)
	}
	if cfg.Inference.APIKey.Value() != "gsk_test" {
		t.Errorf("Inference.APIKey not loaded")
	}
	if cfg.Identity.SessionTTL.Duration() != 2*time.Hour {
		t.Errorf("Identity.SessionTTL = %s, want 2h", cfg.Identity.SessionTTL)
	}
	if cfg.Redact.Enabled {
		t.Error("Redact.Enabled = true, want false")
	}
	// untouched sections keep defaults
	if cfg.Inference.MaxTokens != 512 {
		t.Errorf("Inference.MaxTokens = %d, want 512", cfg.Inference.MaxTokens)
	}
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  http_port: 9191
inference:
  api_key: from-file
`, 0600)

	t.Setenv("SERVER_HTTP_PORT", "7777")
	t.Setenv("INFERENCE_API_KEY", "from-env")
	t.Setenv("IDENTITY_SESSION_TTL", "30m")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Inference.APIKey.Value() != "from-env" {
		t.Errorf("Inference.APIKey = %q, want from-env", cfg.Inference.APIKey.Value())
	}
	if cfg.Identity.SessionTTL.Duration() != 30*time.Minute {
		t.Errorf("Identity.SessionTTL = %s, want 30m", cfg.Identity.SessionTTL)
	}
}

func TestLoadWithFile_ExplicitZeroRetries(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `inference:
  max_retries: 0
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Inference.MaxRetries != 0 {
		t.Errorf("Inference.MaxRetries = %d, want 0", cfg.Inference.MaxRetries)
	}
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Inference.MaxRetries != 2 {
		t.Errorf("Inference.MaxRetries = %d, want 2", cfg.Inference.MaxRetries)
	}
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 9191\n", 0644)

	_, err := LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "insecure config file permissions") {
		t.Fatalf("LoadWithFile() error = %v, want permissions error", err)
	}
}

func TestLoadWithFile_RejectsOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)
	other := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadWithFile(other)
	if err == nil || !strings.Contains(err.Error(), "config file must be in") {
		t.Fatalf("LoadWithFile() error = %v, want path error", err)
	}
}

func TestLoadWithFile_RejectsLargeFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "# "+strings.Repeat("x", maxConfigFileSize)+"\n", 0600)

	_, err := LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("LoadWithFile() error = %v, want size error", err)
	}
}

func TestLoadWithFile_InvalidValueFailsValidation(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "store:\n  driver: mongo\n", 0600)

	_, err := LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "unknown store driver") {
		t.Fatalf("LoadWithFile() error = %v, want validation error", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SERVER_HTTP_PORT":     "server.http_port",
		"IDENTITY_SESSION_TTL": "identity.session_ttl",
		"HOME":                 "home",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/data/x.db")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "data", "x.db") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got, _ := ExpandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("ExpandHome(abs) = %q", got)
	}
}
