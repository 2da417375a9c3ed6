// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Create temp config file
	dir := t.TempDir()
	configPath := filepath.Join(dir, "deskmate.yaml")
	content := []byte(`
base_url: "https://deskmate.internal:8443/"
query_timeout: 45s
probe_interval: 1m
tls_skip_verify: true
late_entries: suppress
stub:
  listen_addr: ":9000"
  db_path: /var/lib/deskmate/jobs.db
`)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "https://deskmate.internal:8443" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.QueryTimeout != 45*time.Second {
		t.Errorf("QueryTimeout = %v, want 45s", cfg.QueryTimeout)
	}
	if cfg.ProbeInterval.String() != "1m0s" {
		t.Errorf("ProbeInterval = %v, want 1m0s", cfg.ProbeInterval)
	}
	if !cfg.TLSSkipVerify {
		t.Error("TLSSkipVerify = false, want true")
	}
	if cfg.LateEntries != LateSuppress {
		t.Errorf("LateEntries = %q, want %q", cfg.LateEntries, LateSuppress)
	}
	// Unset fields keep their defaults
	if cfg.HealthTimeout != 5*time.Second {
		t.Errorf("HealthTimeout = %v, want default 5s", cfg.HealthTimeout)
	}
	if cfg.Stub.ListenAddr != ":9000" || cfg.Stub.MaxPayloadBytes != 1<<20 {
		t.Errorf("Stub = %+v", cfg.Stub)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.QueryTimeout != 30*time.Second {
		t.Errorf("QueryTimeout = %v, want 30s", cfg.QueryTimeout)
	}
	if cfg.LateEntries != LateAppend {
		t.Errorf("LateEntries = %q, want %q", cfg.LateEntries, LateAppend)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DESKMATE_URL", "http://10.0.0.5:8000")
	t.Setenv("DESKMATE_LOG_LEVEL", "debug")
	t.Setenv("DESKMATE_TLS_SKIP_VERIFY", "yes-please")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("BaseURL = %q, want env override", cfg.BaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Unparseable bools are ignored
	if cfg.TLSSkipVerify {
		t.Error("TLSSkipVerify = true, want false")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad scheme", `base_url: "ftp://host"`},
		{"no host", `base_url: "http://"`},
		{"zero timeout", `query_timeout: 0s`},
		{"bad policy", `late_entries: drop`},
		{"negative interval", `probe_interval: -1s`},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "deskmate.yaml")
		if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load succeeded, want error", tt.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
