// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Late entry policies for a submission that completes after a clear
const (
	LateAppend   = "append"
	LateSuppress = "suppress"
)

// Config for the DeskMate client
type Config struct {
	BaseURL       string        `yaml:"base_url"`
	QueryTimeout  time.Duration `yaml:"query_timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	ProbeInterval time.Duration `yaml:"probe_interval"` // 0 = probe at startup only
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
	LateEntries   string        `yaml:"late_entries"`
	LogLevel      string        `yaml:"log_level"`
	LogFile       string        `yaml:"log_file"`
	Stub          StubConfig    `yaml:"stub"`
}

// StubConfig for the local stub agent service
type StubConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	DBPath          string `yaml:"db_path"`
	MaxPayloadBytes int64  `yaml:"max_payload_bytes"`
	UploadDir       string `yaml:"upload_dir"`
	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
}

// Default returns the reference configuration
func Default() *Config {
	return &Config{
		BaseURL:       "http://127.0.0.1:8000",
		QueryTimeout:  30 * time.Second,
		HealthTimeout: 5 * time.Second,
		LateEntries:   LateAppend,
		LogLevel:      "info",
		Stub: StubConfig{
			ListenAddr:      "127.0.0.1:8000",
			DBPath:          "deskmate-stub.db",
			MaxPayloadBytes: 1 << 20,
			UploadDir:       "uploads",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies env
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Env overrides
	if v := os.Getenv("DESKMATE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DESKMATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DESKMATE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("DESKMATE_TLS_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.TLSSkipVerify = b
		}
	}
	if v := os.Getenv("DESKMATE_STUB_DB"); v != "" {
		cfg.Stub.DBPath = v
	}
	if v := os.Getenv("DESKMATE_STUB_UPLOADS"); v != "" {
		cfg.Stub.UploadDir = v
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields the client depends on
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be > 0")
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health_timeout must be > 0")
	}
	if c.ProbeInterval < 0 {
		return fmt.Errorf("probe_interval must be >= 0")
	}
	switch c.LateEntries {
	case LateAppend, LateSuppress:
	default:
		return fmt.Errorf("late_entries must be %q or %q, got %q", LateAppend, LateSuppress, c.LateEntries)
	}
	return nil
}
