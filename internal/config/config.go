// Package config provides configuration loading for sprintai.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the complete sprintai configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	NATS      NATSConfig      `koanf:"nats"`
	Inference InferenceConfig `koanf:"inference"`
	Identity  IdentityConfig  `koanf:"identity"`
	Redact    RedactConfig    `koanf:"redact"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string `koanf:"driver"` // memory | sqlite
	Path   string `koanf:"path"`   // sqlite database file
}

// NATSConfig holds live update broker configuration.
type NATSConfig struct {
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"` // run an in-process nats-server
	Disabled bool   `koanf:"disabled"`
}

// InferenceConfig holds the hosted language model client configuration.
type InferenceConfig struct {
	BaseURL       string   `koanf:"base_url"`
	Model         string   `koanf:"model"`
	APIKey        Secret   `koanf:"api_key"`
	Temperature   float64  `koanf:"temperature"`
	MaxTokens     int      `koanf:"max_tokens"`
	Timeout       Duration `koanf:"timeout"`
	RatePerMinute int      `koanf:"rate_per_minute"`
	Burst         int      `koanf:"burst"`
	MaxRetries    int      `koanf:"max_retries"`
	SystemPrompt  string   `koanf:"system_prompt"`
}

// IdentityConfig holds session and credential settings.
type IdentityConfig struct {
	SessionTTL    Duration `koanf:"session_ttl"`
	SweepInterval Duration `koanf:"sweep_interval"`
	BcryptCost    int      `koanf:"bcrypt_cost"`
}

// RedactConfig controls secret scrubbing of chat text.
type RedactConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// LoggingConfig holds the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"` // grpc | http/protobuf
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns a configuration populated with defaults only. Fields
// where zero is a meaningful setting are defaulted here rather than in
// applyDefaults, so an explicit zero in the file or env holds.
func Default() *Config {
	cfg := &Config{
		Inference: InferenceConfig{MaxRetries: 2},
		Redact:    RedactConfig{Enabled: true},
		Telemetry: TelemetryConfig{Insecure: true, SampleRate: 1.0},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
	}
	if cfg.Store.Driver == StoreSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/sprintai/sprintai.db"
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}

	if cfg.Inference.BaseURL == "" {
		cfg.Inference.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = "llama-3.1-8b-instant"
	}
	if cfg.Inference.Temperature == 0 {
		cfg.Inference.Temperature = 0.7
	}
	if cfg.Inference.MaxTokens == 0 {
		cfg.Inference.MaxTokens = 512
	}
	if cfg.Inference.Timeout == 0 {
		cfg.Inference.Timeout = Duration(30 * time.Second)
	}
	if cfg.Inference.RatePerMinute == 0 {
		cfg.Inference.RatePerMinute = 30
	}
	if cfg.Inference.Burst == 0 {
		cfg.Inference.Burst = 5
	}
	if cfg.Inference.SystemPrompt == "" {
		cfg.Inference.SystemPrompt = "You are a helpful decision-making AI assistant."
	}

	if cfg.Identity.SessionTTL == 0 {
		cfg.Identity.SessionTTL = Duration(24 * time.Hour)
	}
	if cfg.Identity.SweepInterval == 0 {
		cfg.Identity.SweepInterval = Duration(time.Minute)
	}
	if cfg.Identity.BcryptCost == 0 {
		cfg.Identity.BcryptCost = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sprintai"
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q (must be memory or sqlite)", c.Store.Driver)
	}

	if !c.NATS.Disabled && !c.NATS.Embedded && c.NATS.URL == "" {
		return errors.New("nats.url is required unless nats is embedded or disabled")
	}

	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		return fmt.Errorf("inference.temperature must be between 0 and 2, got %g", c.Inference.Temperature)
	}
	if c.Inference.MaxTokens < 1 {
		return fmt.Errorf("inference.max_tokens must be positive, got %d", c.Inference.MaxTokens)
	}
	if c.Inference.RatePerMinute < 1 {
		return fmt.Errorf("inference.rate_per_minute must be positive, got %d", c.Inference.RatePerMinute)
	}
	if c.Inference.Burst < 1 {
		return fmt.Errorf("inference.burst must be positive, got %d", c.Inference.Burst)
	}
	if c.Inference.MaxRetries < 0 {
		return fmt.Errorf("inference.max_retries must be >= 0, got %d", c.Inference.MaxRetries)
	}

	if c.Identity.SessionTTL.Duration() < time.Minute {
		return fmt.Errorf("identity.session_ttl must be at least 1m, got %s", c.Identity.SessionTTL.Duration())
	}
	if c.Identity.SweepInterval <= 0 {
		return errors.New("identity.sweep_interval must be positive")
	}
	// bcrypt.MinCost..bcrypt.MaxCost
	if c.Identity.BcryptCost < 4 || c.Identity.BcryptCost > 31 {
		return fmt.Errorf("identity.bcrypt_cost must be 4-31, got %d", c.Identity.BcryptCost)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
		}
	}

	return nil
}
