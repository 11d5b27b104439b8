package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultBaseURL is the public StepCraft API.
const DefaultBaseURL = "https://api.stepcraft.org"

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	var cfg AppConfig
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults fills zero values with the reference settings.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	b := &cfg.Backend
	if b.BaseURL == "" {
		b.BaseURL = DefaultBaseURL
	}
	b.BaseURL = strings.TrimRight(b.BaseURL, "/")
	if b.ConnectTimeout == 0 {
		b.ConnectTimeout = 5 * time.Second
	}
	if b.ReadTimeout == 0 {
		b.ReadTimeout = 8 * time.Second
	}
	if b.WriteTimeout == 0 {
		b.WriteTimeout = 5 * time.Second
	}
	if b.CallTimeout == 0 {
		b.CallTimeout = 10 * time.Second
	}
	if b.MaxIdleConns == 0 {
		b.MaxIdleConns = 10
	}
	if b.MaxConnsPerHost == 0 {
		b.MaxConnsPerHost = 16
	}
	if b.DNSTTL == 0 {
		b.DNSTTL = 60 * time.Second
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 250 * time.Millisecond
	}
	if cfg.Retry.BackoffMultiple == 0 {
		cfg.Retry.BackoffMultiple = 2
	}

	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 256
	}
	if cfg.Scheduler.PendingDelay == 0 {
		cfg.Scheduler.PendingDelay = time.Second
	}

	if cfg.AutoClaim.Delay == 0 {
		cfg.AutoClaim.Delay = 5 * time.Second
	}

	if cfg.Recovery.Interval == 0 {
		cfg.Recovery.Interval = time.Minute
	}
	if cfg.Recovery.MaxRetries == 0 {
		cfg.Recovery.MaxRetries = 10
	}
	if cfg.Recovery.Retention == 0 {
		cfg.Recovery.Retention = 7 * 24 * time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate rejects settings the bridge cannot run with.
func (c *AppConfig) Validate() error {
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be >= 1, got %d", c.Scheduler.Workers)
	}
	return nil
}
