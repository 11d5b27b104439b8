package config

import (
	"time"

	redisclient "github.com/vietddude/stepbridge/internal/infra/redis"
	"github.com/vietddude/stepbridge/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Backend   BackendConfig      `yaml:"backend"`
	Retry     RetryConfig        `yaml:"retry"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	AutoClaim AutoClaimConfig    `yaml:"auto_claim"`
	Recovery  RecoveryConfig     `yaml:"recovery"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BackendConfig holds settings for the StepCraft backend.
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	DNSTTL          time.Duration `yaml:"dns_ttl"`
	PreferIPv6      bool          `yaml:"prefer_ipv6"` // IPv4 first unless set
	Timezone        string        `yaml:"timezone"`    // IANA zone the server counts days in, UTC if empty
}

// RetryConfig controls retries of idempotent backend calls.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// SchedulerConfig sizes the background pool and the main-loop queue.
type SchedulerConfig struct {
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queue_size"`
	PendingDelay time.Duration `yaml:"pending_delay"`
}

// AutoClaimConfig controls claims triggered by player joins.
type AutoClaimConfig struct {
	Enabled bool          `yaml:"enabled"`
	Delay   time.Duration `yaml:"delay"`
}

// RecoveryConfig controls the commit-only retry worker.
type RecoveryConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxRetries int           `yaml:"max_retries"`
	Retention  time.Duration `yaml:"retention"` // settled entries are pruned after this
}
