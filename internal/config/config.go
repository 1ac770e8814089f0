package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StoreBackendSqlite   = "sqlite"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
	StoreBackendDisk     = "disk"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// e.g. Europe/Berlin; decides when a calendar day rolls over
	Timezone string `toml:"timezone"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// persistence
	StoreBackend      string `toml:"store_backend"`
	SqlitePath        string `toml:"sqlite_path"`
	DiskStoreRootPath string `toml:"disk_store_root_path"`
	MemoryStoreSizeMB int    `toml:"memory_store_size_mb"`
	RedisHost         string `toml:"redis_host"`
	RedisPort         string `toml:"redis_port"`
	PostgresHost      string `toml:"postgres_host"`
	PostgresPort      string `toml:"postgres_port"`
	PostgresDBName    string `toml:"postgres_db_name"`

	// notifications
	NotificationWebhookURL string        `toml:"notification_webhook_url"`
	ReminderCheckInterval  time.Duration `toml:"reminder_check_interval"`

	// rate limiting of destructive routes (import, reset)
	DestructiveRateLimitAllowedPerMin int `toml:"destructive_rate_limit_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config for env: %s", env)
	}
	cfg.Environment = strings.ToLower(env)
	cfg.setDefaults()
	return cfg, nil
}

// Load reads the TOML file at path and returns the config for the given env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}
	return t.Get(env)
}

func (c *Config) setDefaults() {
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBackendSqlite
	}
	if c.SqlitePath == "" {
		c.SqlitePath = "pushup-journey.db"
	}
	if c.MemoryStoreSizeMB <= 0 {
		c.MemoryStoreSizeMB = 10
	}
	if c.ReminderCheckInterval <= 0 {
		c.ReminderCheckInterval = time.Minute
	}
	if c.DestructiveRateLimitAllowedPerMin <= 0 {
		c.DestructiveRateLimitAllowedPerMin = 5
	}
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone [%s]: %w", c.Timezone, err)
	}
	return loc, nil
}
