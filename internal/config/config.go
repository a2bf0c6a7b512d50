package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"autoflightlog/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Sync       SyncConfig       `yaml:"sync"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Backup     BackupConfig     `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxFiles      int    `yaml:"max_files"`
}

// Interval parses Schedule as a duration, defaulting to daily.
func (b BackupConfig) Interval() time.Duration {
	if d, err := time.ParseDuration(b.Schedule); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

type SyncConfig struct {
	Enabled                bool   `yaml:"enabled"`
	TickInterval           string `yaml:"tick_interval"`
	LockTTL                string `yaml:"lock_ttl"`
	LockKey                string `yaml:"lock_key"`
	DefaultIntervalMinutes int    `yaml:"default_interval_minutes"`
	MaxJitterMinutes       int    `yaml:"max_jitter_minutes"`
	// OfflineStore keeps all records in memory instead of SQLite.
	OfflineStore bool `yaml:"offline_store"`
}

// TickEvery parses TickInterval, falling back to the default period.
func (s SyncConfig) TickEvery() time.Duration {
	if d, err := time.ParseDuration(s.TickInterval); err == nil && d > 0 {
		return d
	}
	return models.DefaultTickIntervalSeconds * time.Second
}

// LockTTLDuration parses LockTTL, falling back to the default TTL.
func (s SyncConfig) LockTTLDuration() time.Duration {
	if d, err := time.ParseDuration(s.LockTTL); err == nil && d > 0 {
		return d
	}
	return models.DefaultLockTTLSeconds * time.Second
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ExportConfig holds the column selection used when a request names none.
// When set it replaces the columns of the selected view.
type ExportConfig struct {
	Fields []string `yaml:"fields"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML after expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if !c.Sync.OfflineStore && c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Sync.TickInterval != "" {
		if _, err := time.ParseDuration(c.Sync.TickInterval); err != nil {
			return fmt.Errorf("invalid sync.tick_interval %q: %w", c.Sync.TickInterval, err)
		}
	}
	if c.Sync.LockTTL != "" {
		if _, err := time.ParseDuration(c.Sync.LockTTL); err != nil {
			return fmt.Errorf("invalid sync.lock_ttl %q: %w", c.Sync.LockTTL, err)
		}
	}
	if c.Backup.Enabled && c.Backup.Schedule != "" {
		if _, err := time.ParseDuration(c.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid backup.schedule %q: %w", c.Backup.Schedule, err)
		}
	}
	if c.Sync.MaxJitterMinutes < 0 {
		return errors.New("sync.max_jitter_minutes must not be negative")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client: %s", k.Name)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "autoflightlog"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	// Sync defaults
	if c.Sync.TickInterval == "" {
		c.Sync.TickInterval = fmt.Sprintf("%ds", models.DefaultTickIntervalSeconds)
	}
	if c.Sync.LockTTL == "" {
		c.Sync.LockTTL = fmt.Sprintf("%ds", models.DefaultLockTTLSeconds)
	}
	if c.Sync.LockKey == "" {
		c.Sync.LockKey = models.DefaultLockKey
	}
	if c.Sync.DefaultIntervalMinutes <= 0 {
		c.Sync.DefaultIntervalMinutes = models.DefaultSyncIntervalMinutes
	}
	if c.Sync.MaxJitterMinutes == 0 {
		c.Sync.MaxJitterMinutes = models.MaxJitterMinutes
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
