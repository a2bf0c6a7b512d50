package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoflightlog/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
redis:
  address: "${AFL_TEST_REDIS_ADDR}"
sync:
  enabled: true
  tick_interval: "30s"
api:
  enabled: true
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        extra: "e1"
        name: "pwa"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("AFL_TEST_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Redis.Address != "localhost:6379" {
		t.Errorf("expected expanded redis address, got %s", cfg.Redis.Address)
	}
	if cfg.Sync.TickEvery() != 30*time.Second {
		t.Errorf("expected tick interval 30s, got %s", cfg.Sync.TickEvery())
	}
	if !cfg.API.HTTP.Enabled {
		t.Errorf("expected http enabled when api enabled")
	}
	if len(cfg.API.Auth.APIKeys) != 1 || cfg.API.Auth.APIKeys[0].Name != "pwa" {
		t.Errorf("expected 1 api key named pwa")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Database: DatabaseConfig{Path: "path"}},
			wantErr: false,
		},
		{
			name:    "offline store needs no database",
			cfg:     Config{Sync: SyncConfig{OfflineStore: true}},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "bad tick interval",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Sync:     SyncConfig{TickInterval: "soon"},
			},
			wantErr: true,
		},
		{
			name: "bad lock ttl",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Sync:     SyncConfig{LockTTL: "1 minute"},
			},
			wantErr: true,
		},
		{
			name: "negative jitter",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Sync:     SyncConfig{MaxJitterMinutes: -1},
			},
			wantErr: true,
		},
		{
			name: "bad backup schedule",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Backup:   BackupConfig{Enabled: true, Schedule: "daily"},
			},
			wantErr: true,
		},
		{
			name: "duplicate api key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API: APIConfig{Auth: APIAuthConfig{APIKeys: []APIClientKey{
					{Key: "a", Name: "one"},
					{Key: "a", Name: "two"},
				}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Sync.TickEvery() != models.DefaultTickIntervalSeconds*time.Second {
		t.Errorf("expected default tick interval, got %s", cfg.Sync.TickEvery())
	}
	if cfg.Sync.LockTTLDuration() != time.Minute {
		t.Errorf("expected default lock ttl 1m, got %s", cfg.Sync.LockTTLDuration())
	}
	if cfg.Sync.LockKey != models.DefaultLockKey {
		t.Errorf("expected default lock key, got %s", cfg.Sync.LockKey)
	}
	if cfg.Sync.DefaultIntervalMinutes != models.DefaultSyncIntervalMinutes {
		t.Errorf("expected default interval %d, got %d", models.DefaultSyncIntervalMinutes, cfg.Sync.DefaultIntervalMinutes)
	}
	if cfg.Sync.MaxJitterMinutes != models.MaxJitterMinutes {
		t.Errorf("expected default jitter %d, got %d", models.MaxJitterMinutes, cfg.Sync.MaxJitterMinutes)
	}
	if cfg.Backup.StoragePath != "backups" || cfg.Backup.Interval() != 24*time.Hour {
		t.Errorf("unexpected backup defaults: %+v", cfg.Backup)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
}

func TestValidateAPIKeys(t *testing.T) {
	tests := []struct {
		name    string
		keys    []APIClientKey
		wantErr bool
	}{
		{name: "Valid keys", keys: []APIClientKey{{Key: "a"}, {Key: "b"}}, wantErr: false},
		{name: "Duplicate", keys: []APIClientKey{{Key: "a"}, {Key: "a"}}, wantErr: true},
		{name: "Empty", keys: []APIClientKey{{Key: " ", Name: "blank"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKeys(tt.keys)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKeys() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
