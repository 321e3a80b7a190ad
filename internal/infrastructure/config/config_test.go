package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PRICING_API_KEY", "POSTGRES_DSN", "REDIS_ADDR", "REDIS_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "[app]\nlog_level = \"debug\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.App.LogLevel)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Pricing.PageSize != 250 || cfg.Crawler.HardPageCap != 100 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.RefreshInterval() != 2*time.Minute || cfg.RefreshBuffer() != 10*time.Second {
		t.Errorf("refresh timing = %v / %v", cfg.RefreshInterval(), cfg.RefreshBuffer())
	}
	if cfg.CompactionThreshold() != 10*time.Minute {
		t.Errorf("compaction threshold = %v", cfg.CompactionThreshold())
	}
	if cfg.MaintenanceTimeout() != 14*time.Minute || cfg.MaintenanceStepTimeout() != 270*time.Second {
		t.Errorf("maintenance budgets = %v / %v", cfg.MaintenanceTimeout(), cfg.MaintenanceStepTimeout())
	}
	if cfg.Refresh.UpdateBatch != 10 {
		t.Errorf("update_batch = %d", cfg.Refresh.UpdateBatch)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICING_API_KEY", "secret")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeConfig(t, "[storage]\ndriver = \"Postgres\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pricing.APIKey != "secret" || cfg.Storage.Driver != DriverPostgres {
		t.Errorf("env not applied: key=%q driver=%q", cfg.Pricing.APIKey, cfg.Storage.Driver)
	}
	if !cfg.Storage.Redis.Enabled || cfg.Storage.Redis.Addr != "redis:6379" {
		t.Errorf("REDIS_ADDR must enable redis, got %+v", cfg.Storage.Redis)
	}
}

func TestLoadDisablesUpdater(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "[refresh]\nupdate_batch = -1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Refresh.UpdateBatch != 0 {
		t.Errorf("negative update_batch must disable the updater, got %d", cfg.Refresh.UpdateBatch)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"postgres without dsn", "[storage]\ndriver = \"postgres\"\n", "dsn"},
		{"unknown driver", "[storage]\ndriver = \"mongo\"\n", "not supported"},
		{"negative min price", "[crawler]\nmin_price = -1.0\n", "min_price"},
		{"buffer exceeds interval", "[refresh]\ninterval_sec = 10\nbuffer_sec = 10\n", "buffer_sec"},
		{"step budget exceeds window", "[maintenance]\ntimeout_sec = 60\nstep_timeout_sec = 120\n", "step_timeout_sec"},
		{"bad log format", "[app]\nlog_format = \"xml\"\n", "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
