package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		LogLevel      string `toml:"log_level"`
		LogFormat     string `toml:"log_format"` // console | json
		JobTimeoutSec int    `toml:"job_timeout_sec"`
	} `toml:"app"`

	Pricing struct {
		BaseURL    string  `toml:"base_url"`
		APIKey     string  `toml:"api_key"`
		PageSize   int     `toml:"page_size"`
		TimeoutSec int     `toml:"timeout_sec"`
		RatePerSec float64 `toml:"rate_per_sec"`
	} `toml:"pricing"`

	Crawler struct {
		MinPrice    float64 `toml:"min_price"`
		MaxPages    int     `toml:"max_pages"`
		HardPageCap int     `toml:"hard_page_cap"`
	} `toml:"crawler"`

	Refresh struct {
		IntervalSec int `toml:"interval_sec"`
		BufferSec   int `toml:"buffer_sec"`
		LiveBatch   int `toml:"live_batch"`
		UpdateBatch int `toml:"update_batch"` // negative disables the price updater
	} `toml:"refresh"`

	Compaction struct {
		ThresholdMin int `toml:"threshold_min"`
		PageSize     int `toml:"page_size"`
		StepDelayMs  int `toml:"step_delay_ms"`
		MaxSteps     int `toml:"max_steps"`
	} `toml:"compaction"`

	Snapshot struct {
		BatchSize     int `toml:"batch_size"`
		MaxCards      int `toml:"max_cards"`
		MaxProducts   int `toml:"max_products"`
		RetentionDays int `toml:"retention_days"`
	} `toml:"snapshot"`

	History struct {
		RetentionDays int `toml:"retention_days"`
	} `toml:"history"`

	Maintenance struct {
		Message        string `toml:"message"`
		TimeoutSec     int    `toml:"timeout_sec"`      // budget of maintenance-window and history-cleanup
		StepTimeoutSec int    `toml:"step_timeout_sec"` // budget of each step inside the window
	} `toml:"maintenance"`

	Movers struct {
		TopK   int `toml:"top_k"`
		TTLSec int `toml:"ttl_sec"`
	} `toml:"movers"`

	Storage struct {
		Driver string `toml:"driver"`

		SQLite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			DSN string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled   bool   `toml:"enabled"`
			Addr      string `toml:"addr"`
			Password  string `toml:"password"`
			DB        int    `toml:"db"`
			Prefix    string `toml:"prefix"`
			JobStream string `toml:"job_stream"` // defaults to prefix + ":jobs"
		} `toml:"redis"`
	} `toml:"storage"`

	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`
}

// Load reads an optional .env, decodes the TOML file at path and lets the
// environment override secrets.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for callers
// that run without a file.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRICING_API_KEY"); v != "" {
		cfg.Pricing.APIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
		cfg.Storage.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "console"
	}
	if cfg.App.JobTimeoutSec <= 0 {
		cfg.App.JobTimeoutSec = 55
	}

	if cfg.Pricing.BaseURL == "" {
		cfg.Pricing.BaseURL = "https://api.pokemontcg.io/v2"
	}
	if cfg.Pricing.PageSize <= 0 || cfg.Pricing.PageSize > 250 {
		cfg.Pricing.PageSize = 250
	}
	if cfg.Pricing.TimeoutSec <= 0 {
		cfg.Pricing.TimeoutSec = 20
	}
	if cfg.Pricing.RatePerSec <= 0 {
		cfg.Pricing.RatePerSec = 2
	}

	if cfg.Crawler.MaxPages <= 0 {
		cfg.Crawler.MaxPages = 5
	}
	if cfg.Crawler.HardPageCap <= 0 {
		cfg.Crawler.HardPageCap = 100
	}

	if cfg.Refresh.IntervalSec <= 0 {
		cfg.Refresh.IntervalSec = 120
	}
	if cfg.Refresh.BufferSec <= 0 {
		cfg.Refresh.BufferSec = 10
	}
	if cfg.Refresh.LiveBatch <= 0 {
		cfg.Refresh.LiveBatch = 30
	}
	if cfg.Refresh.UpdateBatch < 0 {
		cfg.Refresh.UpdateBatch = 0
	} else if cfg.Refresh.UpdateBatch == 0 {
		cfg.Refresh.UpdateBatch = 10
	}

	if cfg.Compaction.ThresholdMin <= 0 {
		cfg.Compaction.ThresholdMin = 10
	}
	if cfg.Compaction.PageSize <= 0 {
		cfg.Compaction.PageSize = 50
	}
	if cfg.Compaction.StepDelayMs <= 0 {
		cfg.Compaction.StepDelayMs = 100
	}
	if cfg.Compaction.MaxSteps <= 0 {
		cfg.Compaction.MaxSteps = 10000
	}

	if cfg.Snapshot.BatchSize <= 0 {
		cfg.Snapshot.BatchSize = 100
	}
	if cfg.Snapshot.MaxCards <= 0 {
		cfg.Snapshot.MaxCards = 500
	}
	if cfg.Snapshot.MaxProducts <= 0 {
		cfg.Snapshot.MaxProducts = 100
	}
	if cfg.Snapshot.RetentionDays <= 0 {
		cfg.Snapshot.RetentionDays = 365
	}
	if cfg.History.RetentionDays <= 0 {
		cfg.History.RetentionDays = 90
	}

	if cfg.Maintenance.Message == "" {
		cfg.Maintenance.Message = "Scheduled maintenance in progress. Prices will be back shortly."
	}
	if cfg.Maintenance.TimeoutSec <= 0 {
		cfg.Maintenance.TimeoutSec = 840
	}
	if cfg.Maintenance.StepTimeoutSec <= 0 {
		cfg.Maintenance.StepTimeoutSec = 270
	}
	if cfg.Movers.TopK <= 0 {
		cfg.Movers.TopK = 10
	}
	if cfg.Movers.TTLSec <= 0 {
		cfg.Movers.TTLSec = 600
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/pricewatch.db"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "pricewatch"
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn empty but driver is postgres")
		}
	default:
		return fmt.Errorf("storage.driver %q not supported", cfg.Storage.Driver)
	}

	if cfg.Crawler.MinPrice < 0 {
		return errors.New("crawler.min_price must be >= 0")
	}
	if cfg.Refresh.BufferSec >= cfg.Refresh.IntervalSec {
		return errors.New("refresh.buffer_sec must be smaller than refresh.interval_sec")
	}
	if cfg.Maintenance.StepTimeoutSec > cfg.Maintenance.TimeoutSec {
		return errors.New("maintenance.step_timeout_sec must not exceed maintenance.timeout_sec")
	}
	if cfg.App.LogFormat != "console" && cfg.App.LogFormat != "json" {
		return fmt.Errorf("app.log_format %q must be console or json", cfg.App.LogFormat)
	}
	return nil
}

// ========== durations ==========

func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.App.JobTimeoutSec) * time.Second
}

func (c *Config) PricingTimeout() time.Duration {
	return time.Duration(c.Pricing.TimeoutSec) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

func (c *Config) RefreshBuffer() time.Duration {
	return time.Duration(c.Refresh.BufferSec) * time.Second
}

func (c *Config) CompactionThreshold() time.Duration {
	return time.Duration(c.Compaction.ThresholdMin) * time.Minute
}

func (c *Config) CompactionStepDelay() time.Duration {
	return time.Duration(c.Compaction.StepDelayMs) * time.Millisecond
}

func (c *Config) MaintenanceTimeout() time.Duration {
	return time.Duration(c.Maintenance.TimeoutSec) * time.Second
}

func (c *Config) MaintenanceStepTimeout() time.Duration {
	return time.Duration(c.Maintenance.StepTimeoutSec) * time.Second
}

func (c *Config) MoversTTL() time.Duration {
	return time.Duration(c.Movers.TTLSec) * time.Second
}
