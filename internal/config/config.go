package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"perfprime/internal/rollout"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BackupConfig controls periodic sqlite backups.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the time between backups.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

// Config is the server configuration read from YAML.
type Config struct {
	Server struct {
		Address  string `yaml:"address"`
		Timezone string `yaml:"timezone"`
	} `yaml:"server"`

	BookingStore struct {
		// Driver is one of rest, postgres, sqlite.
		Driver          string  `yaml:"driver"`
		DSN             string  `yaml:"dsn"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
	} `yaml:"booking_store"`

	Supabase struct {
		URL     string `yaml:"url"`
		AnonKey string `yaml:"anon_key"`
	} `yaml:"supabase"`

	Session struct {
		// Backend is one of memory, redis, sqlite.
		Backend    string `yaml:"backend"`
		TTLHours   int    `yaml:"ttl_hours"`
		CookieName string `yaml:"cookie_name"`
	} `yaml:"session"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Rollout rollout.Config `yaml:"rollout"`

	// RolloutFile, when set, is watched and overrides the inline rollout block.
	RolloutFile         string `yaml:"rollout_file"`
	RolloutWatchSeconds int    `yaml:"rollout_watch_seconds"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// LoadEnv loads variables from a .env file when present. Existing variables win.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the YAML config at path, expands ${ENV} placeholders and applies defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Rollout, err = cfg.Rollout.ApplyEnv()
	if err != nil {
		return nil, fmt.Errorf("rollout env: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = "Europe/Rome"
	}
	if c.BookingStore.Driver == "" {
		c.BookingStore.Driver = "rest"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "pp_session"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/perfprime.db"
	}
	if c.BookingStore.Driver == "sqlite" && c.BookingStore.DSN == "" {
		c.BookingStore.DSN = c.Database.Path
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
}

func (c *Config) validate() error {
	switch c.BookingStore.Driver {
	case "rest":
		if c.Supabase.URL == "" {
			return fmt.Errorf("supabase.url is required for the rest booking store")
		}
	case "postgres":
		if c.BookingStore.DSN == "" {
			return fmt.Errorf("booking_store.dsn is required for the postgres booking store")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown booking_store.driver %q", c.BookingStore.Driver)
	}

	switch c.Session.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for the redis session backend")
	}

	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	return nil
}

// Location returns the time zone used to compute today's date.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SessionTTL defaults to one day.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// BookingCacheTTL is zero when booking caching is off.
func (c *Config) BookingCacheTTL() time.Duration {
	if c.BookingStore.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.BookingStore.CacheTTLSeconds) * time.Second
}

// RolloutWatchInterval defaults to 30 seconds.
func (c *Config) RolloutWatchInterval() time.Duration {
	if c.RolloutWatchSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RolloutWatchSeconds) * time.Second
}
