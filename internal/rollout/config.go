package rollout

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config controls the percentage rollout of the new variant.
// The zero value is a disabled rollout.
type Config struct {
	Enabled     bool     `yaml:"enabled" json:"enabled" envconfig:"ENABLED"`
	Percentage  int      `yaml:"percentage" json:"percentage" envconfig:"PERCENTAGE"`
	ForcedUsers []string `yaml:"forced_users" json:"forced_users" envconfig:"FORCED_USERS"`
}

// Normalize clamps the percentage into 0..100 and canonicalizes forced identities.
func (c Config) Normalize() Config {
	if c.Percentage < 0 {
		c.Percentage = 0
	}
	if c.Percentage > 100 {
		c.Percentage = 100
	}

	users := make([]string, 0, len(c.ForcedUsers))
	for _, u := range c.ForcedUsers {
		if u = normalizeIdentity(u); u != "" {
			users = append(users, u)
		}
	}
	c.ForcedUsers = users
	return c
}

// IsForced reports whether identity is on the forced list.
func (c Config) IsForced(identity string) bool {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return false
	}
	for _, u := range c.ForcedUsers {
		if normalizeIdentity(u) == identity {
			return true
		}
	}
	return false
}

func normalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ApplyEnv overlays ROLLOUT_* environment variables onto c. Unset variables leave
// the corresponding field untouched.
func (c Config) ApplyEnv() (Config, error) {
	if err := envconfig.Process("rollout", &c); err != nil {
		return c, err
	}
	return c.Normalize(), nil
}

// LoadFile reads a standalone rollout YAML file and applies the environment overlay.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.ApplyEnv()
}

// Watch reloads the rollout file on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop. A change that fails
// to load is logged and the previous config stays in effect.
func Watch(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(Config)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("stat rollout config")
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				cfg, err := LoadFile(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("reload rollout config, keeping previous")
					continue
				}
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
