package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultServer  = "http://localhost:3000"
	defaultTimeout = 10 * time.Second
)

// Config is the on-disk state of the CLI.
type Config struct {
	Server       string `toml:"server"`
	UserID       string `toml:"user_id"`
	Email        string `toml:"email,omitempty"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	Timeout      string `toml:"timeout"`
}

// defaultConfigPath returns ~/.config/taskctl/config.toml or the platform
// equivalent.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "taskctl.toml"
	}
	return filepath.Join(dir, "taskctl", "config.toml")
}

// loadConfig reads path. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Server: defaultServer, Timeout: defaultTimeout.String()}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	return cfg, nil
}

// saveConfig writes cfg to path, creating the directory. The file holds
// tokens so it is private to the user.
func saveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// timeout parses the configured request timeout.
func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
