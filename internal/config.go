package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServer              = "http://127.0.0.1:8000"
	DefaultPushPath            = "/ws"
	DefaultReconnectDelay      = 5 * time.Second
	DefaultIntegrationCooldown = 3 * time.Second
)

// Config holds client settings
type Config struct {
	Server              string        `yaml:"server"`
	PushPath            string        `yaml:"push_path"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	IntegrationCooldown time.Duration `yaml:"integration_cooldown"`
	RequestTimeout      time.Duration `yaml:"request_timeout"` // 0 waits indefinitely
	Journal             string        `yaml:"journal,omitempty"`
	LogFile             string        `yaml:"log_file,omitempty"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		Server:              DefaultServer,
		PushPath:            DefaultPushPath,
		ReconnectDelay:      DefaultReconnectDelay,
		IntegrationCooldown: DefaultIntegrationCooldown,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/command-deck/config.yaml (or the OS equivalent)
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "command-deck", "config.yaml"), nil
}

// LoadConfig reads path over the defaults and applies COMMAND_DECK_* environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			LogDebug("No config file at %s, using defaults", path)
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COMMAND_DECK_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("COMMAND_DECK_PUSH_PATH"); v != "" {
		c.PushPath = v
	}
	if v := os.Getenv("COMMAND_DECK_JOURNAL"); v != "" {
		c.Journal = v
	}
	if v := os.Getenv("COMMAND_DECK_RECONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid COMMAND_DECK_RECONNECT_DELAY: %w", err)
		}
		c.ReconnectDelay = d
	}
	return nil
}

// Validate checks the settings and fills zero values with defaults
func (c *Config) Validate() error {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.Server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", c.Server)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", c.Server)
	}
	c.Server = strings.TrimRight(c.Server, "/")

	if c.PushPath == "" {
		c.PushPath = DefaultPushPath
	}
	if !strings.HasPrefix(c.PushPath, "/") {
		c.PushPath = "/" + c.PushPath
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.IntegrationCooldown < 0 {
		return fmt.Errorf("integration_cooldown must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// PushURL derives the WebSocket endpoint from the server URL
func (c Config) PushURL() (string, error) {
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", c.Server, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.PushPath
	return u.String(), nil
}
