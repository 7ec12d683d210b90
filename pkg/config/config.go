// Package config loads service configuration: defaults, then an optional
// YAML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultPort              = 34563
	DefaultNyraAPIURL        = "http://localhost:8080"
	DefaultAttachURL         = "http://localhost:9222"
	DefaultNavigationTimeout = 30 * time.Second
	DefaultMaxSessions       = 1
	DefaultBusBackend        = "memory"
	DefaultNATSURL           = "nats://127.0.0.1:4222"
)

// Config represents the complete service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Nyra    NyraConfig    `yaml:"nyra"`
	Bus     BusConfig     `yaml:"bus"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxSessions caps concurrently active capture sessions.
	MaxSessions int `yaml:"max_sessions"`
}

// BrowserConfig configures browser acquisition per session.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`
	// AttachURL is the DevTools endpoint of an already-running browser.
	// Empty disables attaching; a fresh instance is always launched.
	AttachURL         string        `yaml:"attach_url"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// NyraConfig locates the analysis collaborator.
type NyraConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// BusConfig selects the event bus backend.
type BusConfig struct {
	// Backend is "memory" or "nats".
	Backend string `yaml:"backend"`
	NATSURL string `yaml:"nats_url"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        DefaultPort,
			MaxSessions: DefaultMaxSessions,
		},
		Browser: BrowserConfig{
			Headless:          true,
			AttachURL:         DefaultAttachURL,
			NavigationTimeout: DefaultNavigationTimeout,
		},
		Nyra: NyraConfig{
			APIURL: DefaultNyraAPIURL,
		},
		Bus: BusConfig{
			Backend: DefaultBusBackend,
			NATSURL: DefaultNATSURL,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration: defaults, merged with the YAML file at path
// (skipped when path is empty or missing), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadAndMerge(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REELVIEW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REELVIEW_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxSessions = n
		}
	}
	if v := os.Getenv("REELVIEW_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("REELVIEW_ATTACH_URL"); v != "" {
		cfg.Browser.AttachURL = v
	}
	if v := os.Getenv("NYRA_API_URL"); v != "" {
		cfg.Nyra.APIURL = v
	}
	if v := os.Getenv("NYRA_API_KEY"); v != "" {
		cfg.Nyra.APIKey = v
	}
	if v := os.Getenv("REELVIEW_BUS"); v != "" {
		cfg.Bus.Backend = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Bus.NATSURL = v
	}
	if v := os.Getenv("REELVIEW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1, got %d", c.Server.MaxSessions)
	}
	switch c.Bus.Backend {
	case "memory", "nats":
	default:
		return fmt.Errorf("unknown bus backend %q (want memory or nats)", c.Bus.Backend)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive")
	}
	return nil
}
