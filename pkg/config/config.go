package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by Load.
//
// Example (~/.codeloft/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8093
// workbench:
//   workdir: /home/project
//   watch_window_ms: 100
//   watch_exclude:
//     - "**/node_modules"
//     - "**/.git"
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Port must be between 1 and 65535.

type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Workbench WorkbenchConfig `yaml:"workbench"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type WorkbenchConfig struct {
	// Workdir is the workspace root mirrored into memory.
	Workdir *string `yaml:"workdir"`
	// WatchWindowMs is the coalescing window for watcher events.
	WatchWindowMs *int `yaml:"watch_window_ms"`
	// WatchExclude lists glob patterns never mirrored (dependency and
	// metadata directories).
	WatchExclude []string `yaml:"watch_exclude"`
	// StateDB is the sqlite file holding durable workbench state.
	StateDB *string `yaml:"state_db"`
}

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8093
	DefaultWatchWindowMs = 100
)

// DefaultWatchExclude matches directories that should never enter the
// mirror.
var DefaultWatchExclude = []string{"**/node_modules", "**/.git", "**/package-lock.json"}

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".codeloft")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.codeloft/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	// Validate
	host := cfg.Host()
	if strings.TrimSpace(host) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}

	port := cfg.Port()
	if port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}

	if cfg.WatchWindowMs() < 1 {
		return nil, "", fmt.Errorf("invalid workbench.watch_window_ms %d in %s", cfg.WatchWindowMs(), configFile)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{Server: ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)}}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	// Write with restrictive permissions.
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func (c *AppConfig) Host() string {
	if c == nil {
		return DefaultHost
	}
	if c.Server.Host == nil {
		return DefaultHost
	}
	v := strings.TrimSpace(*c.Server.Host)
	if v == "" {
		return DefaultHost
	}
	return v
}

func (c *AppConfig) Port() int {
	if c == nil {
		return DefaultPort
	}
	if c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// Workdir returns the configured workspace root, defaulting to
// ~/codeloft-workspace when unset.
func (c *AppConfig) Workdir() string {
	if c != nil && c.Workbench.Workdir != nil {
		if v := strings.TrimSpace(*c.Workbench.Workdir); v != "" {
			return v
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./codeloft-workspace"
	}
	return filepath.Join(home, "codeloft-workspace")
}

func (c *AppConfig) WatchWindowMs() int {
	if c == nil || c.Workbench.WatchWindowMs == nil {
		return DefaultWatchWindowMs
	}
	return *c.Workbench.WatchWindowMs
}

func (c *AppConfig) WatchExclude() []string {
	if c == nil || len(c.Workbench.WatchExclude) == 0 {
		return DefaultWatchExclude
	}
	return c.Workbench.WatchExclude
}

// StateDB returns the sqlite path for durable state, defaulting to a file
// next to the config.
func (c *AppConfig) StateDB() string {
	if c != nil && c.Workbench.StateDB != nil {
		if v := strings.TrimSpace(*c.Workbench.StateDB); v != "" {
			return v
		}
	}
	configDir, _, err := DefaultPaths()
	if err != nil {
		return "codeloft-state.db"
	}
	return filepath.Join(configDir, "state.db")
}

func ptr[T any](v T) *T { return &v }
