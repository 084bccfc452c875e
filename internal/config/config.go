// Package config handles configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the sigdesk client configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Timeout TimeoutConfig `toml:"timeout"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds backend endpoint settings.
type ServerConfig struct {
	APIURL    string `toml:"api_url"`
	SocketURL string `toml:"socket_url"`
	AIURL     string `toml:"ai_url"`
}

// TimeoutConfig holds HTTP timeout settings, in seconds.
type TimeoutConfig struct {
	RequestSecs  int `toml:"request_secs"`
	ResourceSecs int `toml:"resource_secs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbose bool   `toml:"verbose"`
	File    string `toml:"file"`
}

// Load reads configuration from .env, the config file, and environment.
func Load() (*Config, error) {
	// .env is optional; a missing file is fine.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.expandPaths()

	return cfg, nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if p := os.Getenv("SIGDESK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(StateDir(), "config.toml")
}

// StateDir returns the sigdesk state directory.
func StateDir() string {
	if p := os.Getenv("SIGDESK_STATE_DIR"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sigdesk")
}

// TokenPath returns the path of the persisted auth token.
func TokenPath() string {
	return filepath.Join(StateDir(), "token")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout.RequestSecs) * time.Second
}

// ResourceTimeout returns the whole-call HTTP ceiling.
func (c *Config) ResourceTimeout() time.Duration {
	return time.Duration(c.Timeout.ResourceSecs) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIURL:    "https://chatsignaldesk.vercel.app",
			SocketURL: "wss://signaldesk-6xgf.onrender.com/socket",
			AIURL:     "https://signaldesk-4qla.onrender.com",
		},
		Timeout: TimeoutConfig{
			RequestSecs:  30,
			ResourceSecs: 60,
		},
		Logging: LoggingConfig{},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SIGDESK_API_URL"); v != "" {
		c.Server.APIURL = v
	}
	if v := os.Getenv("SIGDESK_SOCKET_URL"); v != "" {
		c.Server.SocketURL = v
	}
	if v := os.Getenv("SIGDESK_AI_URL"); v != "" {
		c.Server.AIURL = v
	}
	if v := os.Getenv("SIGDESK_VERBOSE"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.Verbose = true
	}
}

func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()

	expand := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		if strings.HasPrefix(p, "$HOME/") {
			return filepath.Join(home, p[6:])
		}
		return p
	}

	c.Logging.File = expand(c.Logging.File)
}

// Save writes the config to file.
func (c *Config) Save() error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// EnsureDirs creates necessary directories.
func EnsureDirs() error {
	if err := os.MkdirAll(StateDir(), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", StateDir(), err)
	}
	return nil
}
