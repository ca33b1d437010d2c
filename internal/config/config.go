// ABOUTME: Configuration loading and parsing for pagebridge
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pagebridge configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP/WebSocket listener configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig holds conversation storage configuration
type StorageConfig struct {
	// Dir is the directory holding one JSON file per conversation.
	// Created on first use.
	Dir string `yaml:"dir"`
}

// AgentConfig holds configuration for the spawned agent CLI
type AgentConfig struct {
	// Binary is the agent executable name, resolved via PATH.
	Binary string `yaml:"binary"`

	ExitGracePeriod    time.Duration `yaml:"-"`
	ExitGracePeriodRaw string        `yaml:"exit_grace_period"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives a JSON copy of every log record in
	// addition to the text output on stderr.
	File string `yaml:"file"`
}

// Default returns a configuration with all defaults applied, usable
// without any config file on disk.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: "localhost:3456"},
		Storage: StorageConfig{Dir: defaultDataDir()},
		Agent:   AgentConfig{Binary: "claude", ExitGracePeriod: 5 * time.Second},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
// Missing fields fall back to Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the default configuration
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.Agent.Binary == "" {
		return fmt.Errorf("agent.binary is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Agent.ExitGracePeriodRaw != "" {
		cfg.Agent.ExitGracePeriod, err = time.ParseDuration(cfg.Agent.ExitGracePeriodRaw)
		if err != nil {
			return fmt.Errorf("parsing exit_grace_period %q: %w", cfg.Agent.ExitGracePeriodRaw, err)
		}
	}

	return nil
}

// DefaultPath returns the path to the pagebridge config file.
// Priority: PAGEBRIDGE_CONFIG env var > XDG_CONFIG_HOME/pagebridge/pagebridge.yaml > ~/.config/pagebridge/pagebridge.yaml
func DefaultPath() string {
	if envPath := os.Getenv("PAGEBRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "pagebridge.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pagebridge", "pagebridge.yaml")
}

// defaultDataDir returns the conversation data directory.
// Priority: XDG_DATA_HOME/pagebridge/conversations > ~/.local/share/pagebridge/conversations
func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("data", "conversations") // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "pagebridge", "conversations")
}
