package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// IngestConfig bounds ingest requests.
type IngestConfig struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoadConfig reads configuration from an optional YAML file and applies
// environment overrides on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Ingest: IngestConfig{
			MaxBodyBytes: 64 << 20,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides lets deploy environments adjust the common knobs
// without a config file.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("CHARTS_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CHARTS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("CHARTS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ingest.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid ingest max_body_bytes %d", c.Ingest.MaxBodyBytes)
	}
	return nil
}
