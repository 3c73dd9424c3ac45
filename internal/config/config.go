// Package config loads server configuration: compiled defaults, then an
// optional YAML file, then MNEMO_* environment variables, each layer
// overriding the last.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects and configures a backend. Backend is "sqlite"
// (embedded, default) or "postgres" (hosted).
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite:  SQLiteConfig{Path: "mnemo.db"},
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("MNEMO_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("MNEMO_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("MNEMO_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MNEMO_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if backend := os.Getenv("MNEMO_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dbPath := os.Getenv("MNEMO_DB_PATH"); dbPath != "" {
		cfg.Storage.SQLite.Path = dbPath
	}
	if url := os.Getenv("MNEMO_POSTGRES_URL"); url != "" {
		cfg.Storage.Postgres.URL = url
	}
	if key := os.Getenv("MNEMO_API_KEY"); key != "" {
		cfg.Storage.Postgres.APIKey = key
	}
	if mode := os.Getenv("MNEMO_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if authStr := os.Getenv("MNEMO_AUTH_ENABLED"); authStr != "" {
		enabled, err := strconv.ParseBool(authStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MNEMO_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if token := os.Getenv("MNEMO_AUTH_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if level := os.Getenv("MNEMO_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("postgres backend requires MNEMO_POSTGRES_URL")
		}
		if c.Storage.Postgres.APIKey == "" {
			return fmt.Errorf("postgres backend requires MNEMO_API_KEY")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Transport.Mode != "stdio" && c.Transport.Mode != "http" {
		return fmt.Errorf("unknown transport mode %q", c.Transport.Mode)
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		return fmt.Errorf("auth requires MNEMO_AUTH_TOKEN")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
