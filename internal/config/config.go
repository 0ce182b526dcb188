package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	defaultTileURL     = "https://{s}.tile.openstreetmap.fr/hot/{z}/{x}/{y}.png"
	defaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Map       MapConfig       `yaml:"map"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the key-value backend the workouts live in.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	Key        string `yaml:"key"`
	SQLitePath string `yaml:"sqlite_path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type MapConfig struct {
	DefaultZoom int    `yaml:"default_zoom"`
	FocusZoom   int    `yaml:"focus_zoom"`
	TileURL     string `yaml:"tile_url"`
	Attribution string `yaml:"attribution"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Driver: DriverSQLite, Key: "workouts", SQLitePath: "mapty.db"},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			Name: "mapty",
			User: "mapty",
		},
		Map: MapConfig{
			DefaultZoom: 13,
			FocusZoom:   15,
			TileURL:     defaultTileURL,
			Attribution: defaultAttribution,
		},
		Tailscale: TailscaleConfig{Hostname: "mapty", StateDir: "tsnet-state"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. An empty path skips the file. Env vars
// use the prefix MAPTY_ and underscore-separated paths:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT,
//	MAPTY_STORAGE_DRIVER, MAPTY_STORAGE_KEY, MAPTY_STORAGE_SQLITE_PATH,
//	MAPTY_DB_HOST, MAPTY_DB_PORT, MAPTY_DB_NAME,
//	MAPTY_DB_USER, MAPTY_DB_PASSWORD, MAPTY_DB_SSLMODE,
//	MAPTY_MAP_TILE_URL, MAPTY_AUTH_API_KEY,
//	MAPTY_TAILSCALE_ENABLED, MAPTY_TAILSCALE_HOSTNAME, MAPTY_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("MAPTY_SERVER_HOST", &cfg.Server.Host)
	num("MAPTY_SERVER_PORT", &cfg.Server.Port)
	str("MAPTY_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("MAPTY_STORAGE_KEY", &cfg.Storage.Key)
	str("MAPTY_STORAGE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("MAPTY_DB_HOST", &cfg.Database.Host)
	num("MAPTY_DB_PORT", &cfg.Database.Port)
	str("MAPTY_DB_NAME", &cfg.Database.Name)
	str("MAPTY_DB_USER", &cfg.Database.User)
	str("MAPTY_DB_PASSWORD", &cfg.Database.Password)
	str("MAPTY_DB_SSLMODE", &cfg.Database.SSLMode)
	str("MAPTY_MAP_TILE_URL", &cfg.Map.TileURL)
	str("MAPTY_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("MAPTY_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("MAPTY_LOG_LEVEL", &cfg.Log.Level)
	if v := os.Getenv("MAPTY_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not one of sqlite, postgres, memory", c.Storage.Driver)
	}
	if c.Map.DefaultZoom <= 0 || c.Map.FocusZoom <= 0 {
		return fmt.Errorf("map zoom levels must be positive")
	}
	if c.Map.TileURL == "" {
		return fmt.Errorf("map.tile_url is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses log.level. Empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
