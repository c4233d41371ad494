package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	// Driver is "sqlite" (local file) or "postgres" (hosted database).
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is the file path for sqlite or the connection URL for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// BoardConfig holds board presentation defaults.
type BoardConfig struct {
	Layout Layout `mapstructure:"layout" yaml:"layout"`
	Sort   string `mapstructure:"sort" yaml:"sort"`

	// RefreshSeconds reloads the board periodically; 0 disables it.
	RefreshSeconds int `mapstructure:"refresh_seconds" yaml:"refresh_seconds"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// ReleaseConfig controls the "what's new" popup.
type ReleaseConfig struct {
	// MaxShows is how many logins a release stays visible for.
	MaxShows int `mapstructure:"max_shows" yaml:"max_shows"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Board   BoardConfig   `mapstructure:"board" yaml:"board"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Release ReleaseConfig `mapstructure:"release" yaml:"release"`

	// OwnerID pins the profile whose tasks are shown. When empty the id
	// stored in the system keyring is used.
	OwnerID string `mapstructure:"owner_id" yaml:"owner_id"`
}

// ConfigDir returns ~/.config/planejamento, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "planejamento")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, "planner.db"),
		},
		Board: BoardConfig{
			Layout: LayoutStages,
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "planner.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Release: ReleaseConfig{
			MaxShows: 3,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with PLANNER_ override file values
// (PLANNER_STORE_DSN overrides store.dsn). A missing file yields defaults.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.dsn", defaults.Store.DSN)
	v.SetDefault("board.layout", string(defaults.Board.Layout))
	v.SetDefault("board.sort", "")
	v.SetDefault("board.refresh_seconds", 0)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	v.SetDefault("release.max_shows", defaults.Release.MaxShows)
	v.SetDefault("owner_id", "")

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if _, err := ColumnsFor(cfg.Board.Layout); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	switch cfg.Store.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("parsing config %s: unknown store driver %q", path, cfg.Store.Driver)
	}
	if cfg.Board.RefreshSeconds < 0 {
		cfg.Board.RefreshSeconds = 0
	}
	if cfg.Release.MaxShows < 0 {
		cfg.Release.MaxShows = 0
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("board", cfg.Board)
	v.Set("log", cfg.Log)
	v.Set("release", cfg.Release)
	v.Set("owner_id", cfg.OwnerID)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
