// Package config loads and saves the tasktimer configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/timer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"

	// EnvPrefix prefixes environment overrides, e.g. TASKTIMER_DB_PATH.
	EnvPrefix = "TASKTIMER"
)

type Config struct {
	DBPath       string        `mapstructure:"db_path" yaml:"db_path"`
	LogFile      string        `mapstructure:"log_file" yaml:"log_file"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string        `mapstructure:"log_format" yaml:"log_format"`
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	Theme        string        `mapstructure:"theme" yaml:"theme"`
}

// Dir is the per-user tasktimer directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tasktimer"
	}
	return filepath.Join(dir, "tasktimer")
}

// DefaultPath is where the config file lives unless --config says otherwise.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = filepath.Join(Dir(), "tasktimer.db")
	}
	return &Config{
		DBPath:       dbPath,
		LogFile:      filepath.Join(Dir(), "tasktimer.log"),
		LogLevel:     "info",
		LogFormat:    "text",
		TickInterval: timer.DefaultInterval,
		Theme:        ThemeDark,
	}
}

// Load reads path on top of the defaults. A missing file is not an error.
// TASKTIMER_* environment variables override the file, and flags that were
// set on the command line override both. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	def := Default()
	v := viper.New()
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("tick_interval", def.TickInterval)
	v.SetDefault("theme", def.Theme)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FlagNames maps config keys to the command-line flags that override them.
var FlagNames = map[string]string{
	"db_path":   "db",
	"log_level": "log-level",
	"theme":     "theme",
}

// Validate normalises values and rejects ones that cannot be used.
func (c *Config) Validate() error {
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	switch c.Theme {
	case "":
		c.Theme = ThemeDark
	case ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("invalid theme %q (want dark or light)", c.Theme)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "":
		c.LogFormat = "text"
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}

	if c.TickInterval <= 0 {
		c.TickInterval = timer.DefaultInterval
	}
	if c.DBPath == "" {
		return errors.New("db_path is empty")
	}
	return nil
}

// Save writes cfg as YAML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
