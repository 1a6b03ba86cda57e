// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads Passmaster settings. Precedence, lowest first:
// built-in defaults, passmaster.yaml (system dir, user dir, working dir, or
// --config), PASSMASTER_* environment variables, command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toeirei/passmaster/internal/kdf"
)

const (
	appName    = "passmaster"
	configName = "passmaster"
)

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Language  string          `mapstructure:"language" yaml:"language"`
	KDF       KDFConfig       `mapstructure:"kdf" yaml:"kdf"`
	Lockout   LockoutConfig   `mapstructure:"lockout" yaml:"lockout"`
	Setup     SetupConfig     `mapstructure:"setup" yaml:"setup"`
	Clipboard ClipboardConfig `mapstructure:"clipboard" yaml:"clipboard"`
}

type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// KDFConfig holds the work factors for newly created verifiers. Existing
// vaults keep the parameters they were created with.
type KDFConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Time      uint32 `mapstructure:"time" yaml:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib" yaml:"memory_kib"`
	Threads   uint8  `mapstructure:"threads" yaml:"threads"`
	LogN      uint8  `mapstructure:"log_n" yaml:"log_n"`
}

// Params converts the section to derivation parameters.
func (k KDFConfig) Params() kdf.Params {
	return kdf.Params{Algorithm: k.Algorithm, Time: k.Time, MemoryKiB: k.MemoryKiB, Threads: k.Threads, LogN: k.LogN}
}

type LockoutConfig struct {
	Threshold int           `mapstructure:"threshold" yaml:"threshold"`
	BaseDelay time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type SetupConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

type ClipboardConfig struct {
	ClearAfter time.Duration `mapstructure:"clear_after" yaml:"clear_after"`
}

// Validate rejects settings the application cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.type %q is not one of sqlite, postgres, mysql", c.Database.Type))
	}
	if c.Database.Dsn == "" {
		errs = append(errs, errors.New("database.dsn must not be empty"))
	}
	if err := c.KDF.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Lockout.Threshold < 0 || c.Lockout.BaseDelay < 0 || c.Lockout.MaxDelay < 0 {
		errs = append(errs, errors.New("lockout values must not be negative"))
	}
	if c.Setup.MaxAttempts < 1 {
		errs = append(errs, errors.New("setup.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// DefaultDSN returns the default SQLite database path in the user data dir.
func DefaultDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./passmaster.db"
	}
	return filepath.Join(dir, appName, "vault.db")
}

// Defaults returns the built-in settings keyed by their dotted config names.
func Defaults() map[string]any {
	p := kdf.DefaultParams()
	return map[string]any{
		"database.type":         "sqlite",
		"database.dsn":          DefaultDSN(),
		"language":              "en",
		"kdf.algorithm":         p.Algorithm,
		"kdf.time":              p.Time,
		"kdf.memory_kib":        p.MemoryKiB,
		"kdf.threads":           p.Threads,
		"kdf.log_n":             p.LogN,
		"lockout.threshold":     3,
		"lockout.base_delay":    time.Second,
		"lockout.max_delay":     5 * time.Minute,
		"setup.max_attempts":    3,
		"clipboard.clear_after": 20 * time.Second,
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Passmaster")
		default: // Linux, macOS, etc.
			configDir = "/etc/passmaster"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, appName)
	}
	return filepath.Join(configDir, configName+".yaml"), nil
}

// LoadConfig resolves a T from defaults, config files, environment and the
// flags of cmd. A missing config file is not an error. When configFile is
// non-nil and non-empty it replaces the search path.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		if userConfigPath, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(userConfigPath))
		}
		if systemConfigPath, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(systemConfigPath))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Load is LoadConfig for Config with the built-in defaults, followed by
// validation.
func Load(cmd *cobra.Command, configFile *string) (Config, error) {
	c, err := LoadConfig[Config](cmd, Defaults(), configFile)
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}

// WriteConfigFile writes c as YAML to the user or system config path with
// owner-only permissions.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	return WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path with owner-only permissions.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	return os.WriteFile(path, data, 0o600)
}
