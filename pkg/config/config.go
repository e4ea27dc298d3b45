// Package config loads and validates the DriftFS client configuration from
// file, environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DriftFS client configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DRIFTFS_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Mount contains per-session namespace settings
	Mount MountConfig `mapstructure:"mount"`

	// Metacache specifies the attribute cache backend and its settings
	Metacache MetacacheConfig `mapstructure:"metacache"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// MountConfig contains the namespace client's per-session settings.
type MountConfig struct {
	// NameMax is the longest accepted name component
	NameMax int `mapstructure:"name_max" validate:"required,gt=0,lte=4096"`

	// PathRetryLimit bounds the path construction retry loop
	PathRetryLimit int `mapstructure:"path_retry_limit" validate:"required,gt=0,lte=64"`

	// RequestsPerSecond throttles outbound metadata requests (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the request throttle's burst allowance (0 = same as rate)
	Burst uint `mapstructure:"burst"`
}

// MetacacheConfig specifies the attribute cache configuration.
//
// The Type field determines which backend is used. Only the corresponding
// type-specific section is read.
type MetacacheConfig struct {
	// Type specifies which attribute cache backend to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-backend configuration
	// Only used when Type = "memory"
	Memory MemoryCacheConfig `mapstructure:"memory"`

	// Badger contains BadgerDB-backend configuration
	// Only used when Type = "badger"
	Badger BadgerCacheConfig `mapstructure:"badger"`
}

// MemoryCacheConfig configures the in-memory attribute cache.
type MemoryCacheConfig struct {
	// MaxEntries limits the cache size (LRU eviction)
	MaxEntries int `mapstructure:"max_entries" validate:"gte=0"`

	// TTL is how long cached entries remain valid (0 disables expiry)
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// BadgerCacheConfig configures the persistent attribute cache.
type BadgerCacheConfig struct {
	// Path is the directory holding the BadgerDB files
	Path string `mapstructure:"path"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/driftfs/config.yaml) is searched and a missing file is
// acceptable.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setupViper configures environment variable support and the config file
// search path.
//
// Environment variables use the DRIFTFS_ prefix with underscores, e.g.
// DRIFTFS_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DRIFTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// at the default location is acceptable; defaults take over.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config, or the current directory as
// a last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "driftfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "driftfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
