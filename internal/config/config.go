// Package config defines the mailslot daemon configuration, loaded via
// viper from a config file, environment variables (MAILSLOT_ prefix),
// and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete mailslot configuration
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RegistryConfig controls mailslot registry sizing and semantics
type RegistryConfig struct {
	// Instances is the number of mailslots (default: 256)
	Instances int `mapstructure:"instances"`
	// Capacity is the number of messages one mailslot holds (default: 256)
	Capacity int `mapstructure:"capacity"`
	// MessageSize is the maximum message size in bytes (default: 256)
	MessageSize int `mapstructure:"message_size"`
	// PopOrder selects which message a read returns: "lifo" (newest
	// first, the default) or "fifo"
	PopOrder string `mapstructure:"pop_order"`
}

// ServerConfig controls the TCP dispatch front end
type ServerConfig struct {
	// Listen is the address the server binds (default: "127.0.0.1:7317")
	Listen string `mapstructure:"listen"`
	// MaxConns limits concurrent client connections, 0 = unlimited
	MaxConns int `mapstructure:"max_conns"`
	// IdleTimeoutSeconds disconnects a client after this many seconds
	// without a complete command, 0 = no timeout
	IdleTimeoutSeconds int `mapstructure:"idle_timeout_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`
	// File is the log file path; empty logs to stderr
	File string `mapstructure:"file"`
}

// SetDefaults registers default values with viper. Call before reading
// the config file so defaults apply even when no file exists.
func SetDefaults() {
	viper.SetDefault("registry.instances", 256)
	viper.SetDefault("registry.capacity", 256)
	viper.SetDefault("registry.message_size", 256)
	viper.SetDefault("registry.pop_order", "lifo")

	viper.SetDefault("server.listen", "127.0.0.1:7317")
	viper.SetDefault("server.max_conns", 0)
	viper.SetDefault("server.idle_timeout_seconds", 300)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

// Load unmarshals the current viper state into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the directory searched for the config file,
// $HOME/.config/mailslot.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailslot")
}
