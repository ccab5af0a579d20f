// Package config provides configuration management for the interview client
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig locates the interview backend
type ServerConfig struct {
	// WSBaseURL is the backend base URL; http(s) schemes are accepted and
	// converted to ws(s) when dialing.
	WSBaseURL string `mapstructure:"ws_base_url"`
	// TokenFile holds the auth token, relative paths resolve against the
	// config directory.
	TokenFile string `mapstructure:"token_file"`
}

// SessionConfig tunes the connection lifecycle
type SessionConfig struct {
	ReconnectBaseDelay   time.Duration `mapstructure:"reconnect_base_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	DialTimeout          time.Duration `mapstructure:"dial_timeout"`
	TranscriptMaxEntries int           `mapstructure:"transcript_max_entries"`
}

// AudioConfig configures playback of interviewer speech
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
	// MaxQueuedChunks caps the playback queue
	MaxQueuedChunks int `mapstructure:"max_queued_chunks"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			WSBaseURL: "ws://localhost:8000",
			TokenFile: "token",
		},
		Session: SessionConfig{
			ReconnectBaseDelay:   1500 * time.Millisecond,
			MaxReconnectAttempts: 8,
			DialTimeout:          10 * time.Second,
			TranscriptMaxEntries: 200,
		},
		Audio: AudioConfig{
			SampleRate:      24000,
			Channels:        1,
			MaxQueuedChunks: 100,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("VOXPREP")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("server", cfg.Server)
	viper.Set("session", cfg.Session)
	viper.Set("audio", cfg.Audio)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// Watch reloads the configuration whenever the config file changes and hands
// the fresh copy to onChange. Reload errors keep the previous configuration.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// UsingDefaultServerURL reports whether ws_base_url came from the built-in
// default rather than the config file or environment.
func UsingDefaultServerURL() bool {
	return !viper.IsSet("server.ws_base_url")
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".voxprep"), nil
}
