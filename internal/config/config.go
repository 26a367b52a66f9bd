// Package config handles configuration loading for taskfleet.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskfleet.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
}

// AnthropicConfig holds reasoning model settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. May contain ${VAR} references.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier used for all reasoning calls.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes model calls through AWS Bedrock instead of
	// the Anthropic API. No API key is needed in that mode.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the AWS credentials profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableCORS bool   `mapstructure:"enable_cors"`
	Debug      bool   `mapstructure:"debug"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	// Path is the sqlite database file. Empty means the XDG data path.
	Path string `mapstructure:"path"`
}

// FleetConfig holds agent fleet settings.
type FleetConfig struct {
	// CatalogPath is an optional YAML agent catalog. Empty means the
	// built-in fleet.
	CatalogPath string `mapstructure:"catalog_path"`
	// SweepInterval is how often pending assignments are processed.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// DebugLog is an optional debug log file path.
	DebugLog string `mapstructure:"debug_log"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, TASKFLEET_*)
// 2. Project config (.taskfleet.yaml in current directory or parent)
// 3. User config (~/.config/taskfleet/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "TASKFLEET_MODEL")
	v.BindEnv("server.host", "TASKFLEET_HOST")
	v.BindEnv("server.port", "TASKFLEET_PORT")
	v.BindEnv("storage.path", "TASKFLEET_DB")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8844,
			EnableCORS: true,
		},
		Fleet: FleetConfig{
			SweepInterval: 10 * time.Second,
		},
	}
}

// BaseURL returns the HTTP base URL for the configured server.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// DatabasePath resolves the sqlite path, falling back to the XDG data
// directory.
func (c *Config) DatabasePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskfleet", "fleet.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "fleet.db")
	}
	return filepath.Join(home, ".local", "share", "taskfleet", "fleet.db")
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8844)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.debug", false)

	v.SetDefault("storage.path", "")

	v.SetDefault("fleet.catalog_path", "")
	v.SetDefault("fleet.sweep_interval", "10s")
	v.SetDefault("fleet.debug_log", "")
}

// getUserConfigDir returns the XDG config directory for taskfleet.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskfleet")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskfleet")
	}
	return filepath.Join(home, ".config", "taskfleet")
}

// findProjectConfig searches for .taskfleet.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskfleet.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
