// Package config handles configuration loading and management for reflex.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for reflex.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Skills    SkillsConfig    `mapstructure:"skills"`
	Services  []ServiceConfig `mapstructure:"services"`
}

// ServiceConfig describes an auxiliary process to manage during routing.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Command string `mapstructure:"command"`
	WorkDir string `mapstructure:"work_dir"`
	// AutoStart launches the service before routing begins.
	AutoStart bool `mapstructure:"auto_start"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// Bedrock switches the client to AWS Bedrock.
	Bedrock    bool   `mapstructure:"bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// RoutingConfig holds orchestrator settings.
type RoutingConfig struct {
	// DefaultHandler receives tasks no keyword matches.
	DefaultHandler string `mapstructure:"default_handler"`
	// MaxDepth caps handoff transitions per chain.
	MaxDepth int `mapstructure:"max_depth"`
	// StepTimeout is the wall-clock budget per handler step.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	// Rules overrides the built-in keyword table when non-empty.
	Rules []RuleConfig `mapstructure:"rules"`
}

// RuleConfig is one routing rule in the config file.
type RuleConfig struct {
	Handler  string   `mapstructure:"handler"`
	Keywords []string `mapstructure:"keywords"`
}

// CacheConfig holds cache store settings.
type CacheConfig struct {
	// Path is the SQLite database location; empty means the global path.
	Path string `mapstructure:"path"`
	// ProjectID is the default collection when the caller names none.
	ProjectID string `mapstructure:"project_id"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Provider is "local" or "openai".
	Provider   string `mapstructure:"provider"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// SkillsConfig holds skill manifest settings.
type SkillsConfig struct {
	// Dir is the directory of YAML skill manifests.
	Dir string `mapstructure:"dir"`
	// Watch enables hot-reloading of manifests.
	Watch bool `mapstructure:"watch"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.reflex.yaml in current directory or parent)
// 3. User config (~/.config/reflex/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence over the user config.
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("embedding.api_key", "REFLEX_EMBEDDING_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Embedding.APIKey = os.ExpandEnv(cfg.Embedding.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
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

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.bedrock", cfg.Anthropic.Bedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("routing.default_handler", cfg.Routing.DefaultHandler)
	v.Set("routing.max_depth", cfg.Routing.MaxDepth)
	v.Set("routing.step_timeout", cfg.Routing.StepTimeout.String())
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.project_id", cfg.Cache.ProjectID)
	v.Set("embedding.provider", cfg.Embedding.Provider)
	v.Set("embedding.base_url", cfg.Embedding.BaseURL)
	v.Set("embedding.model", cfg.Embedding.Model)
	v.Set("embedding.dimensions", cfg.Embedding.Dimensions)
	v.Set("skills.dir", cfg.Skills.Dir)
	v.Set("skills.watch", cfg.Skills.Watch)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.bedrock", false)

	v.SetDefault("routing.default_handler", "coder")
	v.SetDefault("routing.max_depth", 5)
	v.SetDefault("routing.step_timeout", "5m")

	v.SetDefault("cache.path", "")
	v.SetDefault("cache.project_id", "")

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("skills.dir", "")
	v.SetDefault("skills.watch", true)
}

// getUserConfigDir returns the XDG config directory for reflex.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "reflex")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "reflex")
	}
	return filepath.Join(home, ".config", "reflex")
}

// findProjectConfig searches for .reflex.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".reflex.yaml")
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

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Routing: RoutingConfig{
			DefaultHandler: "coder",
			MaxDepth:       5,
			StepTimeout:    5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Dimensions: 384,
		},
		Skills: SkillsConfig{
			Watch: true,
		},
	}
}
