package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/reflex/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify reflex configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/reflex/config.yaml
Project-specific overrides can be placed in .reflex.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.bedrock: %t\n", cfg.Anthropic.Bedrock)
	fmt.Printf("routing.default_handler: %s\n", cfg.Routing.DefaultHandler)
	fmt.Printf("routing.max_depth: %d\n", cfg.Routing.MaxDepth)
	fmt.Printf("routing.step_timeout: %s\n", cfg.Routing.StepTimeout)
	fmt.Printf("cache.path: %s\n", orUnset(cfg.Cache.Path))
	fmt.Printf("cache.project_id: %s\n", orUnset(cfg.Cache.ProjectID))
	fmt.Printf("embedding.provider: %s\n", cfg.Embedding.Provider)
	fmt.Printf("embedding.dimensions: %d\n", cfg.Embedding.Dimensions)
	fmt.Printf("skills.dir: %s\n", orUnset(cfg.Skills.Dir))
	fmt.Printf("skills.watch: %t\n", cfg.Skills.Watch)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.bedrock":
		return strconv.FormatBool(cfg.Anthropic.Bedrock), nil
	case "routing.default_handler":
		return cfg.Routing.DefaultHandler, nil
	case "routing.max_depth":
		return strconv.Itoa(cfg.Routing.MaxDepth), nil
	case "routing.step_timeout":
		return cfg.Routing.StepTimeout.String(), nil
	case "cache.path":
		return orUnset(cfg.Cache.Path), nil
	case "cache.project_id":
		return orUnset(cfg.Cache.ProjectID), nil
	case "embedding.provider":
		return cfg.Embedding.Provider, nil
	case "embedding.dimensions":
		return strconv.Itoa(cfg.Embedding.Dimensions), nil
	case "skills.dir":
		return orUnset(cfg.Skills.Dir), nil
	case "skills.watch":
		return strconv.FormatBool(cfg.Skills.Watch), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.Bedrock = b
	case "routing.default_handler":
		cfg.Routing.DefaultHandler = value
	case "routing.max_depth":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid max depth: %s", value)
		}
		cfg.Routing.MaxDepth = n
	case "routing.step_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Routing.StepTimeout = d
	case "cache.path":
		cfg.Cache.Path = value
	case "cache.project_id":
		cfg.Cache.ProjectID = value
	case "embedding.provider":
		if value != "local" && value != "openai" {
			return fmt.Errorf("embedding provider must be local or openai")
		}
		cfg.Embedding.Provider = value
	case "embedding.dimensions":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid dimensions: %s", value)
		}
		cfg.Embedding.Dimensions = n
	case "skills.dir":
		cfg.Skills.Dir = value
	case "skills.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Skills.Watch = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
