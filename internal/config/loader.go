package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".tickvoice"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("TICKVOICE_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// StateDir returns the directory for persisted runtime state (token cache,
// exchange journal). Falls back to ~/.tickvoice when unset.
func StateDir(cfg *Config) (string, error) {
	if dir := strings.TrimSpace(cfg.Paths.StateDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If file doesn't exist, continue with defaults

	// Override with environment variables for each group
	envconfig.Process("TICKVOICE_SERVER", &cfg.Server)
	envconfig.Process("TICKVOICE_MODEL", &cfg.Model)
	envconfig.Process("TICKVOICE_OPENAI", &cfg.Providers.OpenAI)
	envconfig.Process("TICKVOICE_OPENROUTER", &cfg.Providers.OpenRouter)
	envconfig.Process("TICKVOICE_TICKTICK", &cfg.TickTick)
	envconfig.Process("TICKVOICE_AUDIO", &cfg.Audio)
	envconfig.Process("TICKVOICE_PATHS", &cfg.Paths)

	// Legacy bare variables kept for parity with the original deployment.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENROUTE_API_KEY"); v != "" && cfg.Providers.OpenRouter.APIKey == "" {
		cfg.Providers.OpenRouter.APIKey = v
	}
	if v := os.Getenv("TICKTICK_CLIENT_ID"); v != "" && cfg.TickTick.ClientID == "" {
		cfg.TickTick.ClientID = v
	}
	if v := os.Getenv("TICKTICK_CLIENT_SECRET"); v != "" && cfg.TickTick.ClientSecret == "" {
		cfg.TickTick.ClientSecret = v
	}

	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
