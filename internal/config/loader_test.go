package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, cfg *Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TICKVOICE_CONFIG", path)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICKVOICE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.TickTick.CallbackPort != 8080 {
		t.Errorf("callback port = %d, want 8080", cfg.TickTick.CallbackPort)
	}
	if cfg.Audio.TranscribeModel != "whisper-1" {
		t.Errorf("transcribe model = %q", cfg.Audio.TranscribeModel)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	file := DefaultConfig()
	file.Server.Port = 9001
	file.Model.Name = "some/other-model"
	writeConfigFile(t, file)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Model.Name != "some/other-model" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	file := DefaultConfig()
	file.Server.Port = 9001
	writeConfigFile(t, file)
	t.Setenv("TICKVOICE_SERVER_PORT", "9002")
	t.Setenv("TICKVOICE_SERVER_DIRECT_AGENT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9002 {
		t.Errorf("port = %d, want 9002", cfg.Server.Port)
	}
	if !cfg.Server.DirectAgent {
		t.Error("direct agent flag not picked up from env")
	}
}

func TestLoadLegacyBareVariables(t *testing.T) {
	t.Setenv("TICKVOICE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("OPENROUTE_API_KEY", "legacy-or-key")
	t.Setenv("TICKTICK_CLIENT_ID", "legacy-client")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers.OpenRouter.APIKey != "legacy-or-key" {
		t.Errorf("openrouter key = %q", cfg.Providers.OpenRouter.APIKey)
	}
	if cfg.TickTick.ClientID != "legacy-client" {
		t.Errorf("client id = %q", cfg.TickTick.ClientID)
	}
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("TICKVOICE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("TICKVOICE_OPENROUTER_API_KEY", "prefixed-key")
	t.Setenv("OPENROUTE_API_KEY", "legacy-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers.OpenRouter.APIKey != "prefixed-key" {
		t.Errorf("openrouter key = %q, want prefixed-key", cfg.Providers.OpenRouter.APIKey)
	}
}

func TestStateDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.StateDir = "/var/lib/tickvoice"

	dir, err := StateDir(cfg)
	if err != nil {
		t.Fatalf("StateDir() error: %v", err)
	}
	if dir != "/var/lib/tickvoice" {
		t.Errorf("dir = %q", dir)
	}
}
