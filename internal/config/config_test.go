package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"ZAI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"OPENWEATHER_API_KEY", "TOOLBRIDGE_ADDR", "TOOLBRIDGE_DB",
		"TOOLBRIDGE_DELETE_PASSWORD",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8000" {
		t.Errorf("default addr = %q, want :8000", cfg.Server.Addr)
	}
	if cfg.Store.RetryAttempts != 3 {
		t.Errorf("default retry attempts = %d, want 3", cfg.Store.RetryAttempts)
	}
	if cfg.GetStoreRetryDelay() != 50*time.Millisecond {
		t.Errorf("default retry delay = %v, want 50ms", cfg.GetStoreRetryDelay())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "toolbridge" {
		t.Errorf("got name %q, want toolbridge", cfg.Name)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	content := `
server:
  addr: ":9999"
llm:
  provider: openai
  api_key: test-key
store:
  database_path: /tmp/test.db
  retry_attempts: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "test-key" {
		t.Errorf("llm = %+v, want openai/test-key", cfg.LLM)
	}
	if cfg.Store.RetryAttempts != 5 {
		t.Errorf("retry attempts = %d, want 5", cfg.Store.RetryAttempts)
	}
	// Untouched sections keep defaults.
	if cfg.Weather.BaseURL == "" {
		t.Error("weather base URL should keep its default")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("OPENWEATHER_API_KEY", "weather-key")
	t.Setenv("TOOLBRIDGE_DB", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "env-key" {
		t.Errorf("llm = %+v, want gemini/env-key", cfg.LLM)
	}
	if !cfg.HasWeatherCredential() {
		t.Error("weather credential should be configured")
	}
	if cfg.Store.DatabasePath != "/tmp/override.db" {
		t.Errorf("db path = %q, want /tmp/override.db", cfg.Store.DatabasePath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) { c.LLM.APIKey = "k" },
			wantErr: false,
		},
		{
			name:    "missing llm key",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.LLM.APIKey = "k"
				c.LLM.Provider = "mystery"
			},
			wantErr: true,
		},
		{
			name: "zero retry attempts",
			mutate: func(c *Config) {
				c.LLM.APIKey = "k"
				c.Store.RetryAttempts = 0
			},
			wantErr: true,
		},
		{
			name: "missing weather key is not fatal",
			mutate: func(c *Config) {
				c.LLM.APIKey = "k"
				c.Weather.APIKey = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)

	cfg := DefaultConfig()
	cfg.Server.Addr = ":7777"
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.Addr != ":7777" {
		t.Errorf("addr = %q, want :7777", loaded.Server.Addr)
	}
}
