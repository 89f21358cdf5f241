package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all toolbridge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// LLM configuration for the intent resolver
	LLM LLMConfig `yaml:"llm"`

	// Outward backends
	Weather  WeatherConfig  `yaml:"weather"`
	Launches LaunchesConfig `yaml:"launches"`

	// Local user store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LLMConfig configures the intent resolver's model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai, zai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// WeatherConfig configures the OpenWeatherMap adapter.
type WeatherConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Units   string `yaml:"units"` // imperial, metric
	Timeout string `yaml:"timeout"`
}

// LaunchesConfig configures the SpaceX launch-info adapter.
type LaunchesConfig struct {
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
	Timeout string `yaml:"timeout"`
}

// StoreConfig configures the local SQLite user store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`

	// Bounded retry on SQLITE_BUSY. Attempts counts total tries, not retries.
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    string `yaml:"retry_delay"`

	// Password required by the delete_user operation. Empty disables deletes.
	DeletePassword string `yaml:"delete_password"`
}

// LoggingConfig configures the categorized debug logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, text
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "toolbridge",
		Version: "1.0.0",

		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     "30s",
			WriteTimeout:    "120s",
			ShutdownTimeout: "5s",
		},

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "",
			BaseURL:  "",
			Timeout:  "60s",
		},

		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			Units:   "imperial",
			Timeout: "10s",
		},

		Launches: LaunchesConfig{
			BaseURL: "https://api.spacexdata.com/v3",
			Limit:   5,
			Timeout: "10s",
		},

		Store: StoreConfig{
			DatabasePath:  "data/toolbridge.db",
			RetryAttempts: 3,
			RetryDelay:    "50ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// LLM keys are checked in priority order; the last match wins.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "zai"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		c.Weather.APIKey = key
	}

	if addr := os.Getenv("TOOLBRIDGE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("TOOLBRIDGE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if pw := os.Getenv("TOOLBRIDGE_DELETE_PASSWORD"); pw != "" {
		c.Store.DeletePassword = pw
	}
}

// GetLLMTimeout returns the LLM call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetWeatherTimeout returns the weather backend timeout as a duration.
func (c *Config) GetWeatherTimeout() time.Duration {
	d, err := time.ParseDuration(c.Weather.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetLaunchesTimeout returns the launch backend timeout as a duration.
func (c *Config) GetLaunchesTimeout() time.Duration {
	d, err := time.ParseDuration(c.Launches.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetStoreRetryDelay returns the base delay between store retry attempts.
func (c *Config) GetStoreRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.Store.RetryDelay)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

// GetShutdownTimeout returns the HTTP server shutdown grace period.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai", "zai"}

// Validate checks startup-fatal conditions. A missing weather credential is
// deliberately NOT fatal: that capability degrades instead (the adapter
// reports tool errors), per the health surface contract.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY, OPENAI_API_KEY, or ZAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store retry_attempts must be >= 1, got %d", c.Store.RetryAttempts)
	}

	return nil
}

// HasWeatherCredential reports whether the weather capability is usable.
func (c *Config) HasWeatherCredential() bool {
	return c.Weather.APIKey != ""
}

// LoggingOptions maps the logging section onto the logging package's options.
type LoggingOptions struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// GetLoggingOptions resolves the logging section into plain options.
func (c *Config) GetLoggingOptions() LoggingOptions {
	return LoggingOptions{
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.Format == "json",
		Categories: c.Logging.Categories,
	}
}
