// Package resolver maps one instruction fragment to one tool call using a
// language model. The model provider sits behind the LLMClient interface so
// the orchestrator never depends on a concrete vendor and tests can inject a
// deterministic stub.
package resolver

import (
	"context"
	"fmt"
	"time"

	"toolbridge/internal/config"
)

const defaultSystemPrompt = "You are a tool-selection assistant. You map a single user instruction to exactly one tool call from a fixed catalog. Respond only with valid JSON."

// LLMClient is the interface every model provider implements.
type LLMClient interface {
	// Complete sends a prompt and returns the raw completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteWithSchema sends a prompt and asks the provider to enforce the
	// given JSON schema on the response. Providers that cannot enforce
	// schemas server-side fall back to JSON mode plus prompt instructions.
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)

	// SchemaCapable reports whether the provider enforces response schemas
	// server-side.
	SchemaCapable() bool

	// ModelID returns the provider's model identifier for logging.
	ModelID() string
}

// Provider represents an LLM provider.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderZAI    Provider = "zai"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ZAIConfig holds configuration for the Z.AI client.
type ZAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClientFromConfig builds the LLM client selected by configuration.
func NewClientFromConfig(cfg config.LLMConfig, timeout time.Duration) (LLMClient, error) {
	switch Provider(cfg.Provider) {
	case ProviderGemini:
		gc := DefaultGeminiConfig(cfg.APIKey)
		gc.Timeout = timeout
		if cfg.Model != "" {
			gc.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			gc.BaseURL = cfg.BaseURL
		}
		return NewGeminiClientWithConfig(gc), nil

	case ProviderOpenAI:
		oc := DefaultOpenAIConfig(cfg.APIKey)
		oc.Timeout = timeout
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderZAI:
		zc := DefaultZAIConfig(cfg.APIKey)
		zc.Timeout = timeout
		if cfg.Model != "" {
			zc.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			zc.BaseURL = cfg.BaseURL
		}
		return NewZAIClientWithConfig(zc), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid: gemini, openai, zai)", cfg.Provider)
	}
}
