package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"toolbridge/internal/logging"
)

// ZAIClient implements LLMClient for the Z.AI API. The wire format is
// OpenAI-compatible, but Z.AI only supports basic JSON mode
// ({"type": "json_object"}); schema enforcement has to happen through prompt
// instructions, which the resolver adds for non-schema-capable providers.
type ZAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultZAIConfig returns sensible defaults.
func DefaultZAIConfig(apiKey string) ZAIConfig {
	return ZAIConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.z.ai/api/paas/v4",
		Model:   "glm-4.6",
		Timeout: 60 * time.Second,
	}
}

// NewZAIClient creates a new Z.AI client with default configuration.
func NewZAIClient(apiKey string) *ZAIClient {
	return NewZAIClientWithConfig(DefaultZAIConfig(apiKey))
}

// NewZAIClientWithConfig creates a new Z.AI client with custom config.
func NewZAIClientWithConfig(cfg ZAIConfig) *ZAIClient {
	return &ZAIClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ModelID returns the configured model identifier.
func (c *ZAIClient) ModelID() string {
	return c.model
}

// SchemaCapable reports that Z.AI cannot enforce schemas server-side.
func (c *ZAIClient) SchemaCapable() bool {
	return false
}

// Complete sends a prompt and returns the completion.
func (c *ZAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *ZAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, nil)
}

// CompleteWithSchema requests JSON mode. The schema itself is advisory here;
// the resolver validates the output structurally either way.
func (c *ZAIClient) CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, &chatResponseFormat{Type: "json_object"})
}

func (c *ZAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, format *chatResponseFormat) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	logging.ResolverDebug("[ZAI] complete: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      1024,
		Temperature:    0.1,
		ResponseFormat: format,
	}

	return doChatRequest(ctx, c.httpClient, c.baseURL+"/chat/completions", c.apiKey, reqBody)
}
