package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIQuotaFailureIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg)

	start := time.Now()
	_, err := c.CompleteWithSystem(context.Background(), "", "weather in Paris")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected an error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("unexpected error: %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
	if elapsed > 2*time.Second {
		t.Errorf("quota failure took %v to surface", elapsed)
	}
}

func TestGeminiQuotaFailureIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultGeminiConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewGeminiClientWithConfig(cfg)

	_, err := c.CompleteWithSystem(context.Background(), "", "weather in Paris")
	if err == nil {
		t.Fatal("expected an error on 429")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}

func TestOpenAITransportFailureIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg)

	_, err := c.CompleteWithSystem(context.Background(), "", "weather in Paris")
	if err == nil {
		t.Fatal("expected an error on 503")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}

func TestOpenAICancelledContextFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := c.CompleteWithSystem(ctx, "", "weather in Paris")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected an error with a cancelled context")
	}
	if elapsed > 2*time.Second {
		t.Errorf("cancelled call took %v to return", elapsed)
	}
}

func TestOpenAICompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"tool\": \"list_users\", \"parameters\": {}}"}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg)

	out, err := c.CompleteWithSchema(context.Background(), "", "show all users", ToolSelectionSchema)
	if err != nil {
		t.Fatalf("CompleteWithSchema failed: %v", err)
	}
	if !strings.Contains(out, "list_users") {
		t.Errorf("unexpected completion: %s", out)
	}
}
