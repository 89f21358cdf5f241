// Package server exposes the query pipeline over HTTP: POST /query runs the
// pipeline, GET /healthz reports readiness and per-capability availability,
// GET /tools dumps the registry, GET / identifies the service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"toolbridge/internal/logging"
	"toolbridge/internal/orchestrator"
	"toolbridge/internal/registry"
)

const defaultReadHeaderTimeout = 10 * time.Second

// Pipeline runs one utterance through the full query pipeline.
type Pipeline interface {
	Process(ctx context.Context, utterance string) *orchestrator.Result
}

// CapabilityReporter reports per-backend availability for the health surface.
type CapabilityReporter interface {
	Capabilities(ctx context.Context) map[string]bool
}

// Info is the static service identity served at / and /healthz.
type Info struct {
	Name    string
	Version string

	// LLMProvider and LLMModel identify the configured resolver model.
	LLMProvider string
	LLMModel    string

	// WeatherConfigured reports whether the weather credential is present.
	WeatherConfigured bool
}

// Server is the HTTP surface over one pipeline instance. The pipeline
// handles concurrent requests; each request's steps run sequentially.
type Server struct {
	pipeline Pipeline
	registry *registry.Registry
	caps     CapabilityReporter
	info     Info

	addr            string
	shutdownTimeout time.Duration
	httpSrv         *http.Server
}

// New creates a server.
func New(pipeline Pipeline, reg *registry.Registry, caps CapabilityReporter, info Info, addr string, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	return &Server{
		pipeline:        pipeline,
		registry:        reg,
		caps:            caps,
		info:            info,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler returns the http.Handler for all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("POST /query", s.handleQuery)
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	logging.Server("Listening on %s", s.addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		logging.Server("Shutting down")
		return s.httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// queryRequest is the POST /query body.
type queryRequest struct {
	Query string `json:"query"`
}

// healthResponse is the GET /healthz body.
type healthResponse struct {
	Status            string          `json:"status"`
	Ready             bool            `json:"ready"`
	Service           string          `json:"service"`
	Version           string          `json:"version"`
	LLMConfigured     bool            `json:"llm_configured"`
	LLMProvider       string          `json:"llm_provider,omitempty"`
	WeatherConfigured bool            `json:"weather_configured"`
	Backends          map[string]bool `json:"backends"`
	ToolCount         int             `json:"tool_count"`
}

// toolsResponse is the GET /tools body.
type toolsResponse struct {
	Count int              `json:"count"`
	Tools []toolDescriptor `json:"tools"`
}

type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Backend     string          `json:"backend"`
	Parameters  []toolParameter `json:"parameters"`
}

type toolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.info.Name,
		"version": s.info.Version,
		"endpoints": map[string]string{
			"POST /query":  "run a natural-language query through the pipeline",
			"GET /healthz": "readiness and capability status",
			"GET /tools":   "list registered tools",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backends := map[string]bool{}
	if s.caps != nil {
		backends = s.caps.Capabilities(r.Context())
	}

	llmConfigured := s.info.LLMProvider != ""

	// Ready means the pipeline can serve something: the resolver has a
	// model and the local store answers. Weather being down only degrades
	// that one capability.
	ready := llmConfigured && backends[string(registry.BackendStore)]

	status := "ok"
	if !ready {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:            status,
		Ready:             ready,
		Service:           s.info.Name,
		Version:           s.info.Version,
		LLMConfigured:     llmConfigured,
		LLMProvider:       s.info.LLMProvider,
		WeatherConfigured: s.info.WeatherConfigured,
		Backends:          backends,
		ToolCount:         s.registry.Count(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	resp := toolsResponse{Tools: []toolDescriptor{}}
	for _, d := range s.registry.All() {
		td := toolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			Backend:     string(d.Backend),
			Parameters:  []toolParameter{},
		}
		for _, p := range d.Parameters {
			td.Parameters = append(td.Parameters, toolParameter{
				Name:        p.Name,
				Type:        p.Type,
				Required:    p.Required,
				Description: p.Description,
			})
		}
		resp.Tools = append(resp.Tools, td)
	}
	resp.Count = len(resp.Tools)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	logging.Server("Query received: %q", req.Query)
	result := s.pipeline.Process(r.Context(), req.Query)

	// Step failures are carried in the body, not the HTTP status. A request
	// that completed is a 200 even when every step failed.
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryServer).Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
