package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"toolbridge/internal/config"
	"toolbridge/internal/logging"
	"toolbridge/internal/orchestrator"
	"toolbridge/internal/registry"
	"toolbridge/internal/resolver"
	"toolbridge/internal/server"
	"toolbridge/internal/tools"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	addr       string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "toolbridge - natural-language query orchestration service",
	Long: `toolbridge turns a free-text query into an ordered sequence of tool calls.

Each query is split into instruction fragments, every fragment is resolved to
one tool call by a language model, and the calls run sequentially against a
local user store, a weather API, and a launch-info API. Per-step outcomes are
reported individually, so one failed instruction never hides the others.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// serveCmd runs the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query service",
	Long: `Starts the HTTP server exposing the query pipeline:

  POST /query    run a natural-language query
  GET  /healthz  readiness and capability status
  GET  /tools    list registered tools
  GET  /         service info`,
	RunE: runServe,
}

// queryCmd runs one utterance through the pipeline and prints the result
var queryCmd = &cobra.Command{
	Use:   "query [utterance]",
	Short: "Run a single query through the pipeline",
	Long: `Runs one utterance through the full pipeline without starting the
server and prints the ordered step results as JSON.

Example:
  toolbridge query "Add a user named Jane Doe with email jane@example.com. Show all users."`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

// toolsCmd lists the registered tools
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE:  runTools,
}

// initdbCmd bootstraps the user store
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Initialize the user store with sample data",
	Long: `Creates the users table if needed and seeds it with a small sample
dataset. Safe to run repeatedly; existing rows are kept.`,
	RunE: runInitDB,
}

// loadConfig loads configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(workspace, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pipelineComponents is everything built during startup wiring.
type pipelineComponents struct {
	cfg      *config.Config
	registry *registry.Registry
	store    *tools.UserStore
	executor *tools.Executor
	orch     *orchestrator.Orchestrator
	llm      resolver.LLMClient
}

// buildPipeline wires the full pipeline. Any error here is startup-fatal.
func buildPipeline(cfg *config.Config) (*pipelineComponents, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg, err := registry.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tool registry: %w", err)
	}
	logger.Info("Tool registry loaded", zap.Int("tools", reg.Count()))

	store, err := tools.NewUserStore(cfg.Store.DatabasePath, tools.RetryPolicy{
		Attempts: cfg.Store.RetryAttempts,
		Delay:    cfg.GetStoreRetryDelay(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	llm, err := resolver.NewClientFromConfig(cfg.LLM, cfg.GetLLMTimeout())
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("LLM client ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", llm.ModelID()))

	res, err := resolver.New(llm, reg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build resolver: %w", err)
	}

	weather := tools.NewWeatherClient(cfg.Weather.APIKey, cfg.Weather.BaseURL,
		cfg.Weather.Units, cfg.GetWeatherTimeout())
	if !weather.Available() {
		logger.Warn("Weather credential missing; weather lookups will report errors")
	}
	launches := tools.NewLaunchClient(cfg.Launches.BaseURL, cfg.Launches.Limit,
		cfg.GetLaunchesTimeout())

	executor := tools.NewExecutor(reg, store, weather, launches, cfg.Store.DeletePassword)

	return &pipelineComponents{
		cfg:      cfg,
		registry: reg,
		store:    store,
		executor: executor,
		orch:     orchestrator.New(res, executor),
		llm:      llm,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.store.Close()

	srv := server.New(p.orch, p.registry, p.executor, server.Info{
		Name:              cfg.Name,
		Version:           cfg.Version,
		LLMProvider:       cfg.LLM.Provider,
		LLMModel:          p.llm.ModelID(),
		WeatherConfigured: cfg.HasWeatherCredential(),
	}, cfg.Server.Addr, cfg.GetShutdownTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	return srv.Run(ctx)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := p.orch.Process(ctx, args[0])

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func runTools(cmd *cobra.Command, args []string) error {
	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("failed to load tool registry: %w", err)
	}

	fmt.Printf("Registered tools (%d):\n\n", reg.Count())
	for _, d := range reg.All() {
		fmt.Printf("  %s  [%s]\n", d.Name, d.Backend)
		fmt.Printf("      %s\n", d.Description)
		for _, param := range d.Parameters {
			req := "optional"
			if param.Required {
				req = "required"
			}
			fmt.Printf("      - %s (%s, %s): %s\n", param.Name, param.Type, req, param.Description)
		}
		fmt.Println()
	}
	return nil
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := tools.NewUserStore(cfg.Store.DatabasePath, tools.RetryPolicy{
		Attempts: cfg.Store.RetryAttempts,
		Delay:    cfg.GetStoreRetryDelay(),
	})
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer store.Close()

	inserted, err := store.Seed(context.Background(), tools.SampleUsers)
	if err != nil {
		return err
	}

	count, err := store.CountUsers(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Database initialized at %s\n", store.Path())
	fmt.Printf("Seeded %d new user(s), %d total\n", inserted, count)
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "toolbridge.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory for logs and data")
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(initdbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
