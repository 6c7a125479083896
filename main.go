package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/allocation"
	"github.com/growthbox/databot/pkg/analysis"
	"github.com/growthbox/databot/pkg/assistant"
	"github.com/growthbox/databot/pkg/chat"
	"github.com/growthbox/databot/pkg/config"
	"github.com/growthbox/databot/pkg/llm"
	"github.com/growthbox/databot/pkg/logging"
	"github.com/growthbox/databot/pkg/mcp"
	"github.com/growthbox/databot/pkg/mcp/tools"
	"github.com/growthbox/databot/pkg/scheduler"
	"github.com/growthbox/databot/pkg/sheets"
	"github.com/growthbox/databot/pkg/warehouse"
	"github.com/growthbox/databot/pkg/wiki"

	_ "github.com/growthbox/databot/pkg/warehouse/mssql"
	_ "github.com/growthbox/databot/pkg/warehouse/postgres"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("warehouse_type", cfg.Warehouse.Type),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("proactive_analysis", cfg.Analysis.ProactiveAnalysis),
		zap.Bool("allocator_enabled", cfg.Allocator.Enabled))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	warehouseClient, err := warehouse.NewClient(ctx, cfg.Warehouse.Type, cfg.Warehouse.ConnectionString(), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to warehouse: %s", logging.SanitizeError(err))
	}
	defer warehouseClient.Close()

	queryTimeout := time.Duration(cfg.Warehouse.QueryTimeoutSeconds) * time.Second

	analyzer := analysis.New(warehouseClient, analysis.Options{
		ProactiveAnalysis: cfg.Analysis.ProactiveAnalysis,
		AutoCompare:       cfg.Analysis.AutoCompare,
		DrillDownCap:      cfg.Analysis.DrillDownCap,
		MaxRows:           cfg.Warehouse.MaxRows,
		QueryTimeout:      queryTimeout,
		DefaultProject:    cfg.Warehouse.DefaultProject,
	}, logger)

	gateway := assistant.NewGateway(warehouseClient, analyzer, assistant.GatewayConfig{
		MaxRows:      cfg.Warehouse.MaxRows,
		QueryTimeout: queryTimeout,
	}, logger)

	llmClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	runner := llm.NewRunner(llmClient, cfg.LLM.MaxToolRounds, logger)

	pageWriter := wiki.NewClient(wiki.Config{
		BaseURL:  cfg.Wiki.BaseURL,
		SpaceKey: cfg.Wiki.SpaceKey,
		APIToken: cfg.Wiki.APIToken,
	}, logger)
	sheetWriter := sheets.NewWriter(cfg.Sheets.OutputDir, logger)

	svc := assistant.NewService(runner, gateway, pageWriter, sheetWriter, cfg.Warehouse.Type, logger)

	sessions := chat.NewSessionStore(time.Duration(cfg.Chat.ThreadTTLMinutes) * time.Minute)
	poster := chat.NewHTTPPoster(cfg.Chat.ResponseURL, cfg.Chat.WebhookSecret, logger)
	chatHandler := chat.NewHandler(cfg.Chat.WebhookSecret, svc, gateway, sessions, poster, logger)

	mux := http.NewServeMux()
	chatHandler.RegisterRoutes(mux)

	mcpServer := mcp.NewServer("databot", cfg.Version, logger)
	tools.RegisterQueryTools(mcpServer.MCP(), &tools.QueryToolDeps{
		Gateway: gateway,
		Logger:  logger,
	})
	mux.Handle("/mcp", mcpServer.NewStreamableHTTPServer())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, cfg.Version)
	})

	var sched *scheduler.Scheduler
	if cfg.Allocator.Enabled {
		job := allocation.NewJob(warehouseClient, sheetWriter, allocation.Config{
			Procedure:     cfg.Allocator.Procedure,
			WarehouseType: cfg.Warehouse.Type,
			Workbook:      cfg.Allocator.Workbook,
			Sheet:         cfg.Allocator.Sheet,
			StartCell:     cfg.Allocator.StartCell,
		}, logger)
		sched = scheduler.New(logger)
		if err := sched.Register("allocation", cfg.Allocator.Schedule, job); err != nil {
			return fmt.Errorf("failed to schedule allocation job: %w", err)
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if sched != nil {
			sched.Stop()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("databot listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
