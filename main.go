package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/config"
	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/datasource/mssql"
	"github.com/asksql-labs/asksql-engine/pkg/datasource/postgres"
	"github.com/asksql-labs/asksql-engine/pkg/handlers"
	"github.com/asksql-labs/asksql-engine/pkg/llm"
	"github.com/asksql-labs/asksql-engine/pkg/logging"
	"github.com/asksql-labs/asksql-engine/pkg/mcp"
	"github.com/asksql-labs/asksql-engine/pkg/middleware"
	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("datasource_dialect", cfg.Datasource.Dialect),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
	)

	client, err := llm.NewClient(&llm.Config{
		Provider: cfg.AI.Provider,
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build completion client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	conn, err := connectDatasource(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to datasource", zap.Error(err))
	}
	defer conn.Close()

	cache := schema.NewCache()
	pipe := pipeline.New(client, conn, cache, logger)
	opts := cfg.Pipeline.Options()

	toolDeps := &mcp.ToolDeps{
		Runner: pipe,
		Conn:   conn,
		Cache:  cache,
		Opts:   opts,
		Logger: logger,
	}

	if cfg.MCP.Stdio {
		runMCPStdio(cfg, toolDeps, logger)
		return
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, conn, logger)
	healthHandler.RegisterRoutes(mux)

	queryHandler := handlers.NewQueryHandler(pipe, opts, logger)
	queryHandler.RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(cfg.Version, toolDeps)
		mux.Handle("/mcp", mcp.NewStreamableHTTPServer(mcpServer))
	}

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting asksql-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
	)
	if err := http.ListenAndServe(addr, middleware.RequestLogger(logger)(mux)); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func connectDatasource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.Conn, error) {
	switch datasource.Dialect(cfg.Datasource.Dialect) {
	case datasource.DialectMSSQL:
		return mssql.Connect(ctx, &mssql.Config{
			Host:     cfg.Datasource.Host,
			Port:     cfg.Datasource.Port,
			User:     cfg.Datasource.User,
			Password: cfg.Datasource.Password,
			Database: cfg.Datasource.Database,
			Encrypt:  cfg.Datasource.Encrypt,
		}, logger)
	default:
		return postgres.Connect(ctx, &postgres.Config{
			Host:     cfg.Datasource.Host,
			Port:     cfg.Datasource.Port,
			User:     cfg.Datasource.User,
			Password: cfg.Datasource.Password,
			Database: cfg.Datasource.Database,
			SSLMode:  cfg.Datasource.SSLMode,
		}, logger)
	}
}

// runMCPStdio serves the pipeline over stdin/stdout for MCP clients.
// Logs go to the configured zap sinks, never stdout, so they cannot
// corrupt the protocol stream.
func runMCPStdio(cfg *config.Config, deps *mcp.ToolDeps, logger *zap.Logger) {
	s := mcp.NewServer(cfg.Version, deps)
	logger.Info("serving MCP over stdio", zap.String("version", cfg.Version))
	if err := mcp.ServeStdio(s); err != nil {
		logger.Fatal("mcp server failed", zap.Error(err))
	}
}
