package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/crypto"
	"github.com/ekaya-inc/ekaya-insight/pkg/database"
	"github.com/ekaya-inc/ekaya-insight/pkg/handlers"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/mcp"
	"github.com/ekaya-inc/ekaya-insight/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-insight/pkg/middleware"
	"github.com/ekaya-inc/ekaya-insight/pkg/repositories"
	"github.com/ekaya-inc/ekaya-insight/pkg/sampling"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.User+"@"+cfg.Database.Host+"/"+cfg.Database.Database),
		zap.Int("max_tables_per_source", cfg.Sampling.MaxTablesPerSource),
		zap.Int("max_rows_per_table", cfg.Sampling.MaxRowsPerTable),
		zap.Int("max_context_size_bytes", cfg.Sampling.MaxContextSizeBytes),
		zap.Duration("sampling_timeout", cfg.Sampling.SamplingTimeout()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encryptor, err := crypto.NewCredentialEncryptor(cfg.ProjectCredentialsKey)
	if err != nil {
		logger.Fatal("Invalid PROJECT_CREDENTIALS_KEY", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to metadata database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:               cfg.Datasource.ConnectionTTLMinutes,
		MaxConnectionsPerProject: cfg.Datasource.MaxConnectionsPerProject,
		PoolMaxConns:             cfg.Datasource.PoolMaxConns,
		PoolMinConns:             cfg.Datasource.PoolMinConns,
	}, logger)
	defer func() { _ = connManager.Close() }()

	datasourceRepo := repositories.NewDatasourceRepository(db, encryptor)
	profiler := sampling.NewSourceProfiler(datasourceRepo, datasource.NewDatasourceAdapterFactory(connManager), cfg.Sampling, logger)
	insightService := services.NewInsightContextService(profiler, cfg.Sampling, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, connManager, logger).RegisterRoutes(mux)
	handlers.NewInsightContextHandler(insightService, cfg.Sampling, logger).RegisterRoutes(mux)

	// MCP server exposing the insight context to LLM clients
	mcpServer := mcp.NewServer(handlers.ServiceName, cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
	tools.RegisterInsightContextTools(mcpServer.MCP(), &tools.InsightContextToolDeps{
		InsightService: insightService,
		Logger:         logger,
	})
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting ekaya-insight",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
