package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/audit"
	"github.com/ami-sense/ami-engine/pkg/auth"
	"github.com/ami-sense/ami-engine/pkg/config"
	"github.com/ami-sense/ami-engine/pkg/database"
	"github.com/ami-sense/ami-engine/pkg/handlers"
	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/logging"
	"github.com/ami-sense/ami-engine/pkg/mcp"
	"github.com/ami-sense/ami-engine/pkg/repositories"
	"github.com/ami-sense/ami-engine/pkg/services"
	"github.com/ami-sense/ami-engine/pkg/toolserver"
	"github.com/ami-sense/ami-engine/pkg/tools"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connStr := cfg.Database.ConnectionString()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(connStr, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sensorRepo := repositories.NewSensorDataRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	qaRepo := repositories.NewQARepository(db)

	corpus, err := services.LoadFAQCorpus(cfg.Tools.FAQPath)
	if err != nil {
		logger.Fatal("Failed to load FAQ corpus", zap.Error(err))
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to initialize JWKS client", zap.Error(err))
	}
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	toolService := services.NewToolService(sensorRepo, accountRepo, cfg.Tools.SystemInfoPath, logger)

	registry := tools.NewRegistry(cfg.Tools.BaseURL,
		time.Duration(cfg.Tools.SchemaTimeoutSeconds)*time.Second, logger)
	invoker := tools.NewInvoker(cfg.Tools.BaseURL,
		time.Duration(cfg.Tools.InvokeTimeoutSeconds)*time.Second, logger)

	assistantService := services.NewAssistantService(
		registry,
		invoker,
		llm.NewFactory(&llm.Config{
			Endpoint: cfg.Assistant.LLMBaseURL,
			Model:    cfg.Assistant.LLMModel,
		}, logger),
		accountRepo,
		audit.NewSecurityAuditor(logger),
		cfg.Assistant.MaxToolIterations,
		cfg.Assistant.MaxHistoryMessages,
		logger,
	)
	chatbotService := services.NewChatbotService(sensorRepo, qaRepo, corpus, logger)

	mux := http.NewServeMux()

	toolserver.NewServer(toolService, logger).RegisterRoutes(mux, "/tools")
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAssistantHandler(assistantService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewChatbotHandler(chatbotService, corpus, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("ami-engine", cfg.Version, logger)
	mcp.RegisterSensorTools(mcpServer.MCP(), toolService)
	mcp.RegisterAccountTools(mcpServer.MCP(), toolService)
	mux.Handle("/mcp", mcpServer.NewStreamableHTTPServer())

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ami-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		errCh <- server.ListenAndServe()
	}()

	// The registry reads our own /tools/openapi.json, so discovery has to
	// wait until the listener is up. A failed refresh leaves the assistant
	// in degraded no-tool mode until the next attempt.
	go refreshToolDefinitions(ctx, registry, logger)

	select {
	case err := <-errCh:
		logger.Fatal("Server failed", zap.Error(err))
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
		}
	}
}

// refreshToolDefinitions performs the initial tool discovery and then
// refreshes periodically so schema changes are picked up without a restart.
func refreshToolDefinitions(ctx context.Context, registry *tools.Registry, logger *zap.Logger) {
	for attempt := 0; attempt < 5; attempt++ {
		time.Sleep(500 * time.Millisecond)
		registry.Refresh(ctx)
		if len(registry.Definitions()) > 0 {
			break
		}
	}
	if len(registry.Definitions()) == 0 {
		logger.Warn("Tool discovery failed, assistant will run without tools until next refresh")
	}

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Refresh(ctx)
		}
	}
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}
