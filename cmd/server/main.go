package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"scribeflow/backend/internal/api"
	"scribeflow/backend/internal/config"
	"scribeflow/backend/internal/llm"
	"scribeflow/backend/internal/logging"
	"scribeflow/backend/internal/mcp"
	"scribeflow/backend/internal/repository"
	"scribeflow/backend/internal/services"
	"scribeflow/backend/internal/tls"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Scribeflow document pipeline server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(configFile string) error {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	logger.Info("Starting Scribeflow Document Pipeline Service")

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	if err := repository.Migrate(ctx, dbPool); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	// Initialize repository layer
	store := repository.NewPostgresStore(dbPool)

	// Initialize service layer
	provider := llm.NewOpenAIProvider(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	pipeline := services.NewPipelineService(store, provider, logger)

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")
	api.RegisterHandlers(apiGroup, api.NewServer(store, pipeline, logger))

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(store, pipeline)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server. Write timeout stays unset so execution streams
	// can outlive a fixed deadline.
	addr := cfg.Server.Addr
	if cfg.TLS.Enable {
		addr = ":8443"
	}
	server := &http.Server{
		Addr:        addr,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting on %s (tls=%v)", addr, cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert: %v", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received: %v", sig)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error: %v", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
