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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"usecase-workflow/backend/internal/api"
	"usecase-workflow/backend/internal/config"
	"usecase-workflow/backend/internal/engine"
	"usecase-workflow/backend/internal/logging"
	"usecase-workflow/backend/internal/repository"
	"usecase-workflow/backend/internal/services"
	"usecase-workflow/backend/internal/tls"
)

func main() {
	var configFile string

	root := &cobra.Command{
		Use:          "usecase-workflow-server",
		Short:        "Updates use-case workflows and dispatches executions under republished versions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	root.Flags().StringVar(&configFile, "config", "", "Path to config file")

	if err := root.Execute(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, configFile string) error {
	// Initialize logging
	logger := logging.NewLogger()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}
	logger.Info("Configuration loaded",
		"db_host", cfg.DB.Host,
		"sfn_region", cfg.SFN.Region,
		"tls", cfg.TLS.Enable,
	)

	logger.Info("Starting Usecase Workflow Service")

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Initialize the Step Functions client
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SFN.Region))
	if err != nil {
		return fmt.Errorf("AWS configuration failed: %w", err)
	}
	sfnClient := sfn.NewFromConfig(awsCfg)

	// Initialize repository and service layers
	store := repository.NewPostgresUseCaseStore(dbPool)
	eng := engine.NewStepFunctions(sfnClient, cfg.SFN.RoleARN, cfg.SFN.VersionDescription)
	svc := services.NewUseCaseService(store, store, eng, engine.NewASLCompiler(), logger)

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("usecase-workflow"))

	// Mount REST API handlers
	e.GET("/healthz", api.HandleHealth)
	e.GET("/metrics", api.MetricsHandler())
	api.NewServer(svc, logger).RegisterRoutes(e.Group("/api/v1"))

	logger.Info("REST API handlers mounted")

	// Create HTTP server
	addr := cfg.Server.Addr
	if cfg.TLS.Enable {
		// use TLS port 8443
		addr = ":8443"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
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
						logger.Error("failed to generate self-signed cert", "error", err)
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
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
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
