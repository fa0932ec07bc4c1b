// cmd/server/main.go
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

	_ "macscan/docs"
	"macscan/internal/config"
	"macscan/internal/database"
	"macscan/internal/engine"
	"macscan/internal/identify/esp"
	"macscan/internal/portlist"
	"macscan/internal/repository"
	"macscan/internal/routes"
	"macscan/internal/service"
	"macscan/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	// Engine
	engine *engine.Engine

	// Services
	monitorService *service.MonitorService
	exportService  *service.ExportService
	auditService   *service.AuditService

	// Repositories
	recordRepo repository.RecordRepository
}

// @title macscan API
// @version 1.0.0
// @description Serial port MAC identification service: discovers attached
// @description microcontroller ports, reads their hardware MAC over the
// @description bootloader and serves the results.

// @host localhost:8086
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "macscan")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initializeEngine(); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeStorage sets up the optional audit store and runs migrations
func (app *Application) initializeStorage() error {
	if !app.config.Storage.Enabled {
		app.logger.Info("Audit store disabled, running in-memory only")
		return nil
	}

	db, err := database.NewConnection(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.recordRepo = repository.NewRecordRepository(db, app.logger)

	app.logger.Info("Storage initialized successfully")
	return nil
}

// initializeEngine builds the port lister, the identifier and the scan engine
func (app *Application) initializeEngine() error {
	lister, err := portlist.NewSerialLister(
		app.config.Scan.IncludePatterns,
		app.config.Scan.ExcludePatterns,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create port lister: %w", err)
	}

	identifier := esp.NewIdentifier(&esp.Config{
		BaudRate: app.config.Identify.BaudRate,
		Timeout:  app.config.Identify.Timeout,
		SyncMax:  app.config.Identify.SyncMax,
	}, app.logger)

	app.engine = engine.New(app.config, lister, identifier, app.logger)

	app.logger.Info("Engine initialized successfully",
		zap.Duration("poll_interval", app.config.Scan.PollInterval),
		zap.Int("workers", app.config.Scan.Workers),
		zap.Int("max_attempts", app.config.Scan.MaxAttempts),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	app.monitorService = service.NewMonitorService(
		app.engine,
		app.recordRepo,
		app.config,
		app.logger,
	)

	app.exportService = service.NewExportService(app.engine.Registry(), app.logger)

	if app.recordRepo != nil {
		app.auditService = service.NewAuditService(app.engine.Registry(), app.recordRepo, app.logger)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.auditService.LoadHistory(ctx); err != nil {
			// History is nice to have; a cold registry is not fatal.
			app.logger.Warn("Failed to load scan history", zap.Error(err))
		}
	}

	app.logger.Info("Services initialized successfully")
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.monitorService,
		app.exportService,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// Start runs the engine and the HTTP server until a shutdown signal
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	if app.auditService != nil {
		app.auditService.Start()
	}
	app.engine.Start()

	app.waitForShutdown()
	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "macscan")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Stop discovery and cancel outstanding identification jobs first so no
	// job outlives the engine.
	app.engine.Stop()

	if app.auditService != nil {
		app.auditService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
