// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "pyrometer-service/docs"
	"pyrometer-service/internal/config"
	"pyrometer-service/internal/database"
	"pyrometer-service/internal/driver"
	"pyrometer-service/internal/protocol"
	"pyrometer-service/internal/repository"
	"pyrometer-service/internal/routes"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

const cleanupInterval = time.Hour

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB
	router   *routes.Router
	eventBus *service.EventBus

	// Services
	pyrometerService *service.PyrometerService
	operationService *service.OperationService
	discoveryService *service.DiscoveryService

	// Repositories
	operationRepo repository.OperationRepository

	// Background tasks
	background context.Context
	cancel     context.CancelFunc
}

// @title Pyrometer Service API
// @version 1.0.0
// @description Optris CS Laser pyrometer service: serial session, temperature polling and journaled device commands

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "path to config file")
	migrateDown := flag.Bool("migrate-down", false, "roll back all journal migrations and exit")
	flag.Parse()

	if *migrateDown {
		if err := rollbackMigrations(*configPath); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// rollbackMigrations drops the journal schema
func rollbackMigrations(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !cfg.Database.Enabled {
		return errors.New("database is disabled")
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.CloseLogger(logger)

	return database.NewMigrator(cfg.GetDatabaseURL(), cfg.Database.MigrationsPath, logger).Down()
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "pyrometer-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.Device)

	background, cancel := context.WithCancel(context.Background())
	app := &Application{
		config:     cfg,
		logger:     logger,
		background: background,
		cancel:     cancel,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()
	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initializeServer()

	return app, nil
}

// initializeDatabase sets up database connection and runs migrations. With
// the database disabled the journal is kept in memory.
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, using in-memory operation journal")
		return nil
	}

	migrator := database.NewMigrator(app.config.GetDatabaseURL(), app.config.Database.MigrationsPath, app.logger)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("journal schema version %d is dirty", version)
	}
	app.logger.Info("Journal schema ready", zap.Uint("version", version))

	db, err := database.NewConnection(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() {
	if app.database != nil {
		app.operationRepo = repository.NewOperationRepository(app.database, app.logger)
	} else {
		app.operationRepo = repository.NewMemoryOperationRepository()
	}

	app.logger.Info("Repositories initialized successfully")
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	app.eventBus = service.NewEventBus(app.logger)

	registry := driver.NewRegistry(app.logger)
	driver.RegisterDefaultDrivers(registry, app.logger)

	session, err := registry.CreateDriver(driver.Config{
		DeviceID:         app.config.Device.ID,
		Model:            app.config.Device.Model,
		Serial:           app.serialConfig(),
		FlushOnShortRead: app.config.Device.FlushOnShortRead,
	})
	if err != nil {
		return err
	}

	app.pyrometerService = service.NewPyrometerService(
		app.config,
		session,
		app.operationRepo,
		app.eventBus,
		app.logger,
	)

	app.operationService = service.NewOperationService(
		app.operationRepo,
		app.config,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(app.logger)

	app.logger.Info("Services initialized successfully")
	return nil
}

// serialConfig converts the configured line parameters
func (app *Application) serialConfig() *protocol.SerialConfig {
	serial := app.config.Device.Serial
	return &protocol.SerialConfig{
		BaudRate:    serial.BaudRate,
		DataBits:    serial.DataBits,
		StopBits:    serial.StopBits,
		Parity:      serial.Parity,
		FlowControl: serial.FlowControl,
		Timeout:     serial.Timeout,
	}
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	app.router = routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.pyrometerService,
		app.operationService,
		app.discoveryService,
		app.eventBus,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      app.router.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.eventBus.Start()
	go app.router.WebSocketHandler().Run(app.background)
	go app.operationService.RunCleanup(app.background, cleanupInterval)

	if app.config.Device.AutoConnect {
		go app.autoConnect()
	}

	app.logger.Info("Background services started")
}

// autoConnect connects to the configured port once at startup
func (app *Application) autoConnect() {
	ctx, cancel := context.WithTimeout(app.background, 30*time.Second)
	defer cancel()

	if err := app.pyrometerService.Connect(ctx, app.config.Device.Port); err != nil {
		app.logger.Error("Auto-connect failed",
			zap.String("port", app.config.Device.Port),
			zap.Error(err),
		)
		return
	}

	app.logger.Info("Auto-connected to pyrometer", zap.String("port", app.config.Device.Port))
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
	serviceLogger := utils.NewServiceLogger(app.logger, "pyrometer-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		utils.LogError(app.logger, "HTTP server shutdown error", err)
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Stop polling and release the serial port
	if err := app.pyrometerService.Close(); err != nil {
		utils.LogError(app.logger, "Pyrometer disconnect error", err,
			zap.String("device_id", app.pyrometerService.DeviceID()),
		)
	}

	app.cancel()
	app.eventBus.Close()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			utils.LogError(app.logger, "Database close error", err)
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()
	app.waitForShutdown()

	return nil
}
