// Package internal contains core application functionality
package internal

import (
	"fmt"
	"time"

	"github.com/karloscodes/cartridge"

	"sitepulse/internal/abuse"
	"sitepulse/internal/chstore"
	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/jobs"
)

// Application wraps cartridge.Application with sitepulse-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Store     *chstore.Store
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize the metadata database manager
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Connect to the analytics store
	store, err := chstore.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to analytics store: %w", err)
	}

	// Initialize background jobs
	tracker := abuse.NewTracker(dbManager.GetConnection(), logger,
		time.Duration(cfg.AbuseWindow())*time.Hour)
	scheduler, err := jobs.NewScheduler(dbManager, tracker, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutes(srv, store, tracker)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Store:       store,
	}, nil
}
