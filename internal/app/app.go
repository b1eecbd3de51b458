// Package app wires configuration into the stores and services shared by
// the server and the admin tool.
package app

import (
	"fmt"
	"log/slog"

	"github.com/dom/document-viewer/internal/config"
	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/repository/memory"
	"github.com/dom/document-viewer/internal/repository/postgres"
	"github.com/dom/document-viewer/internal/security"
	"github.com/dom/document-viewer/internal/service"
	"gorm.io/gorm/logger"
)

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Repos    *repository.Repositories
	Store    *docstore.Store
	Services *service.Services

	close func() error
}

// New opens the configured store. Call Close when done.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: log,
		Store:  docstore.New(cfg.PDFResultsDir, cfg.PDFsDir),
		close:  func() error { return nil },
	}

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit")
		a.Repos = memory.NewRepositories()
	case config.StorePostgres:
		level := logger.Warn
		if cfg.IsDevelopment() {
			level = logger.Info
		}
		db, err := postgres.NewConnection(cfg.DatabaseURL, level)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database handle: %w", err)
		}
		a.Repos = postgres.NewRepositories(db)
		a.close = sqlDB.Close
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	a.Services = service.NewServices(a.Repos, a.Store, security.NewHasher(security.PasswordCost), log)
	return a, nil
}

func (a *App) Close() error {
	return a.close()
}
