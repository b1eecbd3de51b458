package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/document-viewer/internal/api"
	"github.com/dom/document-viewer/internal/app"
	"github.com/dom/document-viewer/internal/config"
	"github.com/dom/document-viewer/internal/logging"
	"github.com/dom/document-viewer/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if _, err := os.Stat(cfg.PDFResultsDir); err != nil {
		logger.Warn("documents directory is not readable", "path", cfg.PDFResultsDir, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Expired sessions are rejected on use; the sweeper only reclaims rows.
	sweeper := service.NewSessionSweeper(application.Services.Auth, cfg.SessionSweepInterval, logger)
	go sweeper.Run(ctx)

	router := api.NewRouter(application.Services, cfg, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store", cfg.Store,
			"documents_dir", cfg.PDFResultsDir,
			"pdfs_dir", cfg.PDFsDir,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
}
