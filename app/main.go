package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trailmark/city-enrichment/app/api"
	"github.com/trailmark/city-enrichment/app/cfg"
	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/enrichment"
	"github.com/trailmark/city-enrichment/app/geodata"
	"github.com/trailmark/city-enrichment/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting City Enrichment server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	placeCache := geodata.NewCache(appCfg.PlacesDir)
	if err := placeCache.Run(); err != nil {
		slog.Error("Failed to load place definitions", "error", err)
		os.Exit(1)
	}
	slog.Info("Place definitions loaded", "count", placeCache.GetDefinitionCount())

	placeRepo := database.NewPlaceRepository(db)
	contentRepo := database.NewContentRepository(db)
	logRepo := database.NewLogRepository(db)

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	httpClient := &http.Client{Timeout: fetchTimeout}

	enricher := enrichment.NewEnricher(
		placeRepo, contentRepo, logRepo,
		enrichment.NewURLBuilder(appCfg.WikipediaBaseURL),
		enrichment.NewPageFetcher(httpClient, appCfg.UserAgent, fetchTimeout),
		enrichment.NewExtractor())

	scheduler := tasks.NewScheduler(placeCache, placeRepo, enricher)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	apiHandler := api.NewHandler(placeCache, placeRepo, enricher, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
