package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"

	httpapi "github.com/i474232898/site-analytics/internal/api/http"
	"github.com/i474232898/site-analytics/internal/config"
	"github.com/i474232898/site-analytics/internal/enrich"
	"github.com/i474232898/site-analytics/internal/importer"
	"github.com/i474232898/site-analytics/internal/ingest"
	"github.com/i474232898/site-analytics/internal/logging"
	"github.com/i474232898/site-analytics/internal/metrics"
	"github.com/i474232898/site-analytics/internal/scheduler"
	"github.com/i474232898/site-analytics/internal/store"
	"github.com/i474232898/site-analytics/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr := logging.New(cfg.IsDevelopment(), cfg.LogLevel)

	// Shared HTTP client for the outbound weather request.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	collector := metrics.New()
	cache := store.NewSessionCache()
	tracker := importer.NewTracker()
	hub := importer.NewHub()

	// KNMI hourly history with resilience (backoff + circuit breaker).
	knmi := providers.NewKNMIProvider(httpClient, cfg.WeatherURL, logr)

	pipeline := importer.NewPipeline(importer.Deps{
		Ingestor: ingest.New(logr),
		Enricher: enrich.New(knmi, logr),
		Cache:    cache,
		Tracker:  tracker,
		Hub:      hub,
		Metrics:  collector,
		Log:      logr,
		Timeout:  cfg.ImportTimeout,
	})

	sessions := session.New(session.Config{
		Expiration: cfg.SessionTTL,
	})

	// Scheduler that evicts views of expired sessions.
	sched := scheduler.New(scheduler.Options{
		Cache:             cache,
		Oracle:            store.NewStorageOracle(sessions.Storage),
		Tracker:           tracker,
		Metrics:           collector,
		Log:               logr,
		ReconcileInterval: cfg.ReconcileInterval,
		ReportInterval:    cfg.CacheReportInterval,
	})
	if err := sched.Start(); err != nil {
		logr.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "site-analytics",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             cfg.UploadMaxBytes,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "site-analytics",
			"views":   cache.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Sessions:  sessions,
		Cache:     cache,
		Pipeline:  pipeline,
		Tracker:   tracker,
		Hub:       hub,
		Metrics:   collector,
		UploadDir: cfg.UploadDir,
		Log:       logr,
	})

	go func() {
		logr.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logr.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	<-ctx.Done()

	// Event streams only end when the hub closes.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error().Err(err).Msg("error during shutdown")
	}
	pipeline.Close()
}
