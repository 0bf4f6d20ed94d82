package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/karmadocs/internal/api"
	"github.com/bilgisen/karmadocs/internal/config"
	"github.com/bilgisen/karmadocs/internal/engine"
	"github.com/bilgisen/karmadocs/internal/importer"
	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/middleware"
	"github.com/bilgisen/karmadocs/internal/remote"
	"github.com/bilgisen/karmadocs/internal/store"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting application...")

	// Local article cache
	cache, err := store.NewFileStore(cfg.CachePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize article cache")
	}

	// Remote article store. Construction never dials: a broken remote
	// must not prevent serving the local cache, so connection errors
	// surface per operation instead.
	remoteStore, err := remote.NewRedisStore(cfg.RedisURL, cfg.RedisPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid remote store configuration")
	}
	defer func() {
		log.Info().Msg("Closing remote store client...")
		if err := remoteStore.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing remote store client")
		}
	}()

	eng := engine.New(cache, remoteStore)
	fetcher := importer.NewFetcher(cfg.FeedBaseURL, cfg.FeedAccountID, cfg.FeedPortalSlug, cfg.FeedAccessToken)
	imp := importer.New(fetcher, cache, cfg.FeedMaxPages)

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Setup API routes
	api.SetupRoutes(app, cfg, eng, imp)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
