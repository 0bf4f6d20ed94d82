package main

import (
	"context"
	"os"

	"github.com/bilgisen/karmadocs/internal/config"
	"github.com/bilgisen/karmadocs/internal/importer"
	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/store"
)

// One-shot import job: pages through the help-center feed, converts each
// article body to HTML, and seeds the local cache. Runs offline, never
// concurrently with the API server's live operations.
func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()

	if cfg.FeedBaseURL == "" {
		log.Fatal().Msg("FEED_BASE_URL is required for the import job")
	}

	cache, err := store.NewFileStore(cfg.CachePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize article cache")
	}

	fetcher := importer.NewFetcher(cfg.FeedBaseURL, cfg.FeedAccountID, cfg.FeedPortalSlug, cfg.FeedAccessToken)
	imp := importer.New(fetcher, cache, cfg.FeedMaxPages)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ImportTimeout)
	defer cancel()

	count, err := imp.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Import failed, cache left untouched")
		os.Exit(1)
	}

	log.Info().Int("articles", count).Str("cache", cfg.CachePath).Msg("Import complete")
}
