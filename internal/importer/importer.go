package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/models"
	"github.com/bilgisen/karmadocs/internal/utils"
)

// DefaultMaxPages bounds pagination so a misbehaving or endless feed
// still terminates.
const DefaultMaxPages = 50

// CacheSeeder is the slice of the local cache the importer needs.
type CacheSeeder interface {
	ReplaceAll(ctx context.Context, articles []models.Article) error
}

// Importer seeds the local cache from the help-center feed: it pages
// through the source, converts each markdown body to HTML, and replaces
// the cache wholesale on success only. A failure mid-pagination aborts
// with no partial write, and the job never interleaves with live
// reconciliation operations.
type Importer struct {
	fetcher  *Fetcher
	cache    CacheSeeder
	maxPages int
}

func New(fetcher *Fetcher, cache CacheSeeder, maxPages int) *Importer {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Importer{
		fetcher:  fetcher,
		cache:    cache,
		maxPages: maxPages,
	}
}

// Run executes one full import and returns the number of articles
// written to the cache.
func (i *Importer) Run(ctx context.Context) (int, error) {
	log := logger.Get()
	start := time.Now()
	log.Info().Int("max_pages", i.maxPages).Msg("Starting article import")

	// Feeds have been seen repeating items across page boundaries, so
	// dedupe by a hash of the item identity.
	seen := make(map[string]struct{})
	var articles []models.Article

	for page := 1; page <= i.maxPages; page++ {
		items, err := i.fetcher.FetchPage(ctx, page)
		if err != nil {
			return 0, fmt.Errorf("import aborted at page %d: %w", page, err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			key := utils.Hash(fmt.Sprintf("%d:%s", item.ID, item.Slug))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			html, err := toHTML(item.Content)
			if err != nil {
				return 0, fmt.Errorf("import aborted on article %d: %w", item.ID, err)
			}
			articles = append(articles, models.Article{
				ID:          models.TempID(item.ID),
				Title:       item.Title,
				Content:     html,
				Slug:        item.Slug,
				Description: item.Description,
				Status:      item.Status,
				CategoryID:  item.CategoryID,
			})
		}

		log.Info().
			Int("page", page).
			Int("total", len(articles)).
			Msg("Page converted")
	}

	if err := i.cache.ReplaceAll(ctx, articles); err != nil {
		return 0, fmt.Errorf("failed to seed cache: %w", err)
	}

	log.Info().
		Int("articles", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Import finished")
	return len(articles), nil
}
