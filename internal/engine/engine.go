package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/models"
	"github.com/bilgisen/karmadocs/internal/remote"
)

// humanTime is the human-readable timestamp format shown in the dashboard
// next to saved and synced articles.
const humanTime = "Jan 2, 2006 3:04 PM"

// CacheStore is the local article cache the engine reconciles against.
// It is the unit of durability for drafts and a possibly stale view of
// published work.
type CacheStore interface {
	Load(ctx context.Context) ([]models.Article, error)
	ReplaceAll(ctx context.Context, articles []models.Article) error
	Upsert(ctx context.Context, id models.ArticleID, mutate func(*models.Article)) error
	Delete(ctx context.Context, id models.ArticleID) error
	Append(ctx context.Context, article models.Article) error
}

// RemoteStore is the authoritative store for published articles.
type RemoteStore interface {
	AllocateID() string
	Put(ctx context.Context, id string, doc remote.Document) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]remote.Document, error)
}

// Engine applies local edits, pushes articles live, deletes, and resyncs,
// keeping the cache a valid superset view of published work plus drafts.
type Engine struct {
	cache  CacheStore
	remote RemoteStore
	now    func() time.Time
}

func New(cache CacheStore, remoteStore RemoteStore) *Engine {
	return &Engine{
		cache:  cache,
		remote: remoteStore,
		now:    time.Now,
	}
}

// PushResult reports the outcome of a single push. CacheUpdated is false
// when the remote write succeeded but the local rewrite did not; the push
// still counts as a success because the remote store is authoritative.
type PushResult struct {
	CanonicalID  string
	LastSyncedAt string
	CacheUpdated bool
}

// ItemResult is the per-article outcome of a bulk push.
type ItemResult struct {
	ID          models.ArticleID
	CanonicalID string
	Err         error
}

// List returns the cached articles without touching the remote store.
func (e *Engine) List(ctx context.Context) ([]models.Article, error) {
	return e.cache.Load(ctx)
}

// CreateDraft adds a new draft to the cache under a fresh temporary id.
func (e *Engine) CreateDraft(ctx context.Context, title, category string) (models.Article, error) {
	if title == "" {
		title = "Untitled New Article"
	}
	article := models.Article{
		ID:            models.NewTempID(),
		Title:         title,
		Category:      category,
		LocalModified: true,
		LastModified:  e.now().Format(humanTime),
	}
	if err := e.cache.Append(ctx, article); err != nil {
		return models.Article{}, fmt.Errorf("failed to create draft: %w", err)
	}
	logger.Get().Info().
		Str("id", article.ID.String()).
		Str("title", title).
		Msg("Draft created")
	return article, nil
}

// SaveLocal merges an edit into the matching cached record and marks it
// staged. An unknown id surfaces as an error because it means the
// caller's state has drifted from the cache.
func (e *Engine) SaveLocal(ctx context.Context, id models.ArticleID, content, title, category, lastModified string) error {
	if lastModified == "" {
		lastModified = e.now().Format(humanTime)
	}
	err := e.cache.Upsert(ctx, id, func(a *models.Article) {
		a.Content = content
		a.Title = title
		a.Category = category
		a.LastModified = lastModified
		a.LocalModified = true
	})
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	logger.Get().Debug().
		Str("id", id.String()).
		Msg("Draft saved locally")
	return nil
}

// PushLive publishes one article to the remote store, then best-effort
// updates the cache to carry the canonical id and live flags. The remote
// write is the success criterion: a cache update failure is logged and
// reported in the result, not returned as an error.
func (e *Engine) PushLive(ctx context.Context, id models.ArticleID, title, content, slug, category string) (PushResult, error) {
	log := logger.Get()

	canonicalID := id.String()
	if !id.IsCanonical() {
		canonicalID = e.remote.AllocateID()
	}

	now := e.now()
	syncedAt := now.Format(humanTime)

	doc := remote.Document{
		Title:        title,
		Content:      content,
		Slug:         normalizeSlug(slug, title),
		Category:     category,
		Status:       "published",
		LastSyncedAt: syncedAt,
		UpdatedAt:    now,
	}
	if err := e.remote.Put(ctx, canonicalID, doc); err != nil {
		return PushResult{}, fmt.Errorf("push failed: %w", err)
	}

	log.Info().
		Str("id", id.String()).
		Str("canonical_id", canonicalID).
		Msg("Article pushed live")

	// Promote the id in the cache: a single whole-file rewrite replaces
	// every use of the temporary id, which must never resolve again.
	result := PushResult{CanonicalID: canonicalID, LastSyncedAt: syncedAt, CacheUpdated: true}
	err := e.cache.Upsert(ctx, id, func(a *models.Article) {
		a.ID = models.NewID(canonicalID)
		a.PushedToLive = true
		a.LocalModified = false
		a.LastSyncedAt = syncedAt
	})
	if err != nil {
		result.CacheUpdated = false
		log.Warn().
			Err(err).
			Str("canonical_id", canonicalID).
			Msg("Remote push succeeded but local cache update failed")
	}
	return result, nil
}

// PushSelected pushes each listed article in turn. A failure on one
// record never aborts the batch; every record gets its own result.
func (e *Engine) PushSelected(ctx context.Context, ids []models.ArticleID) []ItemResult {
	log := logger.Get()
	start := e.now()

	results := make([]ItemResult, 0, len(ids))
	failed := 0
	for _, id := range ids {
		articles, err := e.cache.Load(ctx)
		if err != nil {
			results = append(results, ItemResult{ID: id, Err: err})
			failed++
			continue
		}

		var match *models.Article
		for i := range articles {
			if articles[i].ID.Equals(id) {
				match = &articles[i]
				break
			}
		}
		if match == nil {
			results = append(results, ItemResult{ID: id, Err: fmt.Errorf("id %s not in cache", id)})
			failed++
			continue
		}

		res, err := e.PushLive(ctx, id, match.Title, match.Content, match.Slug, match.Category)
		if err != nil {
			results = append(results, ItemResult{ID: id, Err: err})
			failed++
			continue
		}
		results = append(results, ItemResult{ID: id, CanonicalID: res.CanonicalID})
	}

	log.Info().
		Int("total", len(ids)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Finished bulk push")
	return results
}

// Delete removes an article from both stores. A canonical id is deleted
// remotely first, and a remote failure aborts the whole operation so a
// still-live document is never left without a local trace.
func (e *Engine) Delete(ctx context.Context, id models.ArticleID) error {
	if id.IsCanonical() {
		if err := e.remote.Delete(ctx, id.String()); err != nil {
			return fmt.Errorf("remote delete failed: %w", err)
		}
	}
	if err := e.cache.Delete(ctx, id); err != nil {
		return fmt.Errorf("local delete failed: %w", err)
	}
	logger.Get().Info().
		Str("id", id.String()).
		Msg("Article deleted")
	return nil
}

// Resync replaces the cache wholesale with the remote store's current
// contents. Drafts and staged edits not yet pushed are lost; that is the
// contract, and the confirmation gate belongs at the caller. A remote
// failure leaves the cache untouched.
func (e *Engine) Resync(ctx context.Context) ([]models.Article, error) {
	log := logger.Get()

	docs, err := e.remote.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("resync failed: %w", err)
	}

	if current, loadErr := e.cache.Load(ctx); loadErr == nil {
		unsynced := 0
		for _, a := range current {
			if !a.PushedToLive {
				unsynced++
			}
		}
		if unsynced > 0 {
			log.Warn().
				Int("unsynced", unsynced).
				Msg("Resync is discarding local records never pushed live")
		}
	}

	articles := make([]models.Article, 0, len(docs))
	for _, doc := range docs {
		articles = append(articles, models.Article{
			ID:            models.NewID(doc.ID),
			Title:         doc.Title,
			Content:       doc.Content,
			Slug:          doc.Slug,
			Category:      doc.Category,
			Status:        doc.Status,
			LastSyncedAt:  doc.LastSyncedAt,
			PushedToLive:  true,
			LocalModified: false,
		})
	}
	if err := e.cache.ReplaceAll(ctx, articles); err != nil {
		return nil, fmt.Errorf("failed to rewrite cache after resync: %w", err)
	}

	log.Info().
		Int("articles", len(articles)).
		Msg("Cache rebuilt from remote store")
	return articles, nil
}
