package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/models"
	"github.com/bilgisen/karmadocs/internal/remote"
	"github.com/bilgisen/karmadocs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Config{Level: "error", Output: "stderr"})
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T) (*Engine, *store.FileStore, *remote.MemoryStore) {
	t.Helper()
	cache, err := store.NewFileStore(filepath.Join(t.TempDir(), "articles.json"))
	require.NoError(t, err)
	remoteStore := remote.NewMemoryStore()
	return New(cache, remoteStore), cache, remoteStore
}

func seed(t *testing.T, cache *store.FileStore, articles ...models.Article) {
	t.Helper()
	require.NoError(t, cache.ReplaceAll(context.Background(), articles))
}

func TestSaveLocalMarksStaged(t *testing.T) {
	eng, cache, _ := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{
		ID:       models.TempID(1001),
		Title:    "Getting Started",
		Content:  "<p>hi</p>",
		Category: "Getting Started",
	})

	err := eng.SaveLocal(ctx, models.TempID(1001), "<p>hello</p>", "Getting Started", "Getting Started", "Jan 1")
	require.NoError(t, err)

	articles, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "<p>hello</p>", articles[0].Content)
	assert.True(t, articles[0].LocalModified)
	assert.Equal(t, "Jan 1", articles[0].LastModified)
}

func TestSaveLocalFuzzyMatchesStringForm(t *testing.T) {
	eng, cache, _ := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{ID: models.TempID(7), Title: "Seven"})

	// String-form "7" must find the numeric record.
	err := eng.SaveLocal(ctx, models.NewID("7"), "<p>x</p>", "Seven", "", "")
	require.NoError(t, err)

	articles, _ := cache.Load(ctx)
	assert.Equal(t, "<p>x</p>", articles[0].Content)
}

func TestSaveLocalUnknownIDSurfaces(t *testing.T) {
	eng, cache, _ := newTestEngine(t)
	seed(t, cache, models.Article{ID: models.TempID(1)})

	err := eng.SaveLocal(context.Background(), models.TempID(404), "", "t", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPushLivePromotesIdentity(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{
		ID:            models.TempID(1001),
		Title:         "Getting Started",
		Content:       "<p>hello</p>",
		Category:      "Getting Started",
		LocalModified: true,
	})

	res, err := eng.PushLive(ctx, models.TempID(1001), "Getting Started", "<p>hello</p>", "", "Getting Started")
	require.NoError(t, err)
	require.NotEmpty(t, res.CanonicalID)
	assert.True(t, res.CacheUpdated)
	assert.True(t, models.NewID(res.CanonicalID).IsCanonical())

	// Remote store gained exactly one document with the derived slug.
	assert.Equal(t, 1, remoteStore.Len())
	doc, ok := remoteStore.Get(res.CanonicalID)
	require.True(t, ok)
	assert.Equal(t, "getting-started", doc.Slug)
	assert.Equal(t, "published", doc.Status)

	// The temporary id must never resolve again.
	err = cache.Upsert(ctx, models.TempID(1001), func(a *models.Article) {})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Exactly one record now carries the canonical id, live and clean.
	articles, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.True(t, articles[0].ID.Equals(models.NewID(res.CanonicalID)))
	assert.True(t, articles[0].PushedToLive)
	assert.False(t, articles[0].LocalModified)
	assert.Equal(t, res.LastSyncedAt, articles[0].LastSyncedAt)
}

func TestPushLiveIdempotentForCanonicalID(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	canonical := models.NewID("doc-1")
	seed(t, cache, models.Article{ID: canonical, Title: "Live", PushedToLive: true})

	first, err := eng.PushLive(ctx, canonical, "Live", "<p>a</p>", "live", "")
	require.NoError(t, err)

	eng.now = func() time.Time { return time.Now().Add(time.Hour) }
	second, err := eng.PushLive(ctx, canonical, "Live", "<p>a</p>", "live", "")
	require.NoError(t, err)

	assert.Equal(t, first.CanonicalID, second.CanonicalID)
	assert.NotEqual(t, first.LastSyncedAt, second.LastSyncedAt)
	assert.Equal(t, 1, remoteStore.Len(), "re-push must never create a new document")

	articles, _ := cache.Load(ctx)
	assert.Equal(t, second.LastSyncedAt, articles[0].LastSyncedAt)
}

func TestPushLiveClearedFieldsClearRemotely(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	id := models.NewID("doc-9")
	seed(t, cache, models.Article{ID: id, Title: "Title", PushedToLive: true})
	first, err := eng.PushLive(ctx, id, "Title", "<p>old</p>", "slug", "Integrations")
	require.NoError(t, err)

	// Emptying the body and re-pushing must empty the live document;
	// keeping the old content while reporting success would be a silent
	// local/remote divergence.
	eng.now = func() time.Time { return time.Now().Add(time.Hour) }
	second, err := eng.PushLive(ctx, id, "Title", "", "slug", "")
	require.NoError(t, err)

	doc, ok := remoteStore.Get("doc-9")
	require.True(t, ok)
	assert.Equal(t, "", doc.Content)
	assert.Equal(t, "", doc.Category)
	assert.Equal(t, "Title", doc.Title)
	assert.NotEqual(t, first.LastSyncedAt, second.LastSyncedAt)
	assert.Equal(t, second.LastSyncedAt, doc.LastSyncedAt)
}

// failingCache wraps a real store but rejects the post-push rewrite.
type failingCache struct {
	*store.FileStore
	failUpsert bool
}

func (f *failingCache) Upsert(ctx context.Context, id models.ArticleID, mutate func(*models.Article)) error {
	if f.failUpsert {
		return fmt.Errorf("disk full")
	}
	return f.FileStore.Upsert(ctx, id, mutate)
}

func TestPushLiveSucceedsWhenCacheUpdateFails(t *testing.T) {
	fileStore, err := store.NewFileStore(filepath.Join(t.TempDir(), "articles.json"))
	require.NoError(t, err)
	cache := &failingCache{FileStore: fileStore, failUpsert: true}
	remoteStore := remote.NewMemoryStore()
	eng := New(cache, remoteStore)

	res, err := eng.PushLive(context.Background(), models.TempID(5), "Title", "<p>x</p>", "", "")
	require.NoError(t, err, "remote write is the success criterion")
	assert.False(t, res.CacheUpdated)
	assert.Equal(t, 1, remoteStore.Len())
}

func TestPushLiveRemoteFailureAborts(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{ID: models.TempID(1), Title: "T", LocalModified: true})
	remoteStore.PutHook = func(id string) error { return remote.ErrUnavailable }

	_, err := eng.PushLive(ctx, models.TempID(1), "T", "", "", "")
	require.Error(t, err)

	// The cache must be untouched: still staged under the temp id.
	articles, _ := cache.Load(ctx)
	require.Len(t, articles, 1)
	assert.True(t, articles[0].ID.Equals(models.TempID(1)))
	assert.True(t, articles[0].LocalModified)
	assert.False(t, articles[0].PushedToLive)
}

func TestPushSelectedContinuesPastFailures(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache,
		models.Article{ID: models.TempID(1), Title: "One"},
		models.Article{ID: models.TempID(2), Title: "Two"},
		models.Article{ID: models.TempID(3), Title: "Three"},
	)

	var allocated []string
	remoteStore.PutHook = func(id string) error {
		allocated = append(allocated, id)
		if len(allocated) == 2 {
			return fmt.Errorf("rejected by store")
		}
		return nil
	}

	results := eng.PushSelected(ctx, []models.ArticleID{
		models.TempID(1), models.TempID(2), models.TempID(3),
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	// Records 1 and 3 are live, record 2 stays under its temp id.
	articles, _ := cache.Load(ctx)
	live := 0
	for _, a := range articles {
		if a.PushedToLive {
			live++
		}
	}
	assert.Equal(t, 2, live)

	var second *models.Article
	for i := range articles {
		if articles[i].ID.Equals(models.TempID(2)) {
			second = &articles[i]
		}
	}
	require.NotNil(t, second)
	assert.False(t, second.PushedToLive)
}

func TestDeleteRemovesFromBothStores(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	id := models.NewID("doc-del")
	require.NoError(t, remoteStore.Put(ctx, "doc-del", remote.Document{Title: "x"}))
	seed(t, cache, models.Article{ID: id, PushedToLive: true})

	require.NoError(t, eng.Delete(ctx, id))

	assert.Equal(t, 0, remoteStore.Len())
	articles, _ := cache.Load(ctx)
	assert.Empty(t, articles)
}

func TestDeleteRemoteFailureKeepsLocalRecord(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	id := models.NewID("doc-live")
	require.NoError(t, remoteStore.Put(ctx, "doc-live", remote.Document{Title: "x"}))
	seed(t, cache, models.Article{ID: id, PushedToLive: true})
	remoteStore.DeleteErr = remote.ErrUnavailable

	err := eng.Delete(ctx, id)
	require.Error(t, err)

	// No local-only deletion of a still-live remote document.
	articles, _ := cache.Load(ctx)
	require.Len(t, articles, 1)
}

func TestDeleteTemporaryIDSkipsRemote(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{ID: models.TempID(9), LocalModified: true})
	remoteStore.DeleteErr = remote.ErrUnavailable // would fail if touched

	require.NoError(t, eng.Delete(ctx, models.TempID(9)))

	articles, _ := cache.Load(ctx)
	assert.Empty(t, articles)
}

func TestResyncOverwritesDrafts(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, remoteStore.Put(ctx, "doc-a", remote.Document{Title: "Published"}))
	seed(t, cache,
		models.Article{ID: models.TempID(1), Title: "Staged draft", LocalModified: true},
	)

	articles, err := eng.Resync(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Published", articles[0].Title)
	assert.True(t, articles[0].PushedToLive)
	assert.False(t, articles[0].LocalModified)

	// The staged record is gone; that is the documented contract.
	cached, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "Published", cached[0].Title)
}

func TestResyncFailureLeavesCacheIntact(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{ID: models.TempID(1), Title: "Draft", LocalModified: true})
	remoteStore.ListErr = remote.ErrUnavailable

	_, err := eng.Resync(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrUnavailable))

	articles, _ := cache.Load(ctx)
	require.Len(t, articles, 1)
	assert.Equal(t, "Draft", articles[0].Title)
}

func TestCreateDraft(t *testing.T) {
	eng, cache, _ := newTestEngine(t)
	ctx := context.Background()

	article, err := eng.CreateDraft(ctx, "", "Getting Started")
	require.NoError(t, err)
	assert.Equal(t, "Untitled New Article", article.Title)
	assert.False(t, article.ID.IsCanonical())
	assert.True(t, article.LocalModified)

	// The draft is durable: the very next save must find it.
	err = eng.SaveLocal(ctx, article.ID, "<p>first words</p>", article.Title, article.Category, "")
	require.NoError(t, err)

	articles, _ := cache.Load(ctx)
	require.Len(t, articles, 1)
	assert.Equal(t, "<p>first words</p>", articles[0].Content)
}

// Full lifecycle: import-shaped record, local edit, then first publish.
func TestGettingStartedScenario(t *testing.T) {
	eng, cache, remoteStore := newTestEngine(t)
	ctx := context.Background()

	seed(t, cache, models.Article{
		ID:       models.TempID(1001),
		Title:    "Getting Started",
		Content:  "<p>hi</p>",
		Category: "Getting Started",
	})

	require.NoError(t, eng.SaveLocal(ctx, models.TempID(1001), "<p>hello</p>", "Getting Started", "Getting Started", "Jan 1"))

	articles, _ := cache.Load(ctx)
	assert.Equal(t, "<p>hello</p>", articles[0].Content)
	assert.True(t, articles[0].LocalModified)

	res, err := eng.PushLive(ctx, models.TempID(1001), "Getting Started", "<p>hello</p>", "", "Getting Started")
	require.NoError(t, err)

	assert.Equal(t, 1, remoteStore.Len())
	doc, _ := remoteStore.Get(res.CanonicalID)
	assert.Equal(t, "getting-started", doc.Slug)

	articles, _ = cache.Load(ctx)
	require.Len(t, articles, 1)
	assert.True(t, articles[0].ID.Equals(models.NewID(res.CanonicalID)))
	assert.True(t, articles[0].PushedToLive)
	assert.False(t, articles[0].LocalModified)
}
