package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bilgisen/karmadocs/internal/models"
)

// ErrNotFound is returned when no cached record matches a requested id.
// A save or push against an unknown id means the caller's in-memory state
// has drifted from the persisted cache, so this is surfaced, never
// swallowed.
var ErrNotFound = errors.New("article not found")

// schemaVersion is written into the cache file envelope so the on-disk
// format can evolve safely.
const schemaVersion = 1

type envelope struct {
	Version  int              `json:"version"`
	Articles []models.Article `json:"articles"`
}

// FileStore persists the full ordered article list as a single JSON file.
// Every write is a whole-file rewrite staged through a temp file and
// renamed into place, so a crash mid-write never corrupts the previous
// version. The mutex serializes writers; last write still wins across
// processes, which bounds this store to a single service instance and
// cache sizes where a full rewrite is cheap.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load returns the cached articles in stored order. A missing cache file
// is an empty cache, not an error.
func (s *FileStore) Load(ctx context.Context) ([]models.Article, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.readLocked()
	}
}

// ReplaceAll overwrites the cache wholesale with the given records.
func (s *FileStore) ReplaceAll(ctx context.Context, articles []models.Article) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.writeLocked(articles)
	}
}

// Upsert applies mutate to the first record whose id fuzzy-matches, then
// rewrites the cache. Returns ErrNotFound when nothing matches.
func (s *FileStore) Upsert(ctx context.Context, id models.ArticleID, mutate func(*models.Article)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		articles, err := s.readLocked()
		if err != nil {
			return err
		}

		found := false
		for i := range articles {
			if articles[i].ID.Equals(id) {
				mutate(&articles[i])
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("id %s: %w", id, ErrNotFound)
		}
		return s.writeLocked(articles)
	}
}

// Delete removes every record whose id fuzzy-matches and persists the
// result. Removing an id that is not present is not an error.
func (s *FileStore) Delete(ctx context.Context, id models.ArticleID) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		articles, err := s.readLocked()
		if err != nil {
			return err
		}

		kept := articles[:0]
		for _, a := range articles {
			if !a.ID.Equals(id) {
				kept = append(kept, a)
			}
		}
		return s.writeLocked(kept)
	}
}

// Append adds a record to the front of the cache, where the dashboard
// expects new drafts.
func (s *FileStore) Append(ctx context.Context, article models.Article) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		articles, err := s.readLocked()
		if err != nil {
			return err
		}
		articles = append([]models.Article{article}, articles...)
		return s.writeLocked(articles)
	}
}

func (s *FileStore) readLocked() ([]models.Article, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Article{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Article{}, nil
	}

	// Legacy caches are a bare JSON array with no envelope.
	if data[0] == '[' {
		var articles []models.Article
		if err := json.Unmarshal(data, &articles); err != nil {
			return nil, fmt.Errorf("failed to parse legacy cache file: %w", err)
		}
		return articles, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return env.Articles, nil
}

func (s *FileStore) writeLocked(articles []models.Article) error {
	if articles == nil {
		articles = []models.Article{}
	}
	data, err := json.MarshalIndent(envelope{Version: schemaVersion, Articles: articles}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".articles-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
