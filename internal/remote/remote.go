package remote

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a failure to reach the remote store. Operations
// that see it must leave the local cache untouched.
var ErrUnavailable = errors.New("remote store unavailable")

// Document is the remote representation of a published article. Only
// published work lives remotely; the remote store is authoritative once
// an article has been pushed.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Slug         string    `json:"slug"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
	LastSyncedAt string    `json:"lastSyncedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store is the remote document database, addressed by opaque string ids.
// Put has merge-write semantics: fields carried by the document are
// written, anything else already stored under the id is preserved.
type Store interface {
	// AllocateID returns a fresh canonical id. Allocation is local to the
	// client and does not touch the store until the first Put.
	AllocateID() string
	Put(ctx context.Context, id string, doc Document) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Document, error)
	Close() error
}
