package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each published article as a redis hash under
// prefix+id. HSET writes only the fields it is given, which is exactly
// the merge-write contract. The client is not pinged at construction: a
// broken remote must never prevent local reads, so connectivity errors
// surface per operation instead.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if prefix == "" {
		prefix = "articles:"
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		prefix: prefix,
	}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) AllocateID() string {
	return uuid.NewString()
}

func (r *RedisStore) Put(ctx context.Context, id string, doc Document) error {
	// Every supplied field is written, empty or not; a cleared body must
	// clear the live document. HSET leaves hash fields outside this set
	// untouched, which is the merge contract.
	fields := map[string]interface{}{
		"title":        doc.Title,
		"content":      doc.Content,
		"slug":         doc.Slug,
		"category":     doc.Category,
		"status":       doc.Status,
		"lastSyncedAt": doc.LastSyncedAt,
		"updatedAt":    doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := r.client.HSet(ctx, r.prefix+id, fields).Err(); err != nil {
		return unavailable("write "+id, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	// Deleting an id with no document is a no-op, matching document
	// database semantics.
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return unavailable("delete "+id, err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]Document, error) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("scan", err)
	}

	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, unavailable("read "+key, err)
		}
		if len(fields) == 0 {
			// Deleted between scan and read.
			continue
		}
		docs = append(docs, docFromFields(strings.TrimPrefix(key, r.prefix), fields))
	}
	return docs, nil
}

func docFromFields(id string, fields map[string]string) Document {
	doc := Document{
		ID:           id,
		Title:        fields["title"],
		Content:      fields["content"],
		Slug:         fields["slug"],
		Category:     fields["category"],
		Status:       fields["status"],
		LastSyncedAt: fields["lastSyncedAt"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updatedAt"]); err == nil {
		doc.UpdatedAt = ts
	}
	return doc
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w", op, errors.Join(ErrUnavailable, err))
}
