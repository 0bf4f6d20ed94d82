package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutWritesSuppliedFields(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "doc-1", Document{Title: "First", Category: "Setup", Content: "<p>body</p>"}))
	require.NoError(t, m.Put(ctx, "doc-1", Document{Title: "Renamed", UpdatedAt: time.Now()}))

	doc, ok := m.Get("doc-1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", doc.Title)
	// Supplied-but-empty fields overwrite; a cleared value must not
	// resurrect the previous one.
	assert.Equal(t, "", doc.Category)
	assert.Equal(t, "", doc.Content)
}

func TestMemoryStoreAllocateIDIsCanonicalShaped(t *testing.T) {
	m := NewMemoryStore()
	a, b := m.AllocateID(), m.AllocateID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", Document{Title: "A"}))
	require.NoError(t, m.Put(ctx, "b", Document{Title: "B"}))
	require.NoError(t, m.Delete(ctx, "a"))
	// Deleting an absent id is a no-op.
	require.NoError(t, m.Delete(ctx, "a"))

	docs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}
