package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and redis-less development.
// The optional hooks inject failures so reconciliation error paths can be
// exercised.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]Document

	// PutHook, ListErr and DeleteErr, when set, veto the corresponding
	// operation before it touches the store.
	PutHook   func(id string) error
	ListErr   error
	DeleteErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) AllocateID() string {
	return uuid.NewString()
}

func (m *MemoryStore) Put(ctx context.Context, id string, doc Document) error {
	if m.PutHook != nil {
		if err := m.PutHook(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Every Document field is supplied by the caller and replaces the
	// stored value, empty or not. Merge semantics only protect fields
	// outside the document shape, which this twin does not carry.
	doc.ID = id
	m.docs[id] = doc
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Document, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Get returns the stored document and whether it exists. Test helper.
func (m *MemoryStore) Get(id string) (Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Len returns the number of stored documents. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
