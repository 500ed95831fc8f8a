// Package store persists taxonomy documents as JSON blobs behind a small
// key-value repository interface.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelopt/taxonomy/internal/models"
)

// Memory keeps encoded documents in a map, so callers never share state
// with the store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) NewID() string {
	return newID()
}

func (m *Memory) Create(ctx context.Context, doc models.Document) (string, error) {
	id := m.NewID()
	if err := m.Upsert(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Document, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(data)
}

func (m *Memory) Upsert(_ context.Context, id string, doc models.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[id] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
