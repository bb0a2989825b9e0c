package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process. It is used in tests and when no
// bucket is configured for local development.
type MemoryStorage struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "http://localhost/static"
	}
	return &MemoryStorage{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return m.PublicURL(key), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) PublicURL(key string) string {
	return joinURL(m.BaseURL, key)
}

// Object returns the stored bytes for key.
func (m *MemoryStorage) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

var _ ObjectStorage = (*MemoryStorage)(nil)
