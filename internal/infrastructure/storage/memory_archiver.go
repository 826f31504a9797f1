package storage

import (
	"context"
	"sync"
	"time"

	importapp "github.com/erp/warehouse/internal/application/import"
	"github.com/erp/warehouse/internal/domain/shared"
)

// MemoryArchiver keeps archived uploads in memory. It backs development
// setups without object storage and tests.
type MemoryArchiver struct {
	// BaseURL prefixes generated download URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
	now     func() time.Time
}

// NewMemoryArchiver creates a MemoryArchiver
func NewMemoryArchiver() *MemoryArchiver {
	return &MemoryArchiver{
		BaseURL: "memory://archive",
		objects: make(map[string][]byte),
		now:     time.Now,
	}
}

var _ importapp.Archiver = (*MemoryArchiver)(nil)

// Archive stores a copy of data and returns its key
func (m *MemoryArchiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey("", m.now(), name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

// DownloadURL returns a pseudo URL for an archived key
func (m *MemoryArchiver) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, shared.NewValidationError("archive key is required")
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, shared.NewNotFoundError("archive", key)
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := m.now().Add(expiresIn)
	return m.BaseURL + "/" + key + "?expires=" + expiresAt.UTC().Format(time.RFC3339), expiresAt, nil
}

// Get returns the archived bytes for key
func (m *MemoryArchiver) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len returns the number of archived objects
func (m *MemoryArchiver) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
