package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/application/inventory"
)

// InMemoryKeyLocker serializes units of work within a single process.
// Each key is a one-slot channel; entries are reference counted and dropped
// once no holder or waiter refers to them.
type InMemoryKeyLocker struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
	timeout time.Duration
}

type keyEntry struct {
	slot chan struct{}
	refs int
}

// NewInMemoryKeyLocker creates an in-process locker. A positive timeout bounds
// how long Acquire waits for a whole key set.
func NewInMemoryKeyLocker(timeout time.Duration) *InMemoryKeyLocker {
	return &InMemoryKeyLocker{
		entries: make(map[string]*keyEntry),
		timeout: timeout,
	}
}

// Acquire takes every key in sorted order, blocking until all are held or
// ctx is done. On failure nothing stays held.
func (l *InMemoryKeyLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	keys = inventory.NormalizeKeys(keys)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		e := l.ref(key)
		select {
		case e.slot <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			l.releaseAll(held)
			return nil, acquireError(key, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held) })
	}, nil
}

// Held returns the number of keys with a live entry
func (l *InMemoryKeyLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *InMemoryKeyLocker) releaseAll(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		l.mu.Lock()
		e := l.entries[held[i]]
		l.mu.Unlock()
		<-e.slot
		l.unref(held[i])
	}
}

func (l *InMemoryKeyLocker) ref(key string) *keyEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *InMemoryKeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(l.entries, key)
	}
}

var _ inventory.KeyLocker = (*InMemoryKeyLocker)(nil)
