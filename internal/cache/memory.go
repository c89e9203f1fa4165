// Package cache holds signed URL cache backends.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dtroode/vaultdrop-server/internal/model"
)

var _ model.URLCache = (*Memory)(nil)

// Memory is a bounded in-process URL cache. When full, entries older than maxAge are
// dropped first, then the oldest entry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]model.CachedURL
	limit   int
	maxAge  time.Duration
	now     func() time.Time
}

// NewMemory creates a cache holding at most limit entries. maxAge is the age after which an
// entry can no longer be served and may be evicted.
func NewMemory(limit int, maxAge time.Duration, now func() time.Time) *Memory {
	if limit <= 0 {
		limit = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]model.CachedURL, limit),
		limit:   limit,
		maxAge:  maxAge,
		now:     now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (model.CachedURL, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	return e, ok
}

func (m *Memory) Set(_ context.Context, key string, entry model.CachedURL) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.limit {
		m.evictLocked()
	}
	m.entries[key] = entry
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictLocked() {
	now := m.now()

	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range m.entries {
		if now.Sub(e.IssuedAt) >= m.maxAge {
			delete(m.entries, k)
			continue
		}
		if oldestKey == "" || e.IssuedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.IssuedAt
		}
	}

	if len(m.entries) >= m.limit && oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
