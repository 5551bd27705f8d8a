package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"repolens/internal/config"
	"repolens/internal/models"
)

// Store is the result cache contract, keyed by repository full name.
// Get returns (nil, nil) for absent or expired entries; an expired entry
// is evicted as a side effect of the read. Set recomputes expiry from
// the current time and enforces the entry cap by evicting the oldest
// entries by creation timestamp. This is a bounded store, not a true
// LRU: reads do not refresh recency.
type Store interface {
	Get(ctx context.Context, fullName string) (*models.CachedAnalysis, error)
	Set(ctx context.Context, fullName string, result *models.AnalysisResult) error
	Remove(ctx context.Context, fullName string) error
	GetRecent(ctx context.Context, limit int) ([]*models.CachedAnalysis, error)
	ClearAll(ctx context.Context) error
	Close() error
}

// Memory is the default in-process Store implementation
type Memory struct {
	ttl        time.Duration
	maxEntries int
	nowFunc    func() time.Time

	mu      sync.Mutex
	entries map[string]models.CachedAnalysis
}

// NewMemory creates an in-memory store from the cache configuration
func NewMemory(cfg config.CacheConfig) *Memory {
	return &Memory{
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		nowFunc:    time.Now,
		entries:    make(map[string]models.CachedAnalysis),
	}
}

// Get returns the cached analysis for fullName, treating expired entries
// as absent and evicting them
func (m *Memory) Get(ctx context.Context, fullName string) (*models.CachedAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[fullName]
	if !ok {
		return nil, nil
	}
	if entry.Expired(m.nowFunc()) {
		delete(m.entries, fullName)
		return nil, nil
	}

	return &entry, nil
}

// Set stores a result under fullName, superseding any previous entry,
// then evicts oldest-by-creation entries until under the cap
func (m *Memory) Set(ctx context.Context, fullName string, result *models.AnalysisResult) error {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fullName] = models.CachedAnalysis{
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	for len(m.entries) > m.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, entry := range m.entries {
			if oldestKey == "" || entry.CreatedAt.Before(oldest) {
				oldestKey = key
				oldest = entry.CreatedAt
			}
		}
		delete(m.entries, oldestKey)
	}

	return nil
}

// Remove deletes one entry
func (m *Memory) Remove(ctx context.Context, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, fullName)
	return nil
}

// GetRecent returns up to limit unexpired entries, newest first
func (m *Memory) GetRecent(ctx context.Context, limit int) ([]*models.CachedAnalysis, error) {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]*models.CachedAnalysis, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.Expired(now) {
			continue
		}
		e := entry
		recent = append(recent, &e)
	}

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})

	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// ClearAll discards every entry
func (m *Memory) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]models.CachedAnalysis)
	return nil
}

// Close is a no-op for the in-memory store
func (m *Memory) Close() error {
	return nil
}
