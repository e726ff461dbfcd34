package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory audit store for tests and Redis-less runs.
// Retention is unbounded; the recent index keeps the same cap and dedupe
// semantics as the Redis store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	recent  []string
}

// NewMemoryStore constructs an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
	}
}

// Append stores the entry and refreshes the recent index.
func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.CorrelationID] = append(s.entries[entry.CorrelationID], entry)

	// dedupe, newest first, capped
	for i, id := range s.recent {
		if id == entry.CorrelationID {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			break
		}
	}
	s.recent = append([]string{entry.CorrelationID}, s.recent...)
	if len(s.recent) > RecentIndexCap {
		s.recent = s.recent[:RecentIndexCap]
	}
	return nil
}

// ListByCorrelation returns the run's entries oldest first.
func (s *MemoryStore) ListByCorrelation(_ context.Context, correlationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, len(s.entries[correlationID]))
	copy(entries, s.entries[correlationID])
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// RecentRuns returns the newest correlation IDs up to limit.
func (s *MemoryStore) RecentRuns(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	ids := make([]string, limit)
	copy(ids, s.recent[:limit])
	return ids, nil
}
