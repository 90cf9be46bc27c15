package cache

import (
	"sync"
	"time"

	"github.com/JohnCCarter/crypto-bot-dashboard-nexus-sub001/internal/model"
)

// Entry is the cached state for one endpoint.
type Entry struct {
	Value     any // nil until first write
	UpdatedAt time.Time
	Source    model.Source
}

// Stats contains cache counters.
type Stats struct {
	Applied  int64 // Writes accepted
	Rejected int64 // Writes discarded by the monotonicity guard
}

// Store is the shared last-known-value cache. One writer path per
// endpoint (scheduler results and push events, both gated through
// Write), unlimited readers.
type Store struct {
	mu      sync.RWMutex
	entries map[model.EndpointKey]Entry

	applied  int64
	rejected int64
}

// NewStore creates an empty Store. Entries are created lazily on
// first write.
func NewStore() *Store {
	return &Store{
		entries: make(map[model.EndpointKey]Entry),
	}
}

// Write applies the update only if observedAt is not older than the
// current entry's timestamp. Returns whether the write was applied.
// Equal timestamps are accepted so a pull confirmation at the same
// observation instant can refresh source attribution.
func (s *Store) Write(key model.EndpointKey, value any, observedAt time.Time, source model.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[key]
	if ok && observedAt.Before(cur.UpdatedAt) {
		s.rejected++
		return false
	}

	s.entries[key] = Entry{
		Value:     value,
		UpdatedAt: observedAt,
		Source:    source,
	}
	s.applied++
	return true
}

// Read returns a copy of the current entry for key. A never-written
// key yields a zero Entry with SourceNone.
func (s *Store) Read(key model.EndpointKey) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{Source: model.SourceNone}
	}
	return e
}

// UpdatedAt returns the observation timestamp for key, zero if never
// written.
func (s *Store) UpdatedAt(key model.EndpointKey) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key].UpdatedAt
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Applied: s.applied, Rejected: s.rejected}
}
