package session

import (
	"sync"
	"time"
)

// memoryTier is the in-process table for anonymous sessions. It stores deep
// copies so callers never share a mutable record with the tier, and it is
// never durable: a process restart loses every entry by design.
type memoryTier struct {
	mu      sync.Mutex
	entries map[string]*Record
}

func newMemoryTier() *memoryTier {
	return &memoryTier{
		entries: make(map[string]*Record),
	}
}

func (m *memoryTier) get(sessionID string, now time.Time) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.entries[sessionID]
	if !ok {
		return nil, false
	}
	if rec.Expired(now) {
		delete(m.entries, sessionID)
		return nil, false
	}
	return rec.Clone(), true
}

func (m *memoryTier) put(rec *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[rec.SessionID] = rec.Clone()
}

func (m *memoryTier) delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
}

// sweep evicts entries whose expiry has passed, visiting at most limit
// entries per call so a large table cannot stall the request that
// triggered the sweep. limit <= 0 means no cap.
func (m *memoryTier) sweep(now time.Time, limit int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	visited := 0
	evicted := 0
	for id, rec := range m.entries {
		if limit > 0 && visited >= limit {
			break
		}
		visited++
		if rec.Expired(now) {
			delete(m.entries, id)
			evicted++
		}
	}
	return evicted
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
