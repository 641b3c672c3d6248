package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Record)}
}

func (m *MemoryStore) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.SessionID] = append(m.sessions[rec.SessionID], rec)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	m.mu.RLock()
	recs := append([]Record(nil), m.sessions[sessionID]...)
	m.mu.RUnlock()

	sortRecords(recs)
	return head(recs, limit), nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions[sessionID])
	delete(m.sessions, sessionID)
	return n, nil
}

func (m *MemoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, recs := range m.sessions {
		kept := recs[:0]
		for _, r := range recs {
			if r.Timestamp.Before(before) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(m.sessions, id)
		} else {
			m.sessions[id] = kept
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
