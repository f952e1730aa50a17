package ledger

import (
	"maps"
	"sync"
)

// MemStore is an in-memory Store used by tests and embedding callers.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string][]Record)}
}

// ReadCollection returns a copy of the collection; an unknown name is an
// empty collection.
func (s *MemStore) ReadCollection(name string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.collections[name]), nil
}

func (s *MemStore) WriteCollection(name string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = cloneRecords(records)
	return nil
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, 0, len(in))
	for _, rec := range in {
		out = append(out, maps.Clone(rec))
	}
	return out
}
