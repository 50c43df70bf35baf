package session

import "sync"

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps the session for the lifetime of the process only
type InMemoryStore struct {
	mu  sync.RWMutex
	rec Record
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rec: Record{}}
}

func (s *InMemoryStore) Load() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Clone(), nil
}

func (s *InMemoryStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec.Clone()
	return nil
}

func (s *InMemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Record{}
	return nil
}
