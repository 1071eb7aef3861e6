package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is the no-database gateway used by tests and local dev.
// Records are copied through their serialized form so callers never share
// memory with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, username string) (*PlayerRecord, error) {
	s.mu.RLock()
	data, ok := s.records[username]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var rec PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode player %q: %w", username, err)
	}
	return &rec, nil
}

func (s *MemoryStore) Put(_ context.Context, record *PlayerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode player %q: %w", record.Username, err)
	}
	s.mu.Lock()
	s.records[record.Username] = data
	s.mu.Unlock()
	return nil
}
