package progress

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs
type MemoryStore struct {
	mu       sync.Mutex
	statuses map[string]*Status
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]*Status),
	}
}

// Load returns the status for a conversion, or nil if none exists
func (s *MemoryStore) Load(conversionID string) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[conversionID], nil
}

// Create replaces any existing status with a fresh one
func (s *MemoryStore) Create(conversionID string, totalChunks int) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := NewStatus(conversionID, totalChunks)
	s.statuses[conversionID] = status
	return status, nil
}

// RecordCompleted marks one chunk as done
func (s *MemoryStore) RecordCompleted(conversionID string, chunkIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[conversionID]
	if !ok {
		return fmt.Errorf("no status record for conversion %s", conversionID)
	}
	status.Completed[chunkIndex] = true
	status.UpdatedAt = time.Now().UTC()
	return nil
}

// IsComplete reports whether every chunk of the conversion is done
func (s *MemoryStore) IsComplete(conversionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[conversionID]
	if !ok {
		return false, nil
	}
	return status.Done(), nil
}

// Delete removes the status record
func (s *MemoryStore) Delete(conversionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.statuses, conversionID)
	return nil
}
