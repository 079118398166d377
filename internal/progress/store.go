// Package progress persists which chunks of a conversion have completed so an
// interrupted run can resume without redoing finished work.
package progress

import "time"

// Status is the persisted resume state for one conversion. Completed indices
// are only ever added, never removed.
type Status struct {
	ConversionID string       `json:"conversion_id"`
	TotalChunks  int          `json:"total_chunks"`
	Completed    map[int]bool `json:"completed"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewStatus creates a fresh status record
func NewStatus(conversionID string, totalChunks int) *Status {
	now := time.Now().UTC()
	return &Status{
		ConversionID: conversionID,
		TotalChunks:  totalChunks,
		Completed:    make(map[int]bool),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsCompleted reports whether a chunk index has been recorded as done
func (s *Status) IsCompleted(chunkIndex int) bool {
	return s.Completed[chunkIndex]
}

// CompletedCount returns the number of recorded completed chunks
func (s *Status) CompletedCount() int {
	return len(s.Completed)
}

// Done reports whether every chunk has completed
func (s *Status) Done() bool {
	return s.TotalChunks > 0 && len(s.Completed) >= s.TotalChunks
}

// Store persists and restores conversion state across process restarts
type Store interface {
	// Load returns the status for a conversion, or nil if none exists.
	// A corrupted record is treated as absent, not as an error.
	Load(conversionID string) (*Status, error)

	// Create replaces any existing status with a fresh one
	Create(conversionID string, totalChunks int) (*Status, error)

	// RecordCompleted durably marks one chunk as done. It is idempotent and
	// safe to call concurrently for different indices; the write is flushed
	// before returning.
	RecordCompleted(conversionID string, chunkIndex int) error

	// IsComplete reports whether every chunk of the conversion is done
	IsComplete(conversionID string) (bool, error)

	// Delete removes the status record, typically after full completion
	Delete(conversionID string) error
}
