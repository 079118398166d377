package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FileStore is a Store backed by one JSON file per conversion under a state
// directory. Records are written atomically (temp file + rename) and fsynced
// before RecordCompleted returns, so a completed chunk is never lost to a
// crash.
type FileStore struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]*Status
}

// NewFileStore creates a file-backed store rooted at dir
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create progress directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*Status),
	}, nil
}

func (s *FileStore) path(conversionID string) string {
	return filepath.Join(s.dir, conversionID+".json")
}

// Load reads the status record for a conversion. A missing file yields nil.
// An unreadable or corrupted file also yields nil so the caller restarts the
// conversion from scratch instead of getting stuck; the condition is logged
// as a warning.
func (s *FileStore) Load(conversionID string) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.cache[conversionID]; ok {
		return status, nil
	}

	data, err := os.ReadFile(s.path(conversionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		s.logger.Warn().Err(err).Str("conversion_id", conversionID).
			Msg("Progress state unreadable, restarting conversion from scratch")
		return nil, nil
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		s.logger.Warn().Err(err).Str("conversion_id", conversionID).
			Msg("Progress state corrupted, restarting conversion from scratch")
		return nil, nil
	}
	if status.Completed == nil {
		status.Completed = make(map[int]bool)
	}

	s.cache[conversionID] = &status
	return &status, nil
}

// Create replaces any existing record with a fresh one
func (s *FileStore) Create(conversionID string, totalChunks int) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := NewStatus(conversionID, totalChunks)
	if err := s.persist(status); err != nil {
		return nil, err
	}
	s.cache[conversionID] = status
	return status, nil
}

// RecordCompleted durably marks one chunk as done
func (s *FileStore) RecordCompleted(conversionID string, chunkIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.cache[conversionID]
	if !ok {
		return fmt.Errorf("no status record for conversion %s", conversionID)
	}

	if status.Completed[chunkIndex] {
		return nil // Already recorded
	}

	status.Completed[chunkIndex] = true
	status.UpdatedAt = time.Now().UTC()

	return s.persist(status)
}

// IsComplete reports whether every chunk of the conversion is done
func (s *FileStore) IsComplete(conversionID string) (bool, error) {
	s.mu.Lock()
	status, ok := s.cache[conversionID]
	s.mu.Unlock()

	if !ok {
		loaded, err := s.Load(conversionID)
		if err != nil {
			return false, err
		}
		if loaded == nil {
			return false, nil
		}
		status = loaded
	}

	return status.Done(), nil
}

// Delete removes the status record
func (s *FileStore) Delete(conversionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, conversionID)
	if err := os.Remove(s.path(conversionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete progress state: %w", err)
	}
	return nil
}

// persist writes the record via a temp file, fsyncs it, then renames it into
// place. Callers must hold s.mu.
func (s *FileStore) persist(status *Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode progress state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, status.ConversionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write progress state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush progress state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close progress state: %w", err)
	}

	if err := os.Rename(tmpName, s.path(status.ConversionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit progress state: %w", err)
	}
	return nil
}
