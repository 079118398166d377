// Package storage provides the boundary for writing audio segments. The core
// pipeline only depends on the Writer interface so tests can swap in an
// in-memory implementation.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Writer persists a finished audio segment at a target path
type Writer interface {
	// WriteSegment writes the audio bytes, creating parent directories as
	// needed. The write must be complete when it returns; a partially
	// written segment must never be observable at the target path.
	WriteSegment(path string, data []byte) error
}

// FileWriter writes segments to the local filesystem
type FileWriter struct{}

// NewFileWriter creates a filesystem-backed segment writer
func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

// WriteSegment writes audio bytes via a temp file and rename so a crash
// mid-write cannot leave a truncated segment at the final path
func (w *FileWriter) WriteSegment(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create segment directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp segment file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write segment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close segment: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit segment: %w", err)
	}
	return nil
}

// MemoryWriter stores segments in memory for tests
type MemoryWriter struct {
	mu       sync.Mutex
	segments map[string][]byte
	failOn   map[string]error
}

// NewMemoryWriter creates an empty in-memory segment writer
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		segments: make(map[string][]byte),
		failOn:   make(map[string]error),
	}
}

// WriteSegment stores the bytes, or fails if the path was primed with FailOn
func (w *MemoryWriter) WriteSegment(path string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err, ok := w.failOn[path]; ok {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	w.segments[path] = buf
	return nil
}

// FailOn makes future writes to path return err
func (w *MemoryWriter) FailOn(path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failOn[path] = err
}

// Segment returns the stored bytes for a path
func (w *MemoryWriter) Segment(path string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.segments[path]
	return data, ok
}

// Paths returns all written paths in sorted order
func (w *MemoryWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.segments))
	for p := range w.segments {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
