package convert

import "github.com/JuanFKurucz/book-reader/internal/tts"

// ChunkFailure describes one permanently failed chunk
type ChunkFailure struct {
	ChunkIndex int
	FirstPage  int
	LastPage   int
	Kind       tts.ErrorKind
	Err        error
}

// Result is the final manifest of a conversion run. Segments are ordered by
// chunk index, never by completion order.
type Result struct {
	ConversionID string
	OutputDir    string
	Segments     []string // Segment paths sorted by chunk index
	TotalChunks  int
	Completed    int // Chunks completed during this run
	Skipped      int // Chunks already completed by a prior run
	PageCount    int
	Failures     []ChunkFailure
	Cancelled    bool // The run was interrupted; remaining work is resumable
}

// FullyComplete reports whether every chunk has a segment
func (r *Result) FullyComplete() bool {
	return len(r.Failures) == 0 && !r.Cancelled && len(r.Segments) == r.TotalChunks
}

// Observer receives structured progress events as chunks resolve. The core
// never writes to the console; a CLI layer subscribes an observer instead.
type Observer interface {
	ChunkCompleted(chunkIndex, totalChunks int)
	ChunkFailed(chunkIndex int, kind tts.ErrorKind, err error)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) ChunkCompleted(int, int) {}

func (NopObserver) ChunkFailed(int, tts.ErrorKind, error) {}
