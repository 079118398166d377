// Package convert coordinates the full conversion pipeline: chunking, resume
// filtering, parallel TTS dispatch, segment storage, and manifest assembly.
package convert

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/JuanFKurucz/book-reader/internal/chunker"
	"github.com/JuanFKurucz/book-reader/internal/document"
	"github.com/JuanFKurucz/book-reader/internal/observability"
	"github.com/JuanFKurucz/book-reader/internal/pool"
	"github.com/JuanFKurucz/book-reader/internal/progress"
	"github.com/JuanFKurucz/book-reader/internal/storage"
	"github.com/JuanFKurucz/book-reader/internal/tts"
)

// Options controls a single conversion run
type Options struct {
	OutputDir        string // Root directory; segments land in OutputDir/<documentID>/
	MaxChunkSize     int    // Maximum characters per chunk
	Resume           bool   // Continue from persisted progress instead of starting over
	DeleteOnComplete bool   // Remove the progress record after a fully successful run
	Observer         Observer
}

// Orchestrator drives a document through the conversion pipeline
type Orchestrator struct {
	client tts.Client
	store  progress.Store
	writer storage.Writer
	pool   *pool.Pool
	logger zerolog.Logger
}

// NewOrchestrator wires the pipeline components together
func NewOrchestrator(client tts.Client, store progress.Store, writer storage.Writer, p *pool.Pool, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		store:  store,
		writer: writer,
		pool:   p,
		logger: logger,
	}
}

// Convert runs the full pipeline for one document. Per-chunk failures are
// aggregated into the result rather than aborting the run; only chunking
// configuration errors fail outright before any work starts.
func (o *Orchestrator) Convert(ctx context.Context, doc *document.Document, voiceCfg tts.VoiceConfig, opts Options) (*Result, error) {
	if err := voiceCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid voice config: %w", err)
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	conversionID := doc.ID()
	logger := o.logger.With().
		Str("conversion_id", conversionID).
		Str("run_id", observability.NewRunID()).
		Logger()

	start := time.Now()
	observability.RecordConversionStart()

	// Step 1: build the full ordered chunk list
	pages := make([]chunker.Page, 0, doc.PageCount())
	for _, p := range doc.Pages() {
		pages = append(pages, chunker.Page{Number: p.Number, Text: p.Text})
	}
	chunks, err := chunker.Split(pages, opts.MaxChunkSize)
	if err != nil {
		observability.RecordConversionEnd(start, false)
		return nil, fmt.Errorf("chunking failed: %w", err)
	}

	outputDir := filepath.Join(opts.OutputDir, conversionID)

	// Step 2: load or reset persisted progress
	status, err := o.loadStatus(conversionID, len(chunks), opts.Resume)
	if err != nil {
		observability.RecordConversionEnd(start, false)
		return nil, err
	}

	result := &Result{
		ConversionID: conversionID,
		OutputDir:    outputDir,
		TotalChunks:  len(chunks),
		PageCount:    doc.PageCount(),
	}

	// Resume filter: the effective work set excludes completed chunks
	pending := make([]chunker.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if status.IsCompleted(chunk.Index) {
			result.Skipped++
			observability.RecordChunkSkipped()
			continue
		}
		pending = append(pending, chunk)
	}

	logger.Info().
		Int("total_chunks", len(chunks)).
		Int("pending", len(pending)).
		Int("skipped", result.Skipped).
		Int("pages", doc.PageCount()).
		Msg("Starting conversion")

	if len(pending) == 0 {
		// Nothing left from the prior run
		o.assemble(result, chunks, voiceCfg, nil)
		o.finish(result, start, opts, logger)
		return result, nil
	}

	// Steps 3-4: fan out to the pool; each success is durably recorded
	// before it counts as completed
	process := func(ctx context.Context, chunk chunker.Chunk) error {
		return o.processChunk(ctx, conversionID, chunk, voiceCfg, outputDir)
	}

	failures := make(map[int]error)
	for res := range o.pool.Run(ctx, pending, process) {
		if errors.Is(res.Err, context.Canceled) {
			// Interrupted, not failed; the chunk stays pending for the
			// next resumed run.
			continue
		}
		if res.Err != nil {
			failures[res.ChunkIndex] = res.Err
			observability.RecordChunkFailed()
			observability.RecordError(tts.KindOf(res.Err).String(), "pool")
			observer.ChunkFailed(res.ChunkIndex, tts.KindOf(res.Err), res.Err)
			logger.Error().Err(res.Err).
				Int("chunk", res.ChunkIndex).
				Int("attempts", res.Attempts).
				Msg("Chunk permanently failed")
			continue
		}

		result.Completed++
		observability.RecordChunkCompleted()
		observer.ChunkCompleted(res.ChunkIndex, len(chunks))
		logger.Debug().
			Int("chunk", res.ChunkIndex).
			Int("attempts", res.Attempts).
			Msg("Chunk completed")
	}

	if ctx.Err() != nil {
		result.Cancelled = true
		logger.Warn().Msg("Conversion interrupted, completed chunks remain resumable")
	}

	// Step 5: assemble the manifest in chunk-index order
	o.assemble(result, chunks, voiceCfg, failures)
	o.finish(result, start, opts, logger)

	return result, nil
}

// loadStatus loads, resets, or creates the persisted status per the resume flag
func (o *Orchestrator) loadStatus(conversionID string, totalChunks int, resume bool) (*progress.Status, error) {
	if resume {
		status, err := o.store.Load(conversionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
		if status != nil {
			if status.TotalChunks == totalChunks {
				return status, nil
			}
			// Chunk count changed (different max size or document edit);
			// prior indices no longer line up, so start over.
			o.logger.Warn().
				Str("conversion_id", conversionID).
				Int("recorded_chunks", status.TotalChunks).
				Int("current_chunks", totalChunks).
				Msg("Chunk count mismatch with saved progress, restarting conversion")
		}
	}

	status, err := o.store.Create(conversionID, totalChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress record: %w", err)
	}
	return status, nil
}

// processChunk synthesizes one chunk, writes its segment, then records it
// completed. Progress is only recorded after the segment is durably written,
// so a crash can never mark unwritten audio as done.
func (o *Orchestrator) processChunk(ctx context.Context, conversionID string, chunk chunker.Chunk, voiceCfg tts.VoiceConfig, outputDir string) error {
	ttsStart := time.Now()
	audio, err := o.client.Synthesize(ctx, chunk.Text, voiceCfg)
	observability.RecordTTSRequest(ttsStart, err == nil)
	if err != nil {
		return err
	}

	path := SegmentPath(outputDir, chunk.Index, voiceCfg)
	if err := o.writer.WriteSegment(path, audio); err != nil {
		// Storage failures are permanent for this chunk, same as an
		// InvalidInput TTS failure.
		return tts.NewError(tts.KindInvalidInput, fmt.Errorf("failed to write segment: %w", err))
	}
	observability.RecordAudioBytes(int64(len(audio)))

	if err := o.store.RecordCompleted(conversionID, chunk.Index); err != nil {
		return tts.NewError(tts.KindUnknown, fmt.Errorf("failed to record progress: %w", err))
	}
	return nil
}

// assemble fills the ordered segment list and failure list (step 5). Chunk
// order, not completion order, decides segment order. A chunk that is neither
// completed nor failed after a non-cancelled run is recorded as a permanent
// failure so the manifest accounts for every chunk.
func (o *Orchestrator) assemble(result *Result, chunks []chunker.Chunk, voiceCfg tts.VoiceConfig, failures map[int]error) {
	status, err := o.store.Load(result.ConversionID)
	if err != nil {
		status = nil
	}

	for _, chunk := range chunks {
		if err, failed := failures[chunk.Index]; failed {
			result.Failures = append(result.Failures, ChunkFailure{
				ChunkIndex: chunk.Index,
				FirstPage:  chunk.FirstPage,
				LastPage:   chunk.LastPage,
				Kind:       tts.KindOf(err),
				Err:        err,
			})
			continue
		}
		if status != nil && status.IsCompleted(chunk.Index) {
			result.Segments = append(result.Segments, SegmentPath(result.OutputDir, chunk.Index, voiceCfg))
			continue
		}
		if !result.Cancelled {
			result.Failures = append(result.Failures, ChunkFailure{
				ChunkIndex: chunk.Index,
				FirstPage:  chunk.FirstPage,
				LastPage:   chunk.LastPage,
				Kind:       tts.KindUnknown,
				Err:        fmt.Errorf("chunk %d never completed", chunk.Index),
			})
		}
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ChunkIndex < result.Failures[j].ChunkIndex
	})
}

// finish records metrics and optionally clears the progress record (step 6)
func (o *Orchestrator) finish(result *Result, start time.Time, opts Options, logger zerolog.Logger) {
	observability.RecordConversionEnd(start, result.FullyComplete())

	if result.FullyComplete() && opts.DeleteOnComplete {
		if err := o.store.Delete(result.ConversionID); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete completed progress record")
		}
	}

	logger.Info().
		Int("segments", len(result.Segments)).
		Int("completed", result.Completed).
		Int("skipped", result.Skipped).
		Int("failed", len(result.Failures)).
		Bool("cancelled", result.Cancelled).
		Dur("elapsed", time.Since(start)).
		Msg("Conversion finished")
}

// SegmentPath returns the target path for a chunk's audio segment.
// File names are 1-based to match human expectations when listing a directory.
func SegmentPath(outputDir string, chunkIndex int, voiceCfg tts.VoiceConfig) string {
	return filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.%s", chunkIndex+1, voiceCfg.Ext()))
}
