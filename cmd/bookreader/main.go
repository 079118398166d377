package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JuanFKurucz/book-reader/internal/config"
	"github.com/JuanFKurucz/book-reader/internal/convert"
	"github.com/JuanFKurucz/book-reader/internal/document"
	"github.com/JuanFKurucz/book-reader/internal/observability"
	"github.com/JuanFKurucz/book-reader/internal/pool"
	"github.com/JuanFKurucz/book-reader/internal/progress"
	"github.com/JuanFKurucz/book-reader/internal/resilience"
	"github.com/JuanFKurucz/book-reader/internal/storage"
	"github.com/JuanFKurucz/book-reader/internal/tts"
)

// manifest is the JSON document printed to stdout when a run finishes
type manifest struct {
	ConversionID string   `json:"conversion_id"`
	OutputDir    string   `json:"output_dir"`
	Segments     []string `json:"segments"`
	TotalChunks  int      `json:"total_chunks"`
	Completed    int      `json:"completed"`
	Skipped      int      `json:"skipped"`
	Pages        int      `json:"pages"`
	Cancelled    bool     `json:"cancelled,omitempty"`
	Failures     []struct {
		Chunk int    `json:"chunk"`
		Pages string `json:"pages"`
		Kind  string `json:"kind"`
		Error string `json:"error"`
	} `json:"failures,omitempty"`
}

func main() {
	input := flag.String("input", "", "Path to the document to convert (pdf or txt)")
	output := flag.String("output", "", "Output directory (overrides OUTPUT_DIR)")
	voice := flag.String("voice", "", "TTS voice (overrides TTS_VOICE)")
	model := flag.String("model", "", "TTS model (overrides TTS_MODEL)")
	speed := flag.Float64("speed", 0, "Playback speed 0.5-2.0 (overrides TTS_SPEED)")
	format := flag.String("format", "", "Audio format mp3 or wav (overrides TTS_FORMAT)")
	resume := flag.Bool("resume", false, "Resume a previous conversion")
	concurrency := flag.Int("concurrency", 0, "Parallel TTS calls (overrides CONCURRENCY)")
	maxPages := flag.Int("max-pages", 0, "Limit the number of pages to convert (0 = all)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment configuration
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *voice != "" {
		cfg.TTSVoice = *voice
	}
	if *model != "" {
		cfg.TTSModel = *model
	}
	if *speed != 0 {
		cfg.TTSSpeed = *speed
	}
	if *format != "" {
		cfg.TTSFormat = *format
	}
	if *concurrency != 0 {
		cfg.Concurrency = *concurrency
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if *input == "" {
		logger.Fatal().Msg("Missing required -input flag")
	}

	voiceCfg, err := tts.NewVoiceConfig(cfg.TTSVoice, cfg.TTSModel, cfg.TTSSpeed, cfg.TTSFormat)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid voice configuration")
	}

	logger.Info().
		Str("input", *input).
		Str("voice", string(voiceCfg.Voice)).
		Str("model", string(voiceCfg.Model)).
		Int("concurrency", cfg.Concurrency).
		Bool("resume", *resume).
		Msg("Book reader starting")

	doc, err := document.Open(*input, *maxPages)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load document")
	}
	if doc.PageCount() == 0 {
		logger.Fatal().Str("input", *input).Msg("No pages loaded from document")
	}

	store, err := progress.NewFileStore(cfg.ProgressDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open progress store")
	}

	breaker := resilience.NewCircuitBreaker("openai-tts",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second)

	retryPolicy := &resilience.RetryPolicy{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.RetryMaxBackoff) * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	workers, err := pool.New(cfg.Concurrency, tts.IsTransient,
		pool.WithRetryPolicy(retryPolicy),
		pool.WithCircuitBreaker(breaker),
		pool.WithChunkTimeout(time.Duration(cfg.ChunkTimeout)*time.Second),
		pool.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create worker pool")
	}

	client := tts.NewOpenAIClient(cfg.OpenAIAPIKey)
	orchestrator := convert.NewOrchestrator(client, store, storage.NewFileWriter(), workers, logger)

	// Metrics endpoint (Prometheus), served for the duration of the run
	if cfg.MetricsEnabled && cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Prometheus metrics enabled at /metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn().Err(err).Msg("Metrics listener stopped")
			}
		}()
	}

	// An interrupt cancels in-flight work; completed chunks stay recorded so
	// the run can be resumed
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := orchestrator.Convert(ctx, doc, voiceCfg, convert.Options{
		OutputDir:        cfg.OutputDir,
		MaxChunkSize:     cfg.MaxChunkSize,
		Resume:           *resume,
		DeleteOnComplete: true,
		Observer:         &logObserver{},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Conversion failed")
	}

	printManifest(result)

	switch {
	case result.Cancelled:
		logger.Warn().Msg("Conversion interrupted; re-run with -resume to continue")
		os.Exit(2)
	case len(result.Failures) > 0:
		logger.Warn().Int("failed", len(result.Failures)).
			Msg("Conversion finished with failures; re-run with -resume to retry")
		os.Exit(2)
	default:
		logger.Info().Str("output_dir", result.OutputDir).Msg("Audiobook ready")
	}
}

// logObserver forwards progress events to the structured logger
type logObserver struct{}

func (logObserver) ChunkCompleted(chunkIndex, totalChunks int) {
	logger := observability.GetLogger()
	logger.Info().
		Int("chunk", chunkIndex+1).
		Int("total", totalChunks).
		Msg("Chunk converted")
}

func (logObserver) ChunkFailed(chunkIndex int, kind tts.ErrorKind, err error) {
	logger := observability.GetLogger()
	logger.Error().
		Int("chunk", chunkIndex+1).
		Str("kind", kind.String()).
		Err(err).
		Msg("Chunk failed")
}

// printManifest writes the final manifest as JSON to stdout
func printManifest(result *convert.Result) {
	m := manifest{
		ConversionID: result.ConversionID,
		OutputDir:    result.OutputDir,
		Segments:     result.Segments,
		TotalChunks:  result.TotalChunks,
		Completed:    result.Completed,
		Skipped:      result.Skipped,
		Pages:        result.PageCount,
		Cancelled:    result.Cancelled,
	}
	for _, f := range result.Failures {
		m.Failures = append(m.Failures, struct {
			Chunk int    `json:"chunk"`
			Pages string `json:"pages"`
			Kind  string `json:"kind"`
			Error string `json:"error"`
		}{
			Chunk: f.ChunkIndex,
			Pages: fmt.Sprintf("%d-%d", f.FirstPage, f.LastPage),
			Kind:  f.Kind.String(),
			Error: f.Err.Error(),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(m)
}
