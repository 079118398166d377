package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the book-reader pipeline
type Config struct {
	// OpenAI TTS API configuration
	OpenAIAPIKey string  `envconfig:"OPENAI_API_KEY" required:"true"`
	TTSModel     string  `envconfig:"TTS_MODEL" default:"tts-1"`   // tts-1, tts-1-hd, gpt-4o-mini-tts
	TTSVoice     string  `envconfig:"TTS_VOICE" default:"shimmer"` // alloy, ash, ballad, coral, echo, fable, nova, onyx, sage, shimmer
	TTSSpeed     float64 `envconfig:"TTS_SPEED" default:"1.0"`     // Playback speed, 0.5 to 2.0
	TTSFormat    string  `envconfig:"TTS_FORMAT" default:"mp3"`    // mp3, wav

	// Chunking configuration
	MaxChunkSize int `envconfig:"MAX_CHUNK_SIZE" default:"4096"` // Maximum characters per TTS request

	// Pipeline configuration
	Concurrency  int    `envconfig:"CONCURRENCY" default:"4"`            // Parallel in-flight TTS calls
	ChunkTimeout int    `envconfig:"CHUNK_TIMEOUT" default:"120"`        // Per-chunk TTS timeout in seconds
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"./audiobooks"`  // Directory for generated segments
	ProgressDir  string `envconfig:"PROGRESS_DIR" default:".bookreader"` // Directory for resume state files

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts per chunk
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	RetryMaxBackoff            int `envconfig:"RETRY_MAX_BACKOFF" default:"5000"`           // Maximum backoff in milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:""`        // Listen address for /metrics during a run (empty = disabled)
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values that would make a run impossible.
// A failure here is fatal at startup; no partial run begins.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxChunkSize < 1 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.ChunkTimeout < 1 {
		return fmt.Errorf("CHUNK_TIMEOUT must be at least 1 second, got %d", c.ChunkTimeout)
	}
	return nil
}
