package tts

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a synthesis failure for retry decisions
type ErrorKind int

const (
	KindUnknown            ErrorKind = iota // Unclassified failure
	KindRateLimited                         // Remote API rate limit hit
	KindInvalidInput                        // Request rejected, retrying will not help
	KindServiceUnavailable                  // Transport failure or remote 5xx
)

// String returns the human-readable name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInput:
		return "invalid_input"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Transient reports whether a failure of this kind is worth retrying
func (k ErrorKind) Transient() bool {
	return k == KindRateLimited || k == KindServiceUnavailable
}

// Error is a typed synthesis failure carrying its classification
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tts %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps an error with a classification
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from an error chain.
// Context cancellation and deadline expiry count as service unavailability
// so the retry policy treats a timed-out call as transient.
func KindOf(err error) ErrorKind {
	var ttsErr *Error
	if errors.As(err, &ttsErr) {
		return ttsErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindServiceUnavailable
	}
	return KindUnknown
}

// IsTransient reports whether an error should be retried
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return KindOf(err).Transient()
}

// Client defines the interface for a text-to-speech backend
type Client interface {
	// Synthesize converts text to audio bytes using the given voice configuration
	Synthesize(ctx context.Context, text string, cfg VoiceConfig) ([]byte, error)
}
