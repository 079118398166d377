package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClient_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got '%s'", r.Header.Get("Authorization"))
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fake-audio-bytes"))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithAPIURL(server.URL))

	audio, err := client.Synthesize(context.Background(), "Hello world.", DefaultVoiceConfig())
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	if string(audio) != "fake-audio-bytes" {
		t.Errorf("Expected 'fake-audio-bytes', got '%s'", audio)
	}
}

func TestOpenAIClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, KindRateLimited},
		{"bad request", http.StatusBadRequest, KindInvalidInput},
		{"unprocessable", http.StatusUnprocessableEntity, KindInvalidInput},
		{"server error", http.StatusInternalServerError, KindServiceUnavailable},
		{"bad gateway", http.StatusBadGateway, KindServiceUnavailable},
		{"unauthorized", http.StatusUnauthorized, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewOpenAIClient("test-key", WithAPIURL(server.URL))

			_, err := client.Synthesize(context.Background(), "text", DefaultVoiceConfig())
			if err == nil {
				t.Fatal("Expected error")
			}
			if KindOf(err) != tt.expected {
				t.Errorf("Expected kind %v, got %v", tt.expected, KindOf(err))
			}
		})
	}
}

func TestOpenAIClient_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithAPIURL(server.URL))

	_, err := client.Synthesize(context.Background(), "text", DefaultVoiceConfig())
	if err == nil {
		t.Error("Expected error for empty audio response")
	}
}

func TestOpenAIClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", WithAPIURL(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Synthesize(ctx, "text", DefaultVoiceConfig())
	if err == nil {
		t.Fatal("Expected error from expired context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	// A timed-out call must be classified as transient for the retry policy
	if !IsTransient(err) {
		t.Error("Expected timeout to be transient")
	}
}

func TestErrorKind_Transient(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected bool
	}{
		{KindRateLimited, true},
		{KindServiceUnavailable, true},
		{KindInvalidInput, false},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if tt.kind.Transient() != tt.expected {
				t.Errorf("Expected Transient()=%v for %v", tt.expected, tt.kind)
			}
		})
	}
}

func TestIsTransient_Cancellation(t *testing.T) {
	if IsTransient(context.Canceled) {
		t.Error("Expected cancellation to not be transient")
	}
}

func TestVoiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     VoiceConfig
		wantErr bool
	}{
		{"defaults", DefaultVoiceConfig(), false},
		{"hd model", VoiceConfig{Voice: VoiceNova, Model: ModelHighQuality, Speed: 1.5, Format: FormatWAV}, false},
		{"bad voice", VoiceConfig{Voice: "robot", Model: ModelStandard, Speed: 1.0, Format: FormatMP3}, true},
		{"bad model", VoiceConfig{Voice: VoiceAlloy, Model: "tts-9", Speed: 1.0, Format: FormatMP3}, true},
		{"speed too low", VoiceConfig{Voice: VoiceAlloy, Model: ModelStandard, Speed: 0.4, Format: FormatMP3}, true},
		{"speed too high", VoiceConfig{Voice: VoiceAlloy, Model: ModelStandard, Speed: 2.1, Format: FormatMP3}, true},
		{"bad format", VoiceConfig{Voice: VoiceAlloy, Model: ModelStandard, Speed: 1.0, Format: "ogg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewVoiceConfig(t *testing.T) {
	cfg, err := NewVoiceConfig("nova", "tts-1-hd", 1.25, "wav")
	if err != nil {
		t.Fatalf("NewVoiceConfig() failed: %v", err)
	}
	if cfg.Voice != VoiceNova {
		t.Errorf("Expected voice nova, got %s", cfg.Voice)
	}
	if cfg.Ext() != "wav" {
		t.Errorf("Expected extension 'wav', got '%s'", cfg.Ext())
	}

	if _, err := NewVoiceConfig("nova", "tts-1", 3.0, "mp3"); err == nil {
		t.Error("Expected error for out-of-range speed")
	}
}
