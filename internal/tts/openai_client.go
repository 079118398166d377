package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultAPIURL = "https://api.openai.com/v1/audio/speech"

// OpenAIClient implements Client using OpenAI's speech synthesis API
type OpenAIClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// speechRequest represents the request payload for the OpenAI speech API
type speechRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
}

// OpenAIOption customizes an OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithAPIURL overrides the API endpoint (used by tests)
func WithAPIURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.apiURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		c.httpClient = hc
	}
}

// NewOpenAIClient creates a new OpenAI TTS client
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize converts text to audio bytes. Failures carry an ErrorKind so the
// caller can distinguish retryable conditions from permanent ones.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string, cfg VoiceConfig) ([]byte, error) {
	reqBody := speechRequest{
		Model:          string(cfg.Model),
		Voice:          string(cfg.Voice),
		Input:          text,
		Speed:          cfg.Speed,
		ResponseFormat: string(cfg.Format),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewError(KindInvalidInput, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, NewError(KindUnknown, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Preserve context errors so cancellation is not retried as a
		// service failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewError(KindServiceUnavailable, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, NewError(classifyStatus(resp.StatusCode),
			fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindServiceUnavailable, fmt.Errorf("failed to read audio response: %w", err))
	}

	if len(audioData) == 0 {
		return nil, NewError(KindUnknown, fmt.Errorf("openai returned empty audio data"))
	}

	return audioData, nil
}

// classifyStatus maps an HTTP status code to an error kind
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidInput
	case status >= 500:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}
