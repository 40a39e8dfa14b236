package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned by speech clients that have no credentials.
var ErrNotConfigured = errors.New("speech client not configured")

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// WhisperConfig configures the Whisper transcription client.
type WhisperConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperClient transcribes audio through the OpenAI audio API.
type WhisperClient struct {
	client *openai.Client
	cfg    WhisperConfig
}

// NewWhisperClient builds a Whisper client; without an API key every call
// returns ErrNotConfigured.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Language == "" {
		cfg.Language = "vi"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	w := &WhisperClient{cfg: cfg}
	if cfg.APIKey == "" {
		return w
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		// Accept a chat completions endpoint as well as an API root.
		oc.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/chat/completions")
	}
	w.client = openai.NewClientWithConfig(oc)
	return w
}

// Transcribe uploads audio and returns the recognized text.
func (w *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if w.client == nil {
		return "", ErrNotConfigured
	}
	if filename == "" {
		filename = "audio.webm"
	}
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: w.cfg.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
