// Package openaitr provides a transcribe.Provider backed by the OpenAI audio
// transcription API, using the official Go SDK.
package openaitr

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxtask/voxtask/pkg/provider/transcribe"
)

// Compile-time assertion that Provider implements transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// API-compatible gateways.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements transcribe.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI transcription Provider. model selects the
// transcription model (e.g., "whisper-1").
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaitr: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openaitr: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Transcribe implements transcribe.Provider.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	resp, err := p.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(p.model),
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("openaitr: transcription: %w", err)
	}
	return resp.Text, nil
}
