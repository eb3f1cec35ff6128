// Package openaistt provides an STT provider backed by the OpenAI audio
// transcription API (Whisper). Unlike the Gemini backend there is no staged
// file and no polling: the recording is sent as a single multipart upload and
// the transcript comes back in the same response.
package openaistt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/lingomirror/pkg/provider/stt"
)

const defaultModel = oai.AudioModelWhisper1

// Option is a functional option for configuring the Provider.
type Option func(*config)

// config holds optional configuration for the provider.
type config struct {
	model   oai.AudioModel
	baseURL string
	timeout time.Duration
}

// WithModel sets the transcription model (e.g., "whisper-1", "gpt-4o-transcribe").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = oai.AudioModel(model)
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements stt.Provider using the OpenAI transcription API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// New constructs a new OpenAI transcription Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openaistt: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
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

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (stt.Transcript, error) {
	if len(audio) == 0 {
		return stt.Transcript{}, errors.New("openaistt: audio must not be empty")
	}

	mimeType := cfg.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), "utterance.wav", mimeType),
		Model: p.model,
	}
	if cfg.Language != "" {
		// Whisper expects a bare ISO-639-1 code, not a full BCP-47 tag.
		params.Language = param.NewOpt(baseLanguage(cfg.Language))
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openaistt: transcription: %w", err)
	}

	return stt.Transcript{Text: resp.Text}, nil
}

// baseLanguage reduces a BCP-47 tag to its primary subtag ("en-US" → "en").
func baseLanguage(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '-' || tag[i] == '_' {
			return tag[:i]
		}
	}
	return tag
}
