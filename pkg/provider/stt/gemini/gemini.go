// Package gemini provides an STT provider backed by the Gemini API.
//
// Gemini has no dedicated transcription endpoint; instead the recording is
// staged through the Files API, referenced from a generateContent call that
// asks the model to transcribe it, and deleted afterwards. The staged file is
// a remote artifact owned by this provider: it is deleted on every exit path,
// including upload-poll timeouts, generation failures, and context
// cancellation.
//
// File processing on Google's side is asynchronous, so after the upload the
// provider polls the file state with a bounded backoff until it becomes
// ACTIVE. The poll loop never waits forever: it gives up after maxPollTime and
// honours ctx cancellation between attempts.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MrWong99/lingomirror/pkg/provider/stt"
)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-2.0-flash"
	defaultMIMEType = "audio/wav"

	// transcribeInstruction is the fixed prompt sent alongside the staged file.
	transcribeInstruction = "Please transcribe this audio. Output only the transcribed text, nothing else."

	// Default poll loop bounds for file activation.
	defaultPollInterval    = 500 * time.Millisecond
	defaultMaxPollInterval = 4 * time.Second
	defaultMaxPollTime     = 60 * time.Second
)

// ErrFileNotActive is returned when the staged file does not become ACTIVE
// within the polling budget.
var ErrFileNotActive = errors.New("gemini: staged file did not become active in time")

// Option is a functional option for configuring the Gemini Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for transcription (e.g., "gemini-2.0-flash").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the Gemini API base URL. Used by tests to point the
// provider at a local httptest server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithPollTimings adjusts the file-activation poll loop: interval is the
// initial delay between polls (doubling up to maxInterval), and budget bounds
// how long the loop keeps trying before giving up with [ErrFileNotActive].
// Non-positive values keep the corresponding default.
func WithPollTimings(interval, maxInterval, budget time.Duration) Option {
	return func(p *Provider) {
		if interval > 0 {
			p.pollInterval = interval
		}
		if maxInterval > 0 {
			p.maxPollInterval = maxInterval
		}
		if budget > 0 {
			p.maxPollTime = budget
		}
	}
}

// Provider implements stt.Provider backed by the Gemini Files + generateContent APIs.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	pollInterval    time.Duration
	maxPollInterval time.Duration
	maxPollTime     time.Duration
}

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// New creates a new Gemini Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:          apiKey,
		model:           defaultModel,
		baseURL:         defaultBaseURL,
		httpClient:      &http.Client{},
		pollInterval:    defaultPollInterval,
		maxPollInterval: defaultMaxPollInterval,
		maxPollTime:     defaultMaxPollTime,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- Files API message types ----

// fileResource is the file metadata object returned by the Files API.
type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	MIMEType string `json:"mimeType"`
}

// uploadResponse is the envelope returned by the media upload endpoint.
type uploadResponse struct {
	File fileResource `json:"file"`
}

// ---- generateContent message types ----

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Transcribe implements stt.Provider.
//
// The flow is upload → poll until ACTIVE → generateContent → delete. The
// delete runs in a defer so the staged file is removed even when a later stage
// fails; a failed delete is logged but never masks the primary error.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (stt.Transcript, error) {
	if len(audio) == 0 {
		return stt.Transcript{}, errors.New("gemini: audio must not be empty")
	}

	mimeType := cfg.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	file, err := p.uploadFile(ctx, audio, mimeType)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("gemini: upload: %w", err)
	}
	defer func() {
		// Cleanup must run even when ctx is already cancelled, so it gets its
		// own short deadline detached from the caller's context.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.deleteFile(cleanupCtx, file.Name); err != nil {
			slog.Warn("failed to delete staged transcription file",
				"file", file.Name, "error", err)
		}
	}()

	active, err := p.awaitActive(ctx, file)
	if err != nil {
		return stt.Transcript{}, err
	}

	text, err := p.generateTranscript(ctx, active, cfg.Language)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("gemini: transcribe: %w", err)
	}

	return stt.Transcript{Text: text}, nil
}

// uploadFile stages the recording via the Files API raw media upload.
func (p *Provider) uploadFile(ctx context.Context, audio []byte, mimeType string) (fileResource, error) {
	uploadURL := p.baseURL + "/upload/v1beta/files"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(audio))
	if err != nil {
		return fileResource{}, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Content-Length", strconv.Itoa(len(audio)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fileResource{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fileResource{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return fileResource{}, fmt.Errorf("decode upload response: %w", err)
	}
	if ur.File.Name == "" {
		return fileResource{}, errors.New("upload response contained no file name")
	}
	return ur.File, nil
}

// awaitActive polls the staged file until its state is ACTIVE. The backoff
// doubles from pollInterval up to maxPollInterval, and the whole loop is
// bounded by maxPollTime. Context cancellation is honoured between polls.
func (p *Provider) awaitActive(ctx context.Context, file fileResource) (fileResource, error) {
	if file.State == "ACTIVE" {
		return file, nil
	}

	deadline := time.Now().Add(p.maxPollTime)
	interval := p.pollInterval

	for {
		select {
		case <-ctx.Done():
			return fileResource{}, ctx.Err()
		case <-time.After(interval):
		}

		current, err := p.getFile(ctx, file.Name)
		if err != nil {
			return fileResource{}, fmt.Errorf("gemini: poll file state: %w", err)
		}
		switch current.State {
		case "ACTIVE":
			return current, nil
		case "FAILED":
			return fileResource{}, fmt.Errorf("gemini: file processing failed for %s", file.Name)
		}

		if time.Now().After(deadline) {
			return fileResource{}, ErrFileNotActive
		}
		if interval *= 2; interval > p.maxPollInterval {
			interval = p.maxPollInterval
		}
	}
}

// getFile fetches current metadata for a staged file.
func (p *Provider) getFile(ctx context.Context, name string) (fileResource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1beta/"+name, nil)
	if err != nil {
		return fileResource{}, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fileResource{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fileResource{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var fr fileResource
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return fileResource{}, err
	}
	return fr, nil
}

// deleteFile removes a staged file. Callers treat failures as non-fatal.
func (p *Provider) deleteFile(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/v1beta/"+name, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// generateTranscript asks the model to transcribe the staged file.
func (p *Provider) generateTranscript(ctx context.Context, file fileResource, language string) (string, error) {
	instruction := transcribeInstruction
	if language != "" {
		instruction = fmt.Sprintf("%s The audio is in %s.", transcribeInstruction, language)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: instruction},
				{FileData: &fileData{MIMEType: file.MIMEType, FileURI: file.URI}},
			},
		}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty candidates in response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}
