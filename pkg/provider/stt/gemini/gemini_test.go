package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/lingomirror/pkg/provider/stt"
	"github.com/MrWong99/lingomirror/pkg/provider/stt/gemini"
)

// ---- helpers ----------------------------------------------------------------

// fakeFilesAPI simulates the Gemini Files + generateContent endpoints. It
// records every request it serves so tests can assert on the call sequence.
type fakeFilesAPI struct {
	t *testing.T

	mu    sync.Mutex
	calls []string // "METHOD path"

	uploadState    string // state reported by the upload response
	pollStates     []string
	pollIdx        int
	generateText   string
	generateStatus int
	uploadStatus   int
}

func newFakeFilesAPI(t *testing.T) *fakeFilesAPI {
	t.Helper()
	return &fakeFilesAPI{
		t:              t,
		uploadState:    "ACTIVE",
		generateText:   "hello world",
		generateStatus: http.StatusOK,
		uploadStatus:   http.StatusOK,
	}
}

func (f *fakeFilesAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeFilesAPI) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFilesAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			f.t.Errorf("x-goog-api-key = %q, want test-key", got)
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload/v1beta/files":
			if f.uploadStatus != http.StatusOK {
				http.Error(w, "upload failed", f.uploadStatus)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"file": map[string]string{
					"name":     "files/abc123",
					"uri":      "https://files.example/abc123",
					"state":    f.uploadState,
					"mimeType": "audio/wav",
				},
			})

		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/files/abc123":
			f.mu.Lock()
			// An exhausted script keeps reporting its last state, so a file
			// scripted as stuck in PROCESSING stays stuck forever.
			state := "ACTIVE"
			if len(f.pollStates) > 0 {
				if f.pollIdx >= len(f.pollStates) {
					state = f.pollStates[len(f.pollStates)-1]
				} else {
					state = f.pollStates[f.pollIdx]
					f.pollIdx++
				}
			}
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]string{
				"name":     "files/abc123",
				"uri":      "https://files.example/abc123",
				"state":    state,
				"mimeType": "audio/wav",
			})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":generateContent"):
			if f.generateStatus != http.StatusOK {
				http.Error(w, "generation failed", f.generateStatus)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content": map[string]any{
						"parts": []map[string]string{{"text": f.generateText}},
					},
				}},
			})

		case r.Method == http.MethodDelete && r.URL.Path == "/v1beta/files/abc123":
			w.WriteHeader(http.StatusOK)

		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})
}

func (f *fakeFilesAPI) deleteCalled() bool {
	for _, c := range f.recorded() {
		if c == "DELETE /v1beta/files/abc123" {
			return true
		}
	}
	return false
}

func newProvider(t *testing.T, srv *httptest.Server) *gemini.Provider {
	t.Helper()
	p, err := gemini.New("test-key",
		gemini.WithBaseURL(srv.URL),
		gemini.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyAPIKey_ReturnsError(t *testing.T) {
	_, err := gemini.New("")
	if err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := gemini.New("test-key",
		gemini.WithModel("gemini-2.5-pro"),
		gemini.WithBaseURL("http://localhost:1234"),
		gemini.WithHTTPClient(&http.Client{}),
		gemini.WithPollTimings(time.Second, 2*time.Second, 10*time.Second),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- transcription flow -----------------------------------------------------

func TestTranscribe_EmptyAudio_ReturnsError(t *testing.T) {
	p, _ := gemini.New("test-key")
	_, err := p.Transcribe(context.Background(), nil, stt.Config{})
	if err == nil {
		t.Fatal("expected error for empty audio, got nil")
	}
}

func TestTranscribe_ActiveFile_ReturnsTranscript(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.generateText = "I would like to schedule a meeting"
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	tr, err := p.Transcribe(context.Background(), []byte("RIFF...."), stt.Config{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "I would like to schedule a meeting" {
		t.Errorf("Text = %q", tr.Text)
	}
	if !api.deleteCalled() {
		t.Error("staged file was not deleted after transcription")
	}
}

func TestTranscribe_SkipsPollWhenAlreadyActive(t *testing.T) {
	api := newFakeFilesAPI(t)
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	if _, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	for _, c := range api.recorded() {
		if c == "GET /v1beta/files/abc123" {
			t.Error("file state was polled even though the upload reported ACTIVE")
		}
	}
}

func TestTranscribe_PollsUntilActive(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.uploadState = "PROCESSING"
	api.pollStates = []string{"PROCESSING", "ACTIVE"}
	api.generateText = "good morning"
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	tr, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "good morning" {
		t.Errorf("Text = %q", tr.Text)
	}

	polls := 0
	for _, c := range api.recorded() {
		if c == "GET /v1beta/files/abc123" {
			polls++
		}
	}
	if polls != 2 {
		t.Errorf("polled %d time(s), want 2", polls)
	}
}

func TestTranscribe_StuckFile_GivesUpAndCleansUp(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.uploadState = "PROCESSING"
	api.pollStates = []string{"PROCESSING"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p, err := gemini.New("test-key",
		gemini.WithBaseURL(srv.URL),
		gemini.WithHTTPClient(srv.Client()),
		gemini.WithPollTimings(time.Millisecond, 5*time.Millisecond, 25*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transcribe(context.Background(), []byte("audio"), stt.Config{})
	if !errors.Is(err, gemini.ErrFileNotActive) {
		t.Fatalf("err = %v, want ErrFileNotActive", err)
	}
	if !api.deleteCalled() {
		t.Error("staged file should be deleted when activation times out")
	}
}

func TestTranscribe_FailedFile_ReturnsErrorAndCleansUp(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.uploadState = "PROCESSING"
	api.pollStates = []string{"FAILED"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	_, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{})
	if err == nil {
		t.Fatal("expected error for FAILED file state, got nil")
	}
	if !api.deleteCalled() {
		t.Error("staged file should be deleted even when processing fails")
	}
}

func TestTranscribe_GenerationError_StillDeletesFile(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.generateStatus = http.StatusInternalServerError
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	_, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{})
	if err == nil {
		t.Fatal("expected error when generation fails, got nil")
	}
	if !api.deleteCalled() {
		t.Error("staged file should be deleted when generation fails")
	}
}

func TestTranscribe_UploadError_ReturnsError(t *testing.T) {
	api := newFakeFilesAPI(t)
	api.uploadStatus = http.StatusForbidden
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	p := newProvider(t, srv)
	_, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{})
	if err == nil {
		t.Fatal("expected error when upload fails, got nil")
	}
	if api.deleteCalled() {
		t.Error("delete should not be attempted when the upload never succeeded")
	}
}

func TestTranscribe_CancelledContext_ReturnsError(t *testing.T) {
	api := newFakeFilesAPI(t)
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled

	p := newProvider(t, srv)
	if _, err := p.Transcribe(ctx, []byte("audio"), stt.Config{}); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestTranscribe_LanguageHintInPrompt(t *testing.T) {
	api := newFakeFilesAPI(t)
	var (
		mu          sync.Mutex
		instruction string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":generateContent") {
			var body struct {
				Contents []struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"contents"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
				mu.Lock()
				instruction = body.Contents[0].Parts[0].Text
				mu.Unlock()
			}
		}
		api.handler().ServeHTTP(w, r)
	}))
	defer srv.Close()

	p := newProvider(t, srv)
	if _, err := p.Transcribe(context.Background(), []byte("audio"), stt.Config{Language: "en-US"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(instruction, "en-US") {
		t.Errorf("transcription prompt should mention the language hint, got %q", instruction)
	}
}
