package speech_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/lingomirror/internal/decode"
	"github.com/MrWong99/lingomirror/internal/speech"
	"github.com/MrWong99/lingomirror/pkg/provider/tts"
	ttsmock "github.com/MrWong99/lingomirror/pkg/provider/tts/mock"
)

// ─── RecommendedExpression ───────────────────────────────────────────────────

func TestRecommendedExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		feedback string
		want     string
	}{
		{
			name: "canonical label with inline example",
			feedback: "Your tone was too tentative.\n" +
				`Recommended expression: "I am confident this will work."`,
			want: "I am confident this will work.",
		},
		{
			name: "example on the following line",
			feedback: "Try to sound more decisive.\n" +
				"Recommended expression:\n" +
				`- "Let's move forward with the plan."`,
			want: "Let's move forward with the plan.",
		},
		{
			name: "drifted plural label still matches",
			feedback: "Work on your phrasing.\n" +
				`Recommended expressions: "Could you clarify that point?"`,
			want: "Could you clarify that point?",
		},
		{
			name: "typographic quotes",
			feedback: "Recommended expression:\n" +
				"“We should prioritise the launch.”",
			want: "We should prioritise the launch.",
		},
		{
			name: "first of two examples wins",
			feedback: "Recommended expression:\n" +
				`1. "First choice."` + "\n" +
				`2. "Second choice."`,
			want: "First choice.",
		},
		{
			name:     "no label yields empty",
			feedback: `Here is an example: "Not under the label."`,
			want:     "",
		},
		{
			name:     "label without quoted example yields empty",
			feedback: "Recommended expression: speak slower next time.",
			want:     "",
		},
		{
			name:     "empty feedback",
			feedback: "",
			want:     "",
		},
		{
			name: "unrelated heading does not match",
			feedback: "General advice:\n" +
				`"Not this one."`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := speech.RecommendedExpression(tt.feedback); got != tt.want {
				t.Errorf("RecommendedExpression(...) = %q, want %q", got, tt.want)
			}
		})
	}
}

// ─── SelectText ──────────────────────────────────────────────────────────────

func TestSelectText(t *testing.T) {
	t.Parallel()

	t.Run("reply is spoken whole", func(t *testing.T) {
		t.Parallel()
		got, err := speech.SelectText(decode.Result{MainText: "  Hello there.  "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Hello there." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("feedback speaks only the quoted example", func(t *testing.T) {
		t.Parallel()
		got, err := speech.SelectText(decode.Result{
			MainText:   "어조가 약했어요.\nRecommended expression: \"I insist we proceed.\"",
			IsFeedback: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "I insist we proceed." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("feedback without example has nothing to speak", func(t *testing.T) {
		t.Parallel()
		_, err := speech.SelectText(decode.Result{MainText: "Just advice.", IsFeedback: true})
		if !errors.Is(err, speech.ErrNothingToSpeak) {
			t.Errorf("err = %v, want ErrNothingToSpeak", err)
		}
	})

	t.Run("empty reply has nothing to speak", func(t *testing.T) {
		t.Parallel()
		_, err := speech.SelectText(decode.Result{MainText: "   "})
		if !errors.Is(err, speech.ErrNothingToSpeak) {
			t.Errorf("err = %v, want ErrNothingToSpeak", err)
		}
	})
}

// ─── Wrap / Strip ────────────────────────────────────────────────────────────

func TestWrapStrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantWrap  string
		wantStrip string
	}{
		{
			name:      "plain text gets an envelope",
			text:      "Hello.",
			wantWrap:  "<speak>Hello.</speak>",
			wantStrip: "Hello.",
		},
		{
			name:      "already wrapped text is left alone",
			text:      "<speak>Hello.</speak>",
			wantWrap:  "<speak>Hello.</speak>",
			wantStrip: "Hello.",
		},
		{
			name:      "empty text",
			text:      "",
			wantWrap:  "<speak></speak>",
			wantStrip: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := speech.Wrap(tt.text); got != tt.wantWrap {
				t.Errorf("Wrap(%q) = %q, want %q", tt.text, got, tt.wantWrap)
			}
			if got := speech.Strip(speech.Wrap(tt.text)); got != tt.wantStrip {
				t.Errorf("Strip(Wrap(%q)) = %q, want %q", tt.text, got, tt.wantStrip)
			}
		})
	}
}

// ─── Speak ───────────────────────────────────────────────────────────────────

func TestSpeak_WrapsInMarkup(t *testing.T) {
	t.Parallel()

	mock := &ttsmock.Provider{Clip: []byte("audio")}
	s := speech.NewSynthesizer(mock, tts.VoiceProfile{ID: "v1"})

	clip := s.Speak(context.Background(), decode.Result{MainText: "Hi.", Score: 90})
	if string(clip) != "audio" {
		t.Fatalf("clip = %q, want %q", clip, "audio")
	}
	if len(mock.SynthesizeCalls) != 1 {
		t.Fatalf("got %d synthesize calls, want 1", len(mock.SynthesizeCalls))
	}
	req := mock.SynthesizeCalls[0].Req
	if req.Text != "<speak>Hi.</speak>" {
		t.Errorf("Text = %q, want markup envelope", req.Text)
	}
	if req.Voice.ID != "v1" {
		t.Errorf("Voice.ID = %q, want %q", req.Voice.ID, "v1")
	}
}

func TestSpeak_DoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	mock := &ttsmock.Provider{Clip: []byte("audio")}
	s := speech.NewSynthesizer(mock, tts.VoiceProfile{ID: "v1"})

	s.Speak(context.Background(), decode.Result{MainText: "<speak>Hi.</speak>"})
	if len(mock.SynthesizeCalls) != 1 {
		t.Fatalf("got %d synthesize calls, want 1", len(mock.SynthesizeCalls))
	}
	if got := mock.SynthesizeCalls[0].Req.Text; got != "<speak>Hi.</speak>" {
		t.Errorf("Text = %q, want single envelope", got)
	}
}

func TestSpeak_RetriesPlainAfterMarkupFailure(t *testing.T) {
	t.Parallel()

	mock := &ttsmock.Provider{
		Clip: []byte("audio"),
		Errs: []error{errors.New("markup not supported"), nil},
	}
	s := speech.NewSynthesizer(mock, tts.VoiceProfile{ID: "v1"})

	clip := s.Speak(context.Background(), decode.Result{MainText: "Hi."})
	if string(clip) != "audio" {
		t.Fatalf("clip = %q, want %q after retry", clip, "audio")
	}
	if len(mock.SynthesizeCalls) != 2 {
		t.Fatalf("got %d synthesize calls, want 2", len(mock.SynthesizeCalls))
	}
	if strings.Contains(mock.SynthesizeCalls[1].Req.Text, "<speak>") {
		t.Errorf("retry must be plain text, got %q", mock.SynthesizeCalls[1].Req.Text)
	}
}

func TestSpeak_DegradesToSilence(t *testing.T) {
	t.Parallel()

	mock := &ttsmock.Provider{Err: errors.New("service down")}
	s := speech.NewSynthesizer(mock, tts.VoiceProfile{ID: "v1"})

	if clip := s.Speak(context.Background(), decode.Result{MainText: "Hi."}); clip != nil {
		t.Errorf("clip = %v, want nil when synthesis keeps failing", clip)
	}
	if len(mock.SynthesizeCalls) != 2 {
		t.Errorf("got %d synthesize calls, want exactly one retry", len(mock.SynthesizeCalls))
	}
}

func TestSpeak_SkipsProviderWhenNothingToSay(t *testing.T) {
	t.Parallel()

	mock := &ttsmock.Provider{Clip: []byte("audio")}
	s := speech.NewSynthesizer(mock, tts.VoiceProfile{ID: "v1"})

	clip := s.Speak(context.Background(), decode.Result{
		MainText:   "No example here.",
		IsFeedback: true,
	})
	if clip != nil {
		t.Errorf("clip = %v, want nil", clip)
	}
	if len(mock.SynthesizeCalls) != 0 {
		t.Errorf("provider called %d times, want 0", len(mock.SynthesizeCalls))
	}
}
