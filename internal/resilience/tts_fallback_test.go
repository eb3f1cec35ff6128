package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/lingomirror/pkg/provider/tts"
	ttsmock "github.com/MrWong99/lingomirror/pkg/provider/tts/mock"
)

func TestTTSFallback_Synthesize_Failover(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("primary down")}
	secondary := &ttsmock.Provider{Clip: []byte("audio")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	clip, err := fb.Synthesize(context.Background(), tts.SpeechRequest{
		Text:  "hello",
		Voice: tts.VoiceProfile{ID: "v1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(clip) != "audio" {
		t.Fatalf("clip = %q, want 'audio'", clip)
	}
}

func TestTTSFallback_ListVoices_Failover(t *testing.T) {
	primary := &ttsmock.Provider{ListVoicesErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{
		Voices: []tts.VoiceProfile{{ID: "v1", Name: "Aria"}},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	voices, err := fb.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "v1" {
		t.Fatalf("voices = %+v, want one voice v1", voices)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("primary down")}
	secondary := &ttsmock.Provider{Err: errors.New("secondary down")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Synthesize(context.Background(), tts.SpeechRequest{Text: "hello"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
