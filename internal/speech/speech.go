// Package speech decides what part of a coaching turn gets vocalised and
// drives the TTS provider to produce the clip.
//
// Synthesis is strictly best-effort: a turn whose clip cannot be produced is
// still a complete turn, so Speak degrades to silence instead of failing the
// conversation.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MrWong99/lingomirror/internal/decode"
	"github.com/MrWong99/lingomirror/pkg/provider/tts"
)

// ErrNothingToSpeak is returned by SelectText when a turn carries no
// vocalisable content, e.g. feedback without a quoted example sentence.
var ErrNothingToSpeak = errors.New("speech: turn has no vocalisable content")

// SelectText picks the fragment of a decoded turn worth vocalising. Persona
// replies are spoken whole; feedback turns are written in the feedback
// language, so only the quoted recommended expression (in the learning
// language) is spoken.
func SelectText(res decode.Result) (string, error) {
	var text string
	if res.IsFeedback {
		text = RecommendedExpression(res.MainText)
	} else {
		text = strings.TrimSpace(res.MainText)
	}
	if text == "" {
		return "", ErrNothingToSpeak
	}
	return text, nil
}

// Wrap encloses text in a <speak> markup envelope, unless it already carries
// one.
func Wrap(text string) string {
	if strings.HasPrefix(text, "<speak>") {
		return text
	}
	return "<speak>" + text + "</speak>"
}

// Strip removes the <speak> markup envelope if present.
func Strip(text string) string {
	text = strings.TrimPrefix(text, "<speak>")
	return strings.TrimSuffix(text, "</speak>")
}

// Synthesizer turns decoded coaching turns into audio clips using a TTS
// provider and a fixed voice.
type Synthesizer struct {
	provider tts.Provider
	voice    tts.VoiceProfile
	logger   *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// NewSynthesizer creates a Synthesizer speaking with the given voice.
func NewSynthesizer(p tts.Provider, voice tts.VoiceProfile, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		provider: p,
		voice:    voice,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Voice returns the voice profile clips are synthesised with.
func (s *Synthesizer) Voice() tts.VoiceProfile { return s.voice }

// Speak synthesises the vocalisable part of res and returns the clip.
//
// The text is first sent wrapped in an SSML <speak> envelope, which improves
// prosody on backends that honour it. Some backends reject markup outright, so
// a failed markup attempt is retried once with the plain text. If that also
// fails the error is logged and a nil clip is returned: the turn proceeds
// silently.
func (s *Synthesizer) Speak(ctx context.Context, res decode.Result) []byte {
	text, err := SelectText(res)
	if err != nil {
		s.logger.Debug("nothing to vocalise for turn", "isFeedback", res.IsFeedback)
		return nil
	}

	clip, err := s.provider.Synthesize(ctx, tts.SpeechRequest{
		Text:  Wrap(text),
		Voice: s.voice,
	})
	if err == nil {
		return clip
	}
	s.logger.Warn("markup synthesis failed, retrying with plain text",
		"voice", s.voice.ID, "error", err)

	clip, err = s.provider.Synthesize(ctx, tts.SpeechRequest{
		Text:  Strip(text),
		Voice: s.voice,
	})
	if err != nil {
		s.logger.Error("speech synthesis failed, turn proceeds without audio",
			"voice", s.voice.ID, "error", err)
		return nil
	}
	return clip
}
