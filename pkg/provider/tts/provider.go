// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// presents a uniform blocking interface: text in, one complete audio clip out.
// Replies in LingoMirror are short coaching utterances that are played as
// whole clips, so there is no streaming mixer to feed — implementations that
// synthesise incrementally accumulate the chunks internally.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// SpeechRequest carries the text and voice selection for a Synthesize call.
type SpeechRequest struct {
	// Text is the content to vocalise. It may be wrapped in an SSML <speak>
	// envelope; providers without SSML support should strip the markup rather
	// than read the tags aloud.
	Text string

	// Voice is the voice profile to synthesise with. Voice.ID must be set.
	Voice VoiceProfile
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize converts req.Text into a single complete audio clip.
	//
	// The call blocks until synthesis finishes or ctx is cancelled. Returns an
	// error if the clip cannot be produced; callers decide whether a missing
	// clip is fatal (in the coaching loop it never is).
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)

	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
