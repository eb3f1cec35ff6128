// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a hosted transcription service (e.g., the OpenAI
// Whisper API or the Gemini Files API) and exposes a uniform batch interface:
// one complete audio recording in, one transcript out. Utterances in
// LingoMirror arrive as finished recordings rather than live frames, so there
// is no streaming session to manage — but a provider may internally stage the
// recording in remote temporary storage and poll an asynchronous job.
// Implementations that do so must clean up every staged artifact on all exit
// paths, including failure and cancellation.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Config carries recognition hints for a Transcribe call.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US",
	// "ko-KR"). An empty string lets the provider auto-detect, if supported.
	Language string

	// MIMEType describes the audio encoding (e.g., "audio/wav"). Providers
	// that require a content type should default to "audio/wav" when empty.
	MIMEType string
}

// Transcript is the result of a successful Transcribe call.
type Transcript struct {
	// Text is the transcribed speech content. May be empty when the recording
	// contained no recognisable speech; callers must treat an empty transcript
	// as a recognition failure, not as an empty utterance.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe converts a complete audio recording into text. audio holds the
	// raw encoded bytes of the recording (format per cfg.MIMEType).
	//
	// The call blocks until the transcript is available, the provider gives up,
	// or ctx is cancelled. Implementations with asynchronous server-side jobs
	// must bound their polling and must not leak staged remote artifacts on any
	// return path.
	Transcribe(ctx context.Context, audio []byte, cfg Config) (Transcript, error)
}
