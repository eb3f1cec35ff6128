// Package coach orchestrates one coaching turn end to end: transcribe the
// learner's utterance, annotate it, build the rubric prompt, decode the
// completion, vocalise the reply, and record everything in the session.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/lingomirror/internal/analyze"
	"github.com/MrWong99/lingomirror/internal/decode"
	"github.com/MrWong99/lingomirror/internal/observe"
	"github.com/MrWong99/lingomirror/internal/prompt"
	"github.com/MrWong99/lingomirror/internal/session"
	"github.com/MrWong99/lingomirror/internal/speech"
	"github.com/MrWong99/lingomirror/pkg/provider/llm"
	"github.com/MrWong99/lingomirror/pkg/provider/stt"
)

// ErrNoSpeech is returned by [Coach.RespondAudio] when the recording yields no
// usable transcript. The session is left untouched: a failed transcription is
// not a conversation turn.
var ErrNoSpeech = errors.New("coach: no recognisable speech in recording")

// hintUnavailable is shown when hint generation fails. Hints are advisory, so
// a backend failure degrades to this fixed text instead of an error.
const hintUnavailable = "No hint available right now. Try again after your next message."

// Config assembles a [Coach]. LLM, LearningLanguage, and FeedbackLanguage are
// required; everything else is optional.
type Config struct {
	// LLM generates coaching turns and hints.
	LLM llm.Provider

	// STT transcribes spoken utterances. Nil disables RespondAudio.
	STT stt.Provider

	// Synthesizer vocalises replies. Nil disables speech output.
	Synthesizer *speech.Synthesizer

	// Persona is the initially active persona.
	Persona string

	// LearningLanguage is the language the learner is practising.
	LearningLanguage string

	// FeedbackLanguage is the language corrective feedback is written in.
	FeedbackLanguage string

	// STTLanguage is the BCP-47 tag passed to the transcription backend.
	// Empty lets the backend auto-detect.
	STTLanguage string

	// LevelThreshold overrides the beginner/intermediate boundary. Zero keeps
	// the default.
	LevelThreshold float64

	// HistoryWindow overrides how many trailing turns are folded into a
	// request. Zero keeps the default.
	HistoryWindow int

	// Metrics receives pipeline instrumentation. Nil uses the package default.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Coach drives coaching conversations. Safe for concurrent use, though a
// single learner session is inherently sequential.
type Coach struct {
	llm      llm.Provider
	stt      stt.Provider
	synth    *speech.Synthesizer
	analyzer *analyze.Analyzer
	session  *session.Session
	metrics  *observe.Metrics
	logger   *slog.Logger

	learningLanguage string
	feedbackLanguage string
	sttLanguage      string
	levelThreshold   float64
	historyWindow    int
}

// New creates a Coach with a fresh session.
func New(cfg Config) (*Coach, error) {
	if cfg.LLM == nil {
		return nil, errors.New("coach: LLM provider is required")
	}
	if cfg.LearningLanguage == "" || cfg.FeedbackLanguage == "" {
		return nil, errors.New("coach: learning and feedback languages are required")
	}

	c := &Coach{
		llm:              cfg.LLM,
		stt:              cfg.STT,
		synth:            cfg.Synthesizer,
		analyzer:         analyze.New(),
		session:          session.New(cfg.Persona),
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		learningLanguage: cfg.LearningLanguage,
		feedbackLanguage: cfg.FeedbackLanguage,
		sttLanguage:      cfg.STTLanguage,
		levelThreshold:   cfg.LevelThreshold,
		historyWindow:    cfg.HistoryWindow,
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.levelThreshold <= 0 {
		c.levelThreshold = analyze.LevelThreshold
	}
	if c.historyWindow <= 0 {
		c.historyWindow = prompt.HistoryWindow
	}
	return c, nil
}

// Session exposes the conversation state for display and analytics.
func (c *Coach) Session() *session.Session { return c.session }

// SetPersona switches the active persona, which also clears the transcript.
func (c *Coach) SetPersona(persona string) {
	c.session.SetPersona(persona)
	c.logger.Info("persona switched", "persona", persona)
}

// RespondAudio transcribes a spoken utterance and runs a coaching turn on the
// transcript. Returns [ErrNoSpeech] when the recording cannot be transcribed;
// in that case no turn is recorded and the learner should simply retry.
func (c *Coach) RespondAudio(ctx context.Context, audio []byte) (session.Turn, error) {
	if c.stt == nil {
		return session.Turn{}, errors.New("coach: no STT provider configured")
	}

	start := time.Now()
	transcript, err := c.stt.Transcribe(ctx, audio, stt.Config{
		Language: c.sttLanguage,
		MIMEType: "audio/wav",
	})
	c.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, "stt", "transcribe")
		return session.Turn{}, fmt.Errorf("%w: %v", ErrNoSpeech, err)
	}

	text := strings.TrimSpace(transcript.Text)
	// Some backends report failures in-band as a bracketed notice instead of
	// an error; treat those like an empty transcript.
	if text == "" || strings.HasPrefix(text, "[") {
		c.logger.Warn("transcription produced no usable text", "transcript", text)
		return session.Turn{}, ErrNoSpeech
	}

	c.logger.Debug("utterance transcribed",
		"text", text, "confidence", transcript.Confidence)
	return c.RespondText(ctx, text)
}

// RespondText runs one coaching turn on a typed or transcribed utterance and
// returns the recorded assistant turn.
//
// The turn always completes: a generation failure degrades to a placeholder
// feedback turn with a zero score, and a synthesis failure degrades to a
// silent turn.
func (c *Coach) RespondText(ctx context.Context, utterance string) (session.Turn, error) {
	turnStart := time.Now()

	features := c.analyzer.Extract(utterance)
	level := analyze.DiagnoseAt(c.levelThreshold, features.Complexity, features.Sentiment)
	c.logger.Debug("utterance analyzed", "features", features, "level", level)

	req := prompt.Coaching(prompt.Params{
		Persona:          c.session.Persona(),
		LearningLanguage: c.learningLanguage,
		FeedbackLanguage: c.feedbackLanguage,
		Utterance:        utterance,
		History:          c.session.History(),
		Window:           c.historyWindow,
	})

	llmStart := time.Now()
	resp, err := c.llm.Complete(ctx, req)
	c.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())

	var (
		result decode.Result
		raw    string
		failed bool
	)
	switch {
	case err != nil:
		c.metrics.RecordProviderError(ctx, "llm", "complete")
		c.logger.Error("completion failed", "error", err)
		result = decode.FromError(err)
		failed = true
	case resp == nil || resp.Content == "":
		c.metrics.RecordProviderError(ctx, "llm", "empty")
		result = decode.FromError(errors.New("empty completion"))
		failed = true
	default:
		raw = resp.Content
		result = decode.Decode(raw)
		if !strings.Contains(raw, decode.ScoreDelimiter) {
			c.metrics.DecodeFallbacks.Add(ctx, 1)
			c.logger.Warn("completion missed the output contract", "raw", raw)
		}
	}

	// Placeholder turns are not vocalised: hearing an apology clip adds
	// nothing over reading it.
	var clip []byte
	if c.synth != nil && !failed {
		ttsStart := time.Now()
		clip = c.synth.Speak(ctx, result)
		c.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
	}

	c.session.AppendUser(session.Turn{
		RawText:     utterance,
		DisplayText: utterance,
		Features:    features,
		Level:       level,
	})
	assistant := session.Turn{
		RawText:     raw,
		DisplayText: result.MainText,
		IsFeedback:  result.IsFeedback,
		Score:       result.Score,
		Audio:       clip,
	}
	c.session.AppendAssistant(assistant)

	c.metrics.RecordTurn(ctx, c.session.Persona(), result.IsFeedback, result.Score)
	c.metrics.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())

	return c.session.Turns()[len(c.session.Turns())-1], nil
}

// Hint suggests what the learner could say next, calibrated to their
// diagnosed level. Never fails: a backend error yields fixed placeholder
// text, because a hint is not worth interrupting practice over.
func (c *Coach) Hint(ctx context.Context) string {
	level := c.session.CurrentLevel()
	c.metrics.RecordHint(ctx, string(level))

	req := prompt.Hint(prompt.HintParams{
		Level:            level,
		Persona:          c.session.Persona(),
		LearningLanguage: c.learningLanguage,
		History:          c.session.History(),
		Window:           c.historyWindow,
	})

	start := time.Now()
	resp, err := c.llm.Complete(ctx, req)
	c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		c.metrics.RecordProviderError(ctx, "llm", "hint")
		c.logger.Warn("hint generation failed", "error", err)
		return hintUnavailable
	}
	return strings.TrimSpace(resp.Content)
}
