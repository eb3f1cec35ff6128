// Package session holds the in-memory state of one coaching conversation: the
// turn transcript with its annotations, the active persona, and the learner's
// diagnosed level. State lives only for the lifetime of the process.
package session

import (
	"sync"
	"time"

	"github.com/MrWong99/lingomirror/internal/analyze"
	"github.com/MrWong99/lingomirror/pkg/provider/llm"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation transcript.
type Turn struct {
	// Role identifies the speaker.
	Role Role

	// RawText is the unprocessed text: the transcript of the learner's audio,
	// or the model output before decoding.
	RawText string

	// DisplayText is what the UI shows: the learner's utterance, or the decoded
	// reply/feedback body.
	DisplayText string

	// IsFeedback marks assistant turns that carry corrective feedback instead
	// of an in-persona reply.
	IsFeedback bool

	// Score is the persona-alignment score of an assistant turn, in [0, 100].
	Score int

	// Audio is the synthesised clip for an assistant turn, nil when synthesis
	// was skipped or failed.
	Audio []byte

	// Features holds the linguistic annotations of a user turn.
	Features analyze.Features

	// Level is the proficiency diagnosed from this user turn.
	Level analyze.Level

	// At is when the turn was recorded.
	At time.Time
}

// Session is the mutable conversation state. Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	persona string
	turns   []Turn
	level   analyze.Level
	now     func() time.Time
}

// New creates a session for the given persona. The learner starts out
// diagnosed as a beginner until their first utterance says otherwise.
func New(persona string) *Session {
	return &Session{
		persona: persona,
		level:   analyze.LevelBeginner,
		now:     time.Now,
	}
}

// Persona returns the active persona.
func (s *Session) Persona() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

// SetPersona switches the active persona and clears the transcript: the
// conversation so far belongs to the old persona and evaluating new turns
// against it would mix rubrics. The diagnosed level carries over, since it
// describes the learner rather than the conversation.
func (s *Session) SetPersona(persona string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = persona
	s.turns = nil
}

// Clear drops the transcript and resets the diagnosed level.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.level = analyze.LevelBeginner
}

// AppendUser records a learner turn and updates the diagnosed level from it.
func (s *Session) AppendUser(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Role = RoleUser
	if t.At.IsZero() {
		t.At = s.now()
	}
	if t.Level.IsValid() {
		s.level = t.Level
	}
	s.turns = append(s.turns, t)
}

// AppendAssistant records a coach turn.
func (s *Session) AppendAssistant(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Role = RoleAssistant
	if t.At.IsZero() {
		t.At = s.now()
	}
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the transcript, oldest first.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// CurrentLevel returns the most recently diagnosed proficiency level.
func (s *Session) CurrentLevel() analyze.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// History converts the transcript into generation-request messages, oldest
// first. User turns contribute their display text; assistant turns contribute
// their raw model output so the model sees its own prior formatting.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, 0, len(s.turns))
	for _, t := range s.turns {
		m := llm.Message{Role: string(t.Role)}
		if t.Role == RoleAssistant {
			m.Content = t.RawText
		} else {
			m.Content = t.DisplayText
		}
		out = append(out, m)
	}
	return out
}
