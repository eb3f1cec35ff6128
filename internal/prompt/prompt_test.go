package prompt_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/lingomirror/internal/analyze"
	"github.com/MrWong99/lingomirror/internal/prompt"
	"github.com/MrWong99/lingomirror/pkg/provider/llm"
)

func user(s string) llm.Message      { return llm.Message{Role: "user", Content: s} }
func assistant(s string) llm.Message { return llm.Message{Role: "assistant", Content: s} }

// ─── FoldInstruction ─────────────────────────────────────────────────────────

func TestFoldInstruction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		history []llm.Message
		want    []llm.Message
	}{
		{
			name:    "empty history appends a user message",
			history: nil,
			want:    []llm.Message{user("go")},
		},
		{
			name:    "assistant-ending history appends a user message",
			history: []llm.Message{user("a"), assistant("b")},
			want:    []llm.Message{user("a"), assistant("b"), user("go")},
		},
		{
			name:    "user-ending history merges into the last message",
			history: []llm.Message{assistant("a"), user("b")},
			want:    []llm.Message{assistant("a"), user("b\n\ngo")},
		},
		{
			name:    "consecutive same-role turns collapse to the latest",
			history: []llm.Message{user("a"), user("b"), assistant("c")},
			want:    []llm.Message{user("b"), assistant("c"), user("go")},
		},
		{
			name: "window trims to the last four entries",
			history: []llm.Message{
				user("1"), assistant("2"), user("3"),
				assistant("4"), user("5"), assistant("6"),
			},
			want: []llm.Message{user("3"), assistant("4"), user("5"), assistant("6"), user("go")},
		},
		{
			name:    "collapse then merge",
			history: []llm.Message{assistant("a"), user("b"), user("c")},
			want:    []llm.Message{assistant("a"), user("c\n\ngo")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := prompt.FoldInstruction(tt.history, "go", prompt.HistoryWindow)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d messages, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("message %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			// Role alternation must hold for the final request.
			for i := 1; i < len(got); i++ {
				if got[i].Role == got[i-1].Role {
					t.Errorf("messages %d and %d share role %q", i-1, i, got[i].Role)
				}
			}
		})
	}
}

func TestFoldInstruction_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	history := []llm.Message{assistant("a"), user("b")}
	_ = prompt.FoldInstruction(history, "go", prompt.HistoryWindow)

	if history[1].Content != "b" {
		t.Errorf("input history mutated: %+v", history[1])
	}
}

// ─── Coaching ────────────────────────────────────────────────────────────────

func TestCoaching_ContractElements(t *testing.T) {
	t.Parallel()

	req := prompt.Coaching(prompt.Params{
		Persona:          "confident business leader",
		LearningLanguage: "English",
		FeedbackLanguage: "Korean",
		Utterance:        "I think we should maybe consider the proposal",
	})

	for _, fragment := range []string{
		"confident business leader",
		"English",
		"Korean",
		"80",
		"RESPONSE:::",
		"FEEDBACK:::",
		"|||SCORE:::",
		"Recommended expression:",
	} {
		if !strings.Contains(req.SystemPrompt, fragment) {
			t.Errorf("system prompt missing %q", fragment)
		}
	}

	if len(req.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(req.Messages))
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "maybe consider the proposal") {
		t.Errorf("utterance not folded into final user message: %+v", last)
	}
}

func TestCoaching_EndsOnUserRole(t *testing.T) {
	t.Parallel()

	req := prompt.Coaching(prompt.Params{
		Persona:          "kind friend",
		LearningLanguage: "English",
		FeedbackLanguage: "Korean",
		Utterance:        "hello again",
		History: []llm.Message{
			user("hi"), assistant("Hello! How are you?"),
		},
	})

	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		t.Errorf("request must end on a user message, got %q", last.Role)
	}
}

// ─── Hint ────────────────────────────────────────────────────────────────────

func TestHint_LevelCalibration(t *testing.T) {
	t.Parallel()

	beginner := prompt.Hint(prompt.HintParams{
		Level:            analyze.LevelBeginner,
		Persona:          "logical analyst",
		LearningLanguage: "English",
	})
	if !strings.Contains(beginner.SystemPrompt, "one complete") {
		t.Errorf("beginner hint should ask for a full sentence: %q", beginner.SystemPrompt)
	}

	intermediate := prompt.Hint(prompt.HintParams{
		Level:            analyze.LevelIntermediate,
		Persona:          "logical analyst",
		LearningLanguage: "English",
	})
	if !strings.Contains(intermediate.SystemPrompt, "keywords") {
		t.Errorf("intermediate hint should ask for keywords: %q", intermediate.SystemPrompt)
	}
}

func TestHint_TrimsHistoryLikeCoaching(t *testing.T) {
	t.Parallel()

	req := prompt.Hint(prompt.HintParams{
		Level:            analyze.LevelBeginner,
		Persona:          "kind friend",
		LearningLanguage: "English",
		History: []llm.Message{
			user("a"), user("b"), assistant("c"), user("d"),
		},
	})

	for i := 1; i < len(req.Messages); i++ {
		if req.Messages[i].Role == req.Messages[i-1].Role {
			t.Fatalf("hint request roles do not alternate: %+v", req.Messages)
		}
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		t.Errorf("hint request must end on a user message, got %q", last.Role)
	}
}
