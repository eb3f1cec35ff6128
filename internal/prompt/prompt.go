// Package prompt constructs the generation requests for coaching turns and
// hints. The coaching prompt carries the evaluation rubric and the exact
// output contract that [decode.Decode] parses; the two must evolve together.
package prompt

import (
	"fmt"

	"github.com/MrWong99/lingomirror/internal/analyze"
	"github.com/MrWong99/lingomirror/pkg/provider/llm"
)

const (
	// HistoryWindow is the number of trailing conversation turns folded into a
	// request. Kept small: older turns add cost without improving the
	// evaluation of the current utterance.
	HistoryWindow = 4

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// Params carries everything needed to build a coaching request.
type Params struct {
	// Persona is the behavioural style the learner is practising.
	Persona string

	// LearningLanguage is the language the learner is speaking.
	LearningLanguage string

	// FeedbackLanguage is the language corrective feedback is written in.
	FeedbackLanguage string

	// Utterance is the learner's latest message.
	Utterance string

	// History is the prior conversation, oldest first. May be empty.
	History []llm.Message

	// Window caps how many trailing history entries are folded in. Zero uses
	// [HistoryWindow].
	Window int
}

// Coaching builds the generation request for one conversation turn.
//
// The system prompt states the rubric (80 is the pass boundary), mandates the
// two mutually exclusive branches, and pins the machine-parseable output
// shape. The learner's utterance is folded into the trimmed history following
// the role-alternation rules of [FoldInstruction].
func Coaching(p Params) llm.CompletionRequest {
	sys := fmt.Sprintf(`You are an AI speech coach. The learner is practising speaking %[2]s in the style of the persona %[1]q and you are their conversation partner.

Evaluate the learner's latest message on a 0-100 scale. Award 80 or above only when the message BOTH strongly matches the %[1]q persona AND is fluent, accurate %[2]s. Otherwise award below 80.

Then take exactly one of two branches:
- GOOD (score 80 or above): write only a short, natural reply in the persona's voice, in %[2]s. Do not mention the evaluation.
- NEEDS IMPROVEMENT (score below 80): write only concise corrective feedback in %[3]s explaining how to better embody the persona. The feedback must contain a section labelled "Recommended expression:" followed by 1-2 example sentences in %[2]s, each wrapped in double quotes.

Format your entire output exactly as one line:
RESPONSE:::<your reply>|||SCORE:::<score>/100
or
FEEDBACK:::<your feedback>|||SCORE:::<score>/100

Output nothing before or after that line.`,
		p.Persona, p.LearningLanguage, p.FeedbackLanguage)

	window := p.Window
	if window <= 0 {
		window = HistoryWindow
	}

	return llm.CompletionRequest{
		SystemPrompt: sys,
		Messages:     FoldInstruction(p.History, p.Utterance, window),
		Temperature:  defaultTemperature,
		MaxTokens:    defaultMaxTokens,
	}
}

// HintParams carries everything needed to build a hint request.
type HintParams struct {
	// Level calibrates hint difficulty.
	Level analyze.Level

	// Persona and LearningLanguage mirror the coaching session settings.
	Persona          string
	LearningLanguage string

	// History is the prior conversation, oldest first. May be empty.
	History []llm.Message

	// Window caps how many trailing history entries are folded in. Zero uses
	// [HistoryWindow].
	Window int
}

// Hint builds the generation request for a "what could I say next" hint.
// Beginners get one full sentence; intermediate learners get 3-4 keywords to
// compose with themselves. The model is told to output the hint bare, with no
// framing, because the result is shown verbatim.
func Hint(p HintParams) llm.CompletionRequest {
	var ask string
	if p.Level == analyze.LevelIntermediate {
		ask = fmt.Sprintf("Suggest 3-4 %s keywords the learner could build their next message from.", p.LearningLanguage)
	} else {
		ask = fmt.Sprintf("Suggest one complete %s sentence the learner could say next.", p.LearningLanguage)
	}

	sys := fmt.Sprintf(`You are helping a learner practise speaking %s as the persona %q. %s Fit the suggestion to where the conversation currently stands. Output only the suggestion itself, with no introduction or explanation.`,
		p.LearningLanguage, p.Persona, ask)

	instruction := "Give me a hint for what to say next."

	window := p.Window
	if window <= 0 {
		window = HistoryWindow
	}

	return llm.CompletionRequest{
		SystemPrompt: sys,
		Messages:     FoldInstruction(p.History, instruction, window),
		Temperature:  defaultTemperature,
		MaxTokens:    256,
	}
}
