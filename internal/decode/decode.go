// Package decode turns the raw text returned by the generation backend into a
// structured coaching turn.
//
// The prompt contract asks the model for exactly one of two branches, in a
// machine-parseable shape:
//
//	RESPONSE:::<persona reply>|||SCORE:::<int>/100
//	FEEDBACK:::<corrective feedback>|||SCORE:::<int>/100
//
// Models do not reliably obey the contract, so decoding is a chain of
// progressively weaker readings: the delimiter protocol first, then score-only
// classification, then a whole-text fallback with a zero score. Decode never
// fails — a conversation turn must always be produced — and when in doubt it
// leans toward feedback rather than false praise.
//
// Earlier revisions of the prompt used a "---" separator with a "Score:"
// trailer. That protocol carried no parseable score and is not accepted here;
// its output decodes through the whole-text fallback like any other
// non-conforming completion.
package decode

import (
	"strconv"
	"strings"
)

const (
	// ScoreDelimiter separates the branch payload from the score trailer.
	ScoreDelimiter = "|||SCORE:::"

	// ResponseMarker prefixes a persona-voiced reply (the GOOD branch).
	ResponseMarker = "RESPONSE:::"

	// FeedbackMarker prefixes corrective feedback (the NEEDS-IMPROVEMENT branch).
	FeedbackMarker = "FEEDBACK:::"

	// passingScore is the boundary used to classify marker-less completions:
	// a score at or above it reads as a reply, below it as feedback.
	passingScore = 80
)

// errorPlaceholder is the display text for a turn whose generation call failed
// outright. Kept in the feedback language-agnostic register of a system notice.
const errorPlaceholder = "Sorry, I couldn't generate a response right now. Please try again."

// Result is the structured form of one generated turn.
type Result struct {
	// MainText is the display payload: the persona reply, or the feedback body.
	MainText string

	// IsFeedback reports which branch the completion took. Feedback turns carry
	// corrective advice instead of an in-persona reply.
	IsFeedback bool

	// Score is the persona-alignment score in [0, 100]. Zero when the score was
	// missing or unparseable.
	Score int
}

// Decode parses a raw completion into a [Result]. It never fails: arbitrary
// input yields a whole-text feedback result with a zero score.
func Decode(raw string) Result {
	head := raw
	score := 0

	if parts := strings.SplitN(raw, ScoreDelimiter, 2); len(parts) == 2 {
		head = parts[0]
		score = parseScore(parts[1])
	}
	head = strings.TrimSpace(head)

	switch {
	case strings.HasPrefix(head, FeedbackMarker):
		return Result{
			MainText:   strings.TrimSpace(strings.TrimPrefix(head, FeedbackMarker)),
			IsFeedback: true,
			Score:      score,
		}
	case strings.HasPrefix(head, ResponseMarker):
		return Result{
			MainText:   strings.TrimSpace(strings.TrimPrefix(head, ResponseMarker)),
			IsFeedback: false,
			Score:      score,
		}
	}

	// No branch marker: classify on the score alone. A low or missing score
	// reads as feedback so that a misbehaving model cannot award unearned
	// praise by dropping the marker.
	return Result{
		MainText:   head,
		IsFeedback: score < passingScore,
		Score:      score,
	}
}

// FromError converts a generation-backend failure into a worst-case feedback
// turn. The caller logs the underlying error; the learner sees a readable
// placeholder rather than a stack trace, and analytics see a zero score
// rather than a gap.
func FromError(error) Result {
	return Result{
		MainText:   errorPlaceholder,
		IsFeedback: true,
		Score:      0,
	}
}

// parseScore extracts the integer score from the trailer following the score
// delimiter. The expected shape is "<int>/100", but models append commentary
// after the slash often enough that everything past the first '/' is ignored.
// Any parse failure yields 0; out-of-range values are clamped to [0, 100].
func parseScore(trailer string) int {
	if i := strings.IndexByte(trailer, '/'); i >= 0 {
		trailer = trailer[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(trailer))
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
