package speech

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// recommendedLabel is the section heading the coaching prompt asks for in
	// feedback turns. Models drift the exact wording often enough ("Recommended
	// expressions", "Recommend expression", trailing colons lost) that lookup
	// is fuzzy rather than literal.
	recommendedLabel = "recommended expression"

	// labelSimilarity is the minimum Jaro-Winkler score for a line prefix to
	// count as the recommended-expression label.
	labelSimilarity = 0.88
)

// RecommendedExpression extracts the first quoted example sentence from a
// feedback turn. Feedback is written in the learner's feedback language, but
// the examples under the "Recommended expression:" label are in the learning
// language and wrapped in double quotes — those are the only part worth
// vocalising to the learner.
//
// Returns "" when no label or no quoted example is found.
func RecommendedExpression(feedback string) string {
	lines := strings.Split(feedback, "\n")
	for i, line := range lines {
		if !isRecommendedLabel(line) {
			continue
		}
		// The example may sit on the label line itself or on a later line.
		rest := strings.Join(lines[i:], "\n")
		if quoted := firstQuoted(rest); quoted != "" {
			return quoted
		}
	}
	return ""
}

// isRecommendedLabel reports whether line opens a recommended-expression
// section. The comparison ignores case, surrounding whitespace, list bullets
// and anything after a colon, then fuzzy-matches what remains.
func isRecommendedLabel(line string) bool {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*# ")
	if before, _, found := strings.Cut(line, ":"); found {
		line = before
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return false
	}
	return matchr.JaroWinkler(line, recommendedLabel, false) >= labelSimilarity
}

// firstQuoted returns the first substring wrapped in double quotes, accepting
// both straight and typographic quote pairs.
func firstQuoted(s string) string {
	pairs := [][2]string{
		{`"`, `"`},
		{"“", "”"},
	}
	best := ""
	bestAt := -1
	for _, p := range pairs {
		open := strings.Index(s, p[0])
		if open < 0 {
			continue
		}
		rest := s[open+len(p[0]):]
		length := strings.Index(rest, p[1])
		if length < 0 {
			continue
		}
		if bestAt < 0 || open < bestAt {
			best = rest[:length]
			bestAt = open
		}
	}
	return strings.TrimSpace(best)
}
