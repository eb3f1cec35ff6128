package analyze

import (
	"strings"
	"unicode"
)

// minComplexityTokens is the minimum number of whitespace-delimited tokens an
// utterance needs before a readability grade is meaningful. Shorter inputs
// score 0 rather than producing a wild estimate.
const minComplexityTokens = 3

// Complexity returns the Flesch-Kincaid grade level of text.
//
// Inputs with fewer than three tokens return 0, as does any input for which
// the computation degenerates (no countable words or sentences). The result
// can be negative for trivially simple text; the grade is used only relative
// to the diagnosis threshold, so it is not clamped.
func Complexity(text string) float64 {
	tokens := strings.Fields(text)
	if len(tokens) < minComplexityTokens {
		return 0
	}

	words := 0
	syllables := 0
	for _, tok := range tokens {
		w := strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w == "" {
			continue
		}
		words++
		syllables += countSyllables(w)
	}
	if words == 0 {
		return 0
	}

	sentences := countSentences(text)

	// Flesch-Kincaid grade level.
	return 0.39*(float64(words)/float64(sentences)) +
		11.8*(float64(syllables)/float64(words)) -
		15.59
}

// countSentences counts sentence terminators, collapsing runs ("?!", "...")
// into one. Text without a terminator counts as a single sentence.
func countSentences(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inRun {
				count++
				inRun = true
			}
		default:
			inRun = false
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

// countSyllables estimates the syllable count of a single word by counting
// vowel groups, discounting a trailing silent 'e'. Every word counts as at
// least one syllable.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	// Silent trailing 'e' ("make", "hope") — but keep "le" endings ("table").
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
