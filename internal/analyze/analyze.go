// Package analyze computes linguistic features of a learner utterance:
// sentiment polarity, a readability-based complexity grade, and a handful of
// content keywords. A rule-based diagnoser maps the features onto a coarse
// proficiency level used to calibrate hint difficulty.
//
// All feature functions are pure with respect to their input: the same text
// always yields the same result, and no function here performs I/O. An
// [Analyzer] is read-only after construction and safe for concurrent use.
package analyze

import (
	"fmt"

	"github.com/jdkato/prose/v2"
	"github.com/jonreiter/govader"
)

// Features bundles the per-utterance annotations attached to a user turn.
type Features struct {
	// Complexity is a readability-grade estimate of the utterance. Zero for
	// inputs too short to grade reliably.
	Complexity float64

	// Sentiment is the polarity of the utterance in [-1, 1].
	Sentiment float64

	// Keywords holds up to three content nouns in document order.
	Keywords []string
}

// Analyzer computes [Features]. Construct one with [New] and reuse it; the
// underlying sentiment lexicon is loaded once.
type Analyzer struct {
	sentiment *govader.SentimentIntensityAnalyzer
}

// New returns a ready-to-use Analyzer.
func New() *Analyzer {
	return &Analyzer{
		sentiment: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Sentiment returns the polarity of text in [-1, 1] (VADER compound score).
// Deterministic for a given text and lexicon.
func (a *Analyzer) Sentiment(text string) float64 {
	return a.sentiment.PolarityScores(text).Compound
}

// Keywords returns up to three nouns and proper nouns from text, in document
// order. Empty input yields an empty slice. POS-tagging failures are treated
// as "no keywords found" rather than surfaced.
func (a *Analyzer) Keywords(text string) []string {
	if text == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil
	}

	var keywords []string
	for _, tok := range doc.Tokens() {
		switch tok.Tag {
		case "NN", "NNS", "NNP", "NNPS":
			keywords = append(keywords, tok.Text)
			if len(keywords) == 3 {
				return keywords
			}
		}
	}
	return keywords
}

// Extract computes the full feature set for text.
func (a *Analyzer) Extract(text string) Features {
	return Features{
		Complexity: Complexity(text),
		Sentiment:  a.Sentiment(text),
		Keywords:   a.Keywords(text),
	}
}

// String implements fmt.Stringer for log output.
func (f Features) String() string {
	return fmt.Sprintf("complexity=%.2f sentiment=%.2f keywords=%v",
		f.Complexity, f.Sentiment, f.Keywords)
}
