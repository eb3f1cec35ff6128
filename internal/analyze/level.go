package analyze

// Level is a coarse proficiency label for the learner, recomputed after every
// user turn and consumed by hint generation.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
)

// IsValid reports whether l is a recognised level.
func (l Level) IsValid() bool {
	return l == LevelBeginner || l == LevelIntermediate
}

const (
	// LevelThreshold is the adjusted-score boundary between beginner and
	// intermediate. An earlier revision diagnosed on complexity alone with a
	// boundary of 8; the sentiment-weighted rule below superseded it.
	LevelThreshold = 7.5

	// sentimentWeight scales the polarity contribution: positive delivery
	// nudges the score up slightly, negative delivery down.
	sentimentWeight = 0.5
)

// Diagnose maps an utterance's complexity and sentiment onto a [Level] using
// the default threshold. It is a total function: any real inputs are valid,
// and for fixed sentiment the result is monotonic in complexity.
func Diagnose(complexity, sentiment float64) Level {
	return DiagnoseAt(LevelThreshold, complexity, sentiment)
}

// DiagnoseAt is [Diagnose] with an explicit threshold, for deployments that
// tune the boundary in configuration.
func DiagnoseAt(threshold, complexity, sentiment float64) Level {
	adjusted := complexity + sentimentWeight*sentiment
	if adjusted >= threshold {
		return LevelIntermediate
	}
	return LevelBeginner
}
