package session

import "gonum.org/v1/gonum/stat"

// Stats aggregates the scores of all assistant turns in a session.
type Stats struct {
	// Turns is the number of scored assistant turns.
	Turns int

	// Mean is the average score, 0 when no turns exist.
	Mean float64

	// StdDev is the sample standard deviation of the scores, 0 with fewer than
	// two turns.
	StdDev float64

	// Best and Worst are the extreme scores.
	Best  int
	Worst int

	// Latest is the score of the most recent assistant turn.
	Latest int
}

// ScatterPoint pairs the linguistic features of a learner utterance with the
// score the coach awarded the turn. Plotted as complexity-versus-score to show
// whether more ambitious phrasing is paying off.
type ScatterPoint struct {
	Complexity float64
	Sentiment  float64
	Score      int
}

// Stats computes score aggregates over the transcript.
func (s *Session) Stats() Stats {
	scores := s.ScoreTrend()
	if len(scores) == 0 {
		return Stats{}
	}

	xs := make([]float64, len(scores))
	best, worst := scores[0], scores[0]
	for i, v := range scores {
		xs[i] = float64(v)
		if v > best {
			best = v
		}
		if v < worst {
			worst = v
		}
	}

	out := Stats{
		Turns:  len(scores),
		Mean:   stat.Mean(xs, nil),
		Best:   best,
		Worst:  worst,
		Latest: scores[len(scores)-1],
	}
	if len(xs) > 1 {
		out.StdDev = stat.StdDev(xs, nil)
	}
	return out
}

// ScoreTrend returns the assistant-turn scores in chronological order.
func (s *Session) ScoreTrend() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scores []int
	for _, t := range s.turns {
		if t.Role == RoleAssistant {
			scores = append(scores, t.Score)
		}
	}
	return scores
}

// ScatterPoints pairs each user turn with the score of the assistant turn that
// immediately follows it. User turns without a scored reply are skipped.
func (s *Session) ScatterPoints() []ScatterPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var points []ScatterPoint
	for i := 0; i+1 < len(s.turns); i++ {
		if s.turns[i].Role != RoleUser || s.turns[i+1].Role != RoleAssistant {
			continue
		}
		points = append(points, ScatterPoint{
			Complexity: s.turns[i].Features.Complexity,
			Sentiment:  s.turns[i].Features.Sentiment,
			Score:      s.turns[i+1].Score,
		})
	}
	return points
}
