package decision

import (
	"fmt"
	"slices"
)

// Ranked pairs an option with its aggregate score.
type Ranked struct {
	Option Option  `json:"option"`
	Score  float64 `json:"score"`
}

// ComputeScore returns Σ o.Scores[f] * w[f] over fs. A factor in fs that is
// absent from either o or w fails with ErrMissingFactor.
func ComputeScore(o Option, w WeightVector, fs []Factor) (float64, error) {
	var score float64
	for _, f := range fs {
		r, ok := o.Scores[f]
		if !ok {
			return 0, fmt.Errorf("option %q: %w: %s", o.ID, ErrMissingFactor, f)
		}
		weight, ok := w[f]
		if !ok {
			return 0, fmt.Errorf("weights: %w: %s", ErrMissingFactor, f)
		}
		score += float64(r) * float64(weight)
	}
	return score, nil
}

// Rank scores every option and orders them by score descending. Options
// with equal scores keep their input order. The input slice is not
// modified.
func Rank(options []Option, w WeightVector, fs []Factor) ([]Ranked, error) {
	out := make([]Ranked, 0, len(options))
	for _, o := range options {
		s, err := ComputeScore(o, w, fs)
		if err != nil {
			return nil, err
		}
		out = append(out, Ranked{Option: o, Score: s})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out, nil
}

// NormalizeForDisplay expresses each score as a fraction of the largest
// score, with the denominator floored at 1. Presentation only.
func NormalizeForDisplay(scores []float64) []float64 {
	denom := 1.0
	for _, s := range scores {
		denom = max(denom, s)
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s / denom
	}
	return out
}

// Scores extracts the score column of a ranking.
func Scores(ranked []Ranked) []float64 {
	out := make([]float64, len(ranked))
	for i, r := range ranked {
		out[i] = r.Score
	}
	return out
}
