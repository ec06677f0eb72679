package decision

import (
	"fmt"
	"maps"
)

// WeightVector maps each factor to the multiplier applied during
// aggregation. It is shared across all options of an analysis.
type WeightVector map[Factor]Weight

// NeutralWeights returns a vector with DefaultWeight for every factor.
func NeutralWeights() WeightVector {
	w := make(WeightVector, len(factors))
	for _, f := range factors {
		w[f] = DefaultWeight
	}
	return w
}

// Clone returns a copy of w.
func (w WeightVector) Clone() WeightVector {
	return maps.Clone(w)
}

// Validate checks that w covers every recognized factor within range.
func (w WeightVector) Validate() error {
	for f := range w {
		if !f.Valid() {
			return fmt.Errorf("weights: %w: %q", ErrUnknownFactor, f)
		}
	}
	for _, f := range factors {
		v, ok := w[f]
		if !ok {
			return fmt.Errorf("weights: %w: %s", ErrMissingFactor, f)
		}
		if _, err := NewWeight(f, float64(v)); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
	}
	return nil
}
