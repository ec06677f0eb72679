package decision

import "math"

// Rating bounds.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// Weight bounds.
const (
	MinWeight     = 0.5
	MaxWeight     = 3.0
	WeightStep    = 0.5
	DefaultWeight = 1.0
)

// Rating is a per-factor integer rating in [MinRating, MaxRating].
// Construct it with NewRating to guarantee the range.
type Rating int

// NewRating validates v as a rating for factor f.
func NewRating(f Factor, v int) (Rating, error) {
	if v < MinRating || v > MaxRating {
		return 0, &ValidationError{Field: "rating", Factor: f, Value: float64(v), Min: MinRating, Max: MaxRating}
	}
	return Rating(v), nil
}

// Weight is a per-factor multiplier in [MinWeight, MaxWeight] on a
// WeightStep grid. Construct it with NewWeight to guarantee the range.
type Weight float64

// NewWeight validates v as a weight for factor f.
func NewWeight(f Factor, v float64) (Weight, error) {
	if math.IsNaN(v) || v < MinWeight || v > MaxWeight || !onStep(v) {
		return 0, &ValidationError{Field: "weight", Factor: f, Value: v, Min: MinWeight, Max: MaxWeight}
	}
	return Weight(v), nil
}

func onStep(v float64) bool {
	steps := v / WeightStep
	return steps == math.Trunc(steps)
}
