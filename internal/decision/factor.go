package decision

import (
	"fmt"
	"slices"
)

// Factor is a named axis of evaluation.
type Factor string

const (
	FactorTime   Factor = "Time"
	FactorCost   Factor = "Cost"
	FactorEffort Factor = "Effort"
	FactorImpact Factor = "Impact"
	FactorRisk   Factor = "Risk"
)

// factors is the fixed, ordered factor set shared by every analysis.
var factors = []Factor{FactorTime, FactorCost, FactorEffort, FactorImpact, FactorRisk}

// Factors returns the recognized factors in display order.
// The returned slice is a copy and may be modified by the caller.
func Factors() []Factor {
	return slices.Clone(factors)
}

// ParseFactor returns the Factor named s. Names are case-sensitive.
func ParseFactor(s string) (Factor, error) {
	f := Factor(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFactor, s)
	}
	return f, nil
}

// Valid reports whether f belongs to the fixed factor set.
func (f Factor) Valid() bool {
	return slices.Contains(factors, f)
}

func (f Factor) String() string {
	return string(f)
}
