package decision

import (
	"errors"
	"fmt"
)

var (
	// ErrMinOptions is returned when a removal would leave fewer than
	// MinOptions options.
	ErrMinOptions = errors.New("analysis must keep at least 2 options")

	// ErrOptionNotFound is returned when no option has the requested id.
	ErrOptionNotFound = errors.New("option not found")

	// ErrMissingFactor is returned when an option or weight vector has no
	// entry for a recognized factor.
	ErrMissingFactor = errors.New("missing factor")

	// ErrUnknownFactor is returned for factor names outside the fixed set.
	ErrUnknownFactor = errors.New("unknown factor")

	// ErrDuplicateOption is returned when two options share an id.
	ErrDuplicateOption = errors.New("duplicate option id")

	// ErrRequiredField is returned when an option id or name is blank.
	ErrRequiredField = errors.New("required field is blank")

	// ErrInvalidValue is the sentinel wrapped by every ValidationError.
	ErrInvalidValue = errors.New("value out of range")
)

// ValidationError reports a rating or weight outside its declared range.
type ValidationError struct {
	Field  string // "rating" or "weight"
	Factor Factor
	Value  float64
	Min    float64
	Max    float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for %s: %g (must be %g-%g)", e.Field, e.Factor, e.Value, e.Min, e.Max)
}

// Unwrap lets errors.Is match ErrInvalidValue.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidValue
}
