package decision

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mutations validate first and leave the analysis untouched on error.

// SetTitle replaces the analysis title.
func (a *Analysis) SetTitle(title string) {
	a.Title = title
}

// AddOption appends an option named "Option N" (N being the new count)
// rated DefaultRating on every factor. Existing options are not touched.
func (a *Analysis) AddOption() Option {
	o := Option{
		ID:     uuid.NewString(),
		Name:   fmt.Sprintf("Option %d", len(a.Options)+1),
		Scores: uniformRatings(DefaultRating),
	}
	a.Options = append(a.Options, o)
	return o.Clone()
}

// RemoveOption deletes the option with the given id. It is rejected with
// ErrMinOptions when only MinOptions options remain.
func (a *Analysis) RemoveOption(id string) error {
	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	if len(a.Options) <= MinOptions {
		return fmt.Errorf("%w: have %d", ErrMinOptions, len(a.Options))
	}
	a.Options = append(a.Options[:i:i], a.Options[i+1:]...)
	return nil
}

// RenameOption changes an option's display name.
func (a *Analysis) RenameOption(id, name string) error {
	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("option %q: %w: name", id, ErrRequiredField)
	}
	a.Options[i].Name = name
	return nil
}

// SetRating sets one factor rating on one option.
func (a *Analysis) SetRating(id string, f Factor, v int) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFactor, f)
	}
	i, err := a.indexOf(id)
	if err != nil {
		return err
	}
	r, err := NewRating(f, v)
	if err != nil {
		return err
	}
	scores := a.Options[i].Scores.clone()
	scores[f] = r
	a.Options[i].Scores = scores
	return nil
}

// SetWeight sets the shared weight of one factor.
func (a *Analysis) SetWeight(f Factor, v float64) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFactor, f)
	}
	w, err := NewWeight(f, v)
	if err != nil {
		return err
	}
	weights := a.Weights.Clone()
	if weights == nil {
		weights = make(WeightVector, len(factors))
	}
	weights[f] = w
	a.Weights = weights
	return nil
}
