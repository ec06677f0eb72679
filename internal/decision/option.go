package decision

import (
	"fmt"
	"maps"
)

// Ratings maps each factor to its rating.
type Ratings map[Factor]Rating

// Option is one candidate choice being evaluated.
type Option struct {
	ID     string  `json:"id" yaml:"id" toml:"id"`
	Name   string  `json:"name" yaml:"name" toml:"name"`
	Scores Ratings `json:"scores" yaml:"scores" toml:"scores"`
}

// Clone returns a deep copy of o.
func (o Option) Clone() Option {
	o.Scores = o.Scores.clone()
	return o
}

func (r Ratings) clone() Ratings {
	if r == nil {
		return make(Ratings, len(factors))
	}
	return maps.Clone(r)
}

// Validate checks that o rates every recognized factor within range and
// names no unknown factor.
func (o Option) Validate() error {
	for f := range o.Scores {
		if !f.Valid() {
			return fmt.Errorf("option %q: %w: %q", o.ID, ErrUnknownFactor, f)
		}
	}
	for _, f := range factors {
		r, ok := o.Scores[f]
		if !ok {
			return fmt.Errorf("option %q: %w: %s", o.ID, ErrMissingFactor, f)
		}
		if _, err := NewRating(f, int(r)); err != nil {
			return fmt.Errorf("option %q: %w", o.ID, err)
		}
	}
	return nil
}

// uniformRatings rates every factor with r.
func uniformRatings(r Rating) Ratings {
	out := make(Ratings, len(factors))
	for _, f := range factors {
		out[f] = r
	}
	return out
}
