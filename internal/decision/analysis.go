package decision

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTitle is used for new analyses and stored ones with a blank title.
const DefaultTitle = "New Decision Analysis"

// MinOptions is the smallest number of options an analysis may hold.
const MinOptions = 2

// Analysis is the saved bundle of title, options and weights for one user.
type Analysis struct {
	UserID    string       `json:"userId" yaml:"userId,omitempty" toml:"userId,omitempty"`
	Title     string       `json:"title" yaml:"title" toml:"title"`
	Options   []Option     `json:"options" yaml:"options" toml:"options"`
	Weights   WeightVector `json:"weights" yaml:"weights" toml:"weights"`
	UpdatedAt time.Time    `json:"updatedAt" yaml:"updatedAt,omitempty" toml:"updatedAt,omitempty"`
}

// DefaultAnalysis returns the starting analysis for a user with no stored
// record.
func DefaultAnalysis(userID string) *Analysis {
	return &Analysis{
		UserID: userID,
		Title:  DefaultTitle,
		Options: []Option{
			{ID: "1", Name: "Option 1", Scores: uniformRatings(DefaultRating)},
			{ID: "2", Name: "Option 2", Scores: Ratings{
				FactorTime:   4,
				FactorCost:   2,
				FactorEffort: 4,
				FactorImpact: 4,
				FactorRisk:   2,
			}},
		},
		Weights: NeutralWeights(),
	}
}

// Clone returns a deep copy of a.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Options = make([]Option, len(a.Options))
	for i, o := range a.Options {
		out.Options[i] = o.Clone()
	}
	out.Weights = a.Weights.Clone()
	return &out
}

// Normalize fills the fields a stored record may legitimately omit: a blank
// title becomes DefaultTitle and an empty weight vector becomes neutral.
// Partial weight vectors are left alone so Validate can reject them.
func (a *Analysis) Normalize() {
	if strings.TrimSpace(a.Title) == "" {
		a.Title = DefaultTitle
	}
	if len(a.Weights) == 0 {
		a.Weights = NeutralWeights()
	}
}

// Validate checks the whole analysis: the option floor, unique option ids,
// full factor coverage and value ranges.
func (a *Analysis) Validate() error {
	if len(a.Options) < MinOptions {
		return fmt.Errorf("%w: have %d", ErrMinOptions, len(a.Options))
	}
	seen := make(map[string]struct{}, len(a.Options))
	for _, o := range a.Options {
		if o.ID == "" {
			return fmt.Errorf("option %q: %w: id", o.Name, ErrRequiredField)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateOption, o.ID)
		}
		seen[o.ID] = struct{}{}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return a.Weights.Validate()
}

// Option returns the option with the given id.
func (a *Analysis) Option(id string) (Option, error) {
	i, err := a.indexOf(id)
	if err != nil {
		return Option{}, err
	}
	return a.Options[i], nil
}

func (a *Analysis) indexOf(id string) (int, error) {
	for i, o := range a.Options {
		if o.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrOptionNotFound, id)
}

// Ranking ranks the analysis options over the full factor set.
func (a *Analysis) Ranking() ([]Ranked, error) {
	return Rank(a.Options, a.Weights, factors)
}
