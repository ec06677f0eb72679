package decision

// Standing is one row of a ranking prepared for display.
type Standing struct {
	Rank     int     `json:"rank"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Fraction float64 `json:"fraction"`
}

// Standings numbers ranked rows and attaches each score's display fraction.
func Standings(ranked []Ranked) []Standing {
	fractions := NormalizeForDisplay(Scores(ranked))
	out := make([]Standing, len(ranked))
	for i, r := range ranked {
		out[i] = Standing{
			Rank:     i + 1,
			ID:       r.Option.ID,
			Name:     r.Option.Name,
			Score:    r.Score,
			Fraction: fractions[i],
		}
	}
	return out
}

// Standings ranks the analysis and returns display rows.
func (a *Analysis) Standings() ([]Standing, error) {
	ranked, err := a.Ranking()
	if err != nil {
		return nil, err
	}
	return Standings(ranked), nil
}
