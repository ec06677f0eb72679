package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

// optionInput is the wire form of one rated option. Factor names are
// case-sensitive: Time, Cost, Effort, Impact, Risk.
type optionInput struct {
	ID     string         `json:"id" jsonschema:"Option identifier, unique within the request"`
	Name   string         `json:"name,omitempty" jsonschema:"Display name"`
	Scores map[string]int `json:"scores" jsonschema:"Rating from 1 to 5 for every factor"`
}

type rankOptionsInput struct {
	Options []optionInput      `json:"options" jsonschema:"At least two options to rank"`
	Weights map[string]float64 `json:"weights,omitempty" jsonschema:"Weight per factor, 0.5 to 3.0 in steps of 0.5 (default: all 1)"`
}

type standingOutput struct {
	Rank     int     `json:"rank"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Fraction float64 `json:"fraction" jsonschema:"Score as a fraction of the best score"`
}

type rankOptionsOutput struct {
	Ranking []standingOutput `json:"ranking" jsonschema:"Options ordered by score, best first"`
}

type scoreOptionInput struct {
	Option  optionInput        `json:"option"`
	Weights map[string]float64 `json:"weights,omitempty" jsonschema:"Weight per factor (default: all 1)"`
}

type scoreOptionOutput struct {
	ID    string  `json:"id"`
	Score float64 `json:"score" jsonschema:"Sum of rating times weight over all factors"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rank_options",
		Description: "Rank decision options by their weighted factor scores",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args rankOptionsInput) (*mcp.CallToolResult, rankOptionsOutput, error) {
		done := s.metrics.start(ctx, "rank_options")
		rows, err := rankOptions(args)
		done(err)
		if err != nil {
			return nil, rankOptionsOutput{}, err
		}
		return nil, rankOptionsOutput{Ranking: rows}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "score_option",
		Description: "Compute the weighted score of a single decision option",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args scoreOptionInput) (*mcp.CallToolResult, scoreOptionOutput, error) {
		done := s.metrics.start(ctx, "score_option")
		out, err := scoreOption(args)
		done(err)
		if err != nil {
			return nil, scoreOptionOutput{}, err
		}
		return nil, out, nil
	})
}

func rankOptions(in rankOptionsInput) ([]standingOutput, error) {
	a := &decision.Analysis{Weights: toWeights(in.Weights)}
	for _, o := range in.Options {
		a.Options = append(a.Options, toOption(o))
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, err
	}

	standings, err := a.Standings()
	if err != nil {
		return nil, err
	}
	rows := make([]standingOutput, len(standings))
	for i, st := range standings {
		rows[i] = standingOutput(st)
	}
	return rows, nil
}

func scoreOption(in scoreOptionInput) (scoreOptionOutput, error) {
	o := toOption(in.Option)
	if err := o.Validate(); err != nil {
		return scoreOptionOutput{}, err
	}
	w := toWeights(in.Weights)
	if len(w) == 0 {
		w = decision.NeutralWeights()
	}
	if err := w.Validate(); err != nil {
		return scoreOptionOutput{}, err
	}

	score, err := decision.ComputeScore(o, w, decision.Factors())
	if err != nil {
		return scoreOptionOutput{}, err
	}
	return scoreOptionOutput{ID: o.ID, Score: score}, nil
}

func toOption(in optionInput) decision.Option {
	o := decision.Option{ID: in.ID, Name: in.Name, Scores: make(decision.Ratings, len(in.Scores))}
	for f, v := range in.Scores {
		o.Scores[decision.Factor(f)] = decision.Rating(v)
	}
	return o
}

func toWeights(in map[string]float64) decision.WeightVector {
	if len(in) == 0 {
		return nil
	}
	w := make(decision.WeightVector, len(in))
	for f, v := range in {
		w[decision.Factor(f)] = decision.Weight(v)
	}
	return w
}
