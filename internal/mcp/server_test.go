package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := NewServer(nil).Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", res.Content[0])
	return res, tc.Text
}

func ratings(v int) map[string]int {
	return map[string]int{"Time": v, "Cost": v, "Effort": v, "Impact": v, "Risk": v}
}

func TestListTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"rank_options", "score_option"}, names)
}

func TestRankOptions(t *testing.T) {
	session := connect(t)

	t.Run("orders by weighted score", func(t *testing.T) {
		res, text := call(t, session, "rank_options", map[string]any{
			"options": []map[string]any{
				{"id": "a", "name": "A", "scores": ratings(2)},
				{"id": "b", "name": "B", "scores": ratings(4)},
			},
		})
		require.False(t, res.IsError, text)

		var out rankOptionsOutput
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		require.Len(t, out.Ranking, 2)
		assert.Equal(t, "b", out.Ranking[0].ID)
		assert.InDelta(t, 20.0, out.Ranking[0].Score, 1e-9)
		assert.InDelta(t, 1.0, out.Ranking[0].Fraction, 1e-9)
		assert.InDelta(t, 0.5, out.Ranking[1].Fraction, 1e-9)
	})

	t.Run("applies weights", func(t *testing.T) {
		a := ratings(1)
		a["Impact"] = 5
		_, text := call(t, session, "rank_options", map[string]any{
			"options": []map[string]any{
				{"id": "a", "scores": a},
				{"id": "b", "scores": ratings(2)},
			},
			"weights": map[string]float64{"Time": 1, "Cost": 1, "Effort": 1, "Impact": 3, "Risk": 1},
		})

		var out rankOptionsOutput
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		require.Len(t, out.Ranking, 2)
		assert.Equal(t, "a", out.Ranking[0].ID)
		assert.InDelta(t, 19.0, out.Ranking[0].Score, 1e-9)
		assert.InDelta(t, 14.0, out.Ranking[1].Score, 1e-9)
	})

	t.Run("rejects a single option", func(t *testing.T) {
		res, _ := call(t, session, "rank_options", map[string]any{
			"options": []map[string]any{{"id": "a", "scores": ratings(3)}},
		})
		assert.True(t, res.IsError)
	})

	t.Run("rejects out of range rating", func(t *testing.T) {
		res, _ := call(t, session, "rank_options", map[string]any{
			"options": []map[string]any{
				{"id": "a", "scores": ratings(6)},
				{"id": "b", "scores": ratings(3)},
			},
		})
		assert.True(t, res.IsError)
	})
}

func TestScoreOption(t *testing.T) {
	session := connect(t)

	t.Run("neutral weights by default", func(t *testing.T) {
		res, text := call(t, session, "score_option", map[string]any{
			"option": map[string]any{"id": "x", "scores": ratings(3)},
		})
		require.False(t, res.IsError, text)

		var out scoreOptionOutput
		require.NoError(t, json.Unmarshal([]byte(text), &out))
		assert.Equal(t, "x", out.ID)
		assert.InDelta(t, 15.0, out.Score, 1e-9)
	})

	t.Run("rejects partial weights", func(t *testing.T) {
		res, _ := call(t, session, "score_option", map[string]any{
			"option":  map[string]any{"id": "x", "scores": ratings(3)},
			"weights": map[string]float64{"Time": 2},
		})
		assert.True(t, res.IsError)
	})

	t.Run("rejects unknown factor", func(t *testing.T) {
		scores := ratings(3)
		scores["Luck"] = 3
		res, _ := call(t, session, "score_option", map[string]any{
			"option": map[string]any{"id": "x", "scores": scores},
		})
		assert.True(t, res.IsError)
	})
}

func TestRankOptionsDirect(t *testing.T) {
	rows, err := rankOptions(rankOptionsInput{Options: []optionInput{
		{ID: "1", Name: "One", Scores: ratings(3)},
		{ID: "2", Name: "Two", Scores: map[string]int{"Time": 4, "Cost": 2, "Effort": 4, "Impact": 4, "Risk": 2}},
	}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, standingOutput{Rank: 1, ID: "2", Name: "Two", Score: 16, Fraction: 1}, rows[0])
	assert.Equal(t, 2, rows[1].Rank)
}
