package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

func newTestMetrics(t *testing.T) (*toolMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return newToolMetrics(mp.Meter(instrumentationName), zap.NewNop()), reader
}

func collect(t *testing.T, reader *metric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// callsByOutcome sums sprintai.mcp.tool.calls per outcome label.
func callsByOutcome(t *testing.T, reader *metric.ManualReader) map[string]int64 {
	t.Helper()
	m, ok := collect(t, reader, "sprintai.mcp.tool.calls")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestToolMetrics_Start(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.start(ctx, "rank_options")(nil)
	m.start(ctx, "rank_options")(decision.ErrMinOptions)
	m.start(ctx, "score_option")(nil)

	assert.Equal(t, map[string]int64{"ok": 2, "validation_error": 1}, callsByOutcome(t, reader))

	lat, ok := collect(t, reader, "sprintai.mcp.tool.latency")
	require.True(t, ok)
	hist, ok := lat.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestToolMetrics_InFlight(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	done := m.start(ctx, "score_option")
	m.start(ctx, "score_option")(nil)

	inFlight := func() int64 {
		got, ok := collect(t, reader, "sprintai.mcp.tool.in_flight")
		require.True(t, ok)
		var total int64
		for _, dp := range got.Data.(metricdata.Sum[int64]).DataPoints {
			total += dp.Value
		}
		return total
	}
	assert.Equal(t, int64(1), inFlight())
	done(nil)
	assert.Equal(t, int64(0), inFlight())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "ok"},
		{"out of range", &decision.ValidationError{Field: "rating", Factor: decision.FactorTime, Value: 9}, "out_of_range"},
		{"wrapped out of range", fmt.Errorf("option %q: %w", "a", &decision.ValidationError{Field: "rating"}), "out_of_range"},
		{"missing factor", fmt.Errorf("x: %w", decision.ErrMissingFactor), "factor_error"},
		{"unknown factor", decision.ErrUnknownFactor, "factor_error"},
		{"too few options", decision.ErrMinOptions, "validation_error"},
		{"duplicate", decision.ErrDuplicateOption, "validation_error"},
		{"generic error", errors.New("something went wrong"), "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}
