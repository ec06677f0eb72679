package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

const instrumentationName = "github.com/fyrsmithlabs/sprintai/internal/mcp"

// Outcome labels for sprintai.mcp.tool.calls.
const (
	outcomeOK         = "ok"
	outcomeOutOfRange = "out_of_range"
	outcomeFactor     = "factor_error"
	outcomeInvalid    = "validation_error"
	outcomeInternal   = "internal_error"
)

// toolMetrics counts tool calls by outcome and times them.
type toolMetrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newToolMetrics(meter metric.Meter, logger *zap.Logger) *toolMetrics {
	m := &toolMetrics{}
	var errs []error
	var err error

	m.calls, err = meter.Int64Counter("sprintai.mcp.tool.calls",
		metric.WithDescription("MCP tool calls by tool and outcome"),
		metric.WithUnit("{call}"))
	errs = append(errs, err)

	// Scoring is pure arithmetic; calls land in the sub-millisecond buckets.
	m.latency, err = meter.Float64Histogram("sprintai.mcp.tool.latency",
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05))
	errs = append(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("sprintai.mcp.tool.in_flight",
		metric.WithDescription("MCP tool calls currently running"),
		metric.WithUnit("{call}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to create mcp tool instruments", zap.Error(err))
	}
	return m
}

// start marks a call to tool as running. The returned func ends it and
// records the result.
func (m *toolMetrics) start(ctx context.Context, tool string) func(err error) {
	began := time.Now()
	toolAttr := metric.WithAttributes(attribute.String("tool", tool))
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, toolAttr)
	}
	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, toolAttr)
		}
		if m.latency != nil {
			m.latency.Record(ctx, time.Since(began).Seconds(), toolAttr)
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("outcome", outcome(err)),
			))
		}
	}
}

// outcome labels a tool result.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, decision.ErrInvalidValue):
		return outcomeOutOfRange
	case errors.Is(err, decision.ErrMissingFactor), errors.Is(err, decision.ErrUnknownFactor):
		return outcomeFactor
	case errors.Is(err, decision.ErrMinOptions),
		errors.Is(err, decision.ErrDuplicateOption),
		errors.Is(err, decision.ErrRequiredField):
		return outcomeInvalid
	default:
		return outcomeInternal
	}
}
