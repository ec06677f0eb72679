package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sprintai/internal/config"
)

// newBufferLogger builds a real logger writing JSON into a buffer.
func newBufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	l, err := NewLogger(cfg, nil, WithWriter(zapcore.AddSync(&buf)))
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLogger_WritesContextFields(t *testing.T) {
	l, buf := newBufferLogger(t, nil)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-42")
	l.Info(ctx, "analysis saved", zap.Int("options", 3))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "analysis saved", lines[0]["msg"])
	assert.Equal(t, "req-1", lines[0]["request.id"])
	assert.Equal(t, "user-42", lines[0]["user.id"])
	assert.Equal(t, "sprintai", lines[0]["service"])
	assert.EqualValues(t, 3, lines[0]["options"])
}

func TestLogger_CallerPointsAtCallSite(t *testing.T) {
	l, buf := newBufferLogger(t, nil)
	l.Warn(context.Background(), "caller check")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
}

func TestLogger_TraceLevelName(t *testing.T) {
	l, buf := newBufferLogger(t, nil)
	l.Trace(context.Background(), "wire detail")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden too")
	l.Error(context.Background(), "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.False(t, l.Enabled(zapcore.InfoLevel))
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	l, buf := newBufferLogger(t, nil)

	child := l.With(zap.String("token", "abc123"))
	child.Info(context.Background(), "login",
		zap.String("password", "hunter22"),
		zap.String("header", "Bearer eyJhbGciOi"),
		zap.String("role", "user"),
	)

	out := buf.String()
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "eyJhbGciOi")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "[REDACTED]", lines[0]["password"])
	assert.Equal(t, "[REDACTED]", lines[0]["token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[0]["header"])
	assert.Equal(t, "user", lines[0]["role"])
}

func TestLogger_SamplingNeverDropsErrors(t *testing.T) {
	l, buf := newBufferLogger(t, func(c *Config) {
		c.Sampling.Enabled = true
		c.Sampling.Levels = map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 2, Thereafter: 0},
		}
	})

	ctx := context.Background()
	for range 10 {
		l.Info(ctx, "flood")
		l.Error(ctx, "failure")
	}

	var info, errs int
	for _, line := range decodeLines(t, buf) {
		switch line["msg"] {
		case "flood":
			info++
		case "failure":
			errs++
		}
	}
	assert.Equal(t, 2, info)
	assert.Equal(t, 10, errs)
}

func TestContextFields(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))

	tp := trace.NewTracerProvider(trace.WithSampler(trace.AlwaysSample()))
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	m := map[string]zap.Field{}
	for _, f := range ContextFields(WithUserID(ctx, "u1")) {
		m[f.Key] = f
	}
	assert.Equal(t, span.SpanContext().TraceID().String(), m["trace_id"].String)
	assert.Equal(t, span.SpanContext().SpanID().String(), m["span_id"].String)
	assert.Contains(t, m, "trace_sampled")
	assert.Equal(t, "u1", m["user.id"].String)
}

func TestWithIDs_IgnoreEmpty(t *testing.T) {
	ctx := WithUserID(context.Background(), "")
	ctx = WithRequestID(ctx, "")
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "from ctx")
	tl.AssertLogged(t, zapcore.InfoLevel, "from ctx")
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LoggingConfig{Level: "debug", Format: "console", OTEL: true})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Output.OTEL)

	_, err = FromSettings(config.LoggingConfig{Level: "nope"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no outputs", func(c *Config) { c.Output.Stdout = false }},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"env": ""} }},
		{"negative skip", func(c *Config) { c.Caller.Skip = -1 }},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, NewDefaultConfig().Validate())
}

func TestEmailField(t *testing.T) {
	assert.Equal(t, "a***@example.com", Email("email", "alice@example.com").String)
	assert.Equal(t, "[REDACTED:7]", Email("email", "notmail").String)
	assert.Equal(t, "[REDACTED:6]", Secret("api_key", config.Secret("gsk_xx")).String)
}

func TestTestLogger_AssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "ok", RedactedString("token", "abc"), zap.String("role", "user"))
	tl.AssertNoSecrets(t)
	tl.AssertField(t, "ok", "role", "user")

	tl.Reset()
	assert.Empty(t, tl.All())
}
