package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRedactingEncoder_RejectsBadPatterns(t *testing.T) {
	base := newEncoder("json")

	_, err := NewRedactingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{"[a-"}})
	assert.Error(t, err)

	long := make([]byte, maxPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = NewRedactingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{string(long)}})
	assert.Error(t, err)
}

func TestRedactingEncoder_EncodeEntry(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "inference call"}, []zapcore.Field{
		zap.String("API_KEY", "gsk_abcdefghijklmnopqrstuvwxyz"),
		zap.String("model", "llama-3.1-8b-instant"),
		zap.ByteString("raw", []byte("api_key=xyz")),
		zap.Int("max_tokens", 512),
	})
	require.NoError(t, err)
	out := buf.String()

	assert.NotContains(t, out, "gsk_abcdefghijklmnopqrstuvwxyz")
	assert.NotContains(t, out, "xyz\"")
	assert.Contains(t, out, `"model":"llama-3.1-8b-instant"`)
	assert.Contains(t, out, `"max_tokens":512`)
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: false})
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{zap.String("password", "plain")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "plain")
}

func TestRedactingEncoder_CloneKeepsRules(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	clone, ok := enc.Clone().(*RedactingEncoder)
	require.True(t, ok)
	assert.True(t, clone.sensitive("Authorization"))
	assert.True(t, clone.matches("Bearer abc"))
}
