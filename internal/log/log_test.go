package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("GO_ENV", "")
	New(&buf, slog.LevelInfo).Debug("hidden")
	New(&buf, slog.LevelInfo).Info("frame dropped", "seq", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=\"frame dropped\" seq=3")

	buf.Reset()
	t.Setenv("GO_ENV", "production")
	New(&buf, slog.LevelInfo).Info("frame dropped", "seq", 3)
	assert.JSONEq(t, `{"level":"INFO","msg":"frame dropped","seq":3}`,
		removeTime(t, buf.Bytes()))
}

func TestL(t *testing.T) {
	assert.NotNil(t, L())
	assert.NotNil(t, With("component", "test"))
}

func removeTime(t *testing.T, line []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(line, &m))
	delete(m, "time")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
