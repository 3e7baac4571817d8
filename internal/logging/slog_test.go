package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	ctx := context.Background()

	log.Info(ctx, "dropped")
	log.Warn(ctx, "kept", "key", "cleaned/u1/a.txt")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "cleaned/u1/a.txt", rec["key"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "text")
	log.With("service", "calendar").Debug(context.Background(), "saved", "events", 3)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "service=calendar")
	assert.Contains(t, out, "events=3")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text")
	reqLogger := base.With("request_id", "r-1")

	ctx := ContextWithLogger(context.Background(), reqLogger)
	assert.Same(t, reqLogger, FromContext(ctx))
	assert.Same(t, reqLogger, FromContextOr(ctx, base))

	assert.Nil(t, FromContext(context.Background()))
	assert.Same(t, base, FromContextOr(context.Background(), base))
	assert.NotNil(t, FromContextOr(context.Background(), nil))
}
