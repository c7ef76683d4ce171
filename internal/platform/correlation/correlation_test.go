package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionID_Roundtrip(t *testing.T) {
	id := uuid.New()
	ctx := WithSessionID(context.Background(), id)

	got, ok := SessionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, id.String(), got)
}

func TestSessionID_Missing(t *testing.T) {
	id, ok := SessionID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestTick_ZeroIsPresent(t *testing.T) {
	ctx := WithTick(context.Background(), 0)

	tick, ok := Tick(ctx)
	assert.True(t, ok)
	assert.Zero(t, tick)
}

func TestFieldsCompose(t *testing.T) {
	id := uuid.New()
	parent := WithSessionID(context.Background(), id)
	child := WithTick(parent, 7)

	got, ok := SessionID(child)
	assert.True(t, ok)
	assert.Equal(t, id.String(), got)

	_, ok = Tick(parent)
	assert.False(t, ok, "parent context must not see the child's tick")
}

func TestHandler_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(inner))

	id := uuid.New()
	ctx := WithTick(WithSessionID(context.Background(), id), 3)
	logger.InfoContext(ctx, "test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "session_id="+id.String())
	assert.Contains(t, output, "tick=3")
	assert.Contains(t, output, "key=value")
}

func TestHandler_NoFieldsWhenMissing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain")

	assert.NotContains(t, buf.String(), "session_id")
	assert.NotContains(t, buf.String(), "tick")
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).
		With("component", "acceptor").
		WithGroup("conn")

	ctx := WithSessionID(context.Background(), uuid.New())
	logger.InfoContext(ctx, "accepted", "remote", "127.0.0.1:1")

	output := buf.String()
	assert.Contains(t, output, "component=acceptor")
	assert.Contains(t, output, "conn.remote=127.0.0.1:1")
	assert.Contains(t, output, "session_id=")
}
