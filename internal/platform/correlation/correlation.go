// Package correlation carries log correlation fields (session and tick identity)
// through context.Context and injects them into every slog record.
package correlation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey struct{}

// fields is immutable once stored in a context.
type fields struct {
	sessionID string
	tick      uint64
	hasTick   bool
}

func from(ctx context.Context) fields {
	f, _ := ctx.Value(contextKey{}).(fields)
	return f
}

// WithSessionID returns a new context tagged with the given session ID.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	f := from(ctx)
	f.sessionID = id.String()
	return context.WithValue(ctx, contextKey{}, f)
}

// WithTick returns a new context tagged with the given broadcast tick number.
func WithTick(ctx context.Context, tick uint64) context.Context {
	f := from(ctx)
	f.tick = tick
	f.hasTick = true
	return context.WithValue(ctx, contextKey{}, f)
}

// SessionID extracts the session ID from ctx, returning ("", false) if not present.
func SessionID(ctx context.Context) (string, bool) {
	f := from(ctx)
	return f.sessionID, f.sessionID != ""
}

// Tick extracts the tick number from ctx.
func Tick(ctx context.Context) (uint64, bool) {
	f := from(ctx)
	return f.tick, f.hasTick
}

// Handler wraps an existing slog.Handler to automatically inject "session_id"
// and "tick" attributes when the context carries them.
type Handler struct {
	inner slog.Handler
}

// NewHandler creates a correlation-aware handler wrapping the given handler.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := SessionID(ctx); ok {
		r.AddAttrs(slog.String("session_id", id))
	}
	if tick, ok := Tick(ctx); ok {
		r.AddAttrs(slog.Uint64("tick", tick))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
