package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CaptureHandler is an slog.Handler that mirrors records at warn level
// and above into an EventBuffer in addition to a wrapped base handler
// (typically stderr), so operational problems show up on the event
// stream alongside workspace operations.
type CaptureHandler struct {
	base   slog.Handler
	events *EventBuffer
	attrs  []slog.Attr
	groups []string
}

// NewCaptureHandler wraps a base slog.Handler with event capture.
func NewCaptureHandler(base slog.Handler, events *EventBuffer) *CaptureHandler {
	return &CaptureHandler{base: base, events: events}
}

// Enabled implements slog.Handler.
func (h *CaptureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the base handler (stderr)
	err := h.base.Handle(ctx, r)

	if h.events != nil && r.Level >= slog.LevelWarn {
		h.events.Add(Event{
			Time:   time.Now(),
			Op:     "log",
			Detail: formatRecord(r, h.attrs, h.groups),
			Level:  levelName(r.Level),
		})
	}

	return err
}

// WithAttrs implements slog.Handler.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CaptureHandler{
		base:   h.base.WithAttrs(attrs),
		events: h.events,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	return &CaptureHandler{
		base:   h.base.WithGroup(name),
		events: h.events,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	default:
		return "info"
	}
}

// formatRecord produces a compact text representation of a log record.
func formatRecord(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var b strings.Builder
	b.WriteString(r.Message)

	for _, a := range preAttrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		fmt.Fprintf(&b, " %s=%s", key, a.Value.String())
		return true
	})

	return b.String()
}
