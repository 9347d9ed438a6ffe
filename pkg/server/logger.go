package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeboe/evidence-helper/pkg/database"
)

// LogWriter persists log records of one session.
type LogWriter interface {
	InsertLog(ctx context.Context, sessionID uuid.UUID, entry database.LogEntry) error
}

// DBLogHandler is a slog.Handler that writes records to the database
type DBLogHandler struct {
	DB        LogWriter
	SessionID uuid.UUID
	Level     slog.Leveler

	attrs  []slog.Attr
	prefix string
}

func NewDBLogHandler(db LogWriter, sessionID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:        db,
		SessionID: sessionID,
		Level:     slog.LevelInfo,
	}
}

func (h *DBLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.Level == nil {
		return true
	}
	return level >= h.Level.Level()
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	meta := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(meta, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(meta, h.prefix, a)
		return true
	})

	// logs must persist even when the request that produced them was cancelled
	return h.DB.InsertLog(context.WithoutCancel(ctx), h.SessionID, database.LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Metadata:  meta,
	})
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func addAttr(meta map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addAttr(meta, prefix+a.Key+".", ga)
		}
		return
	}
	switch x := v.Any().(type) {
	case error:
		meta[prefix+a.Key] = x.Error()
	case fmt.Stringer:
		meta[prefix+a.Key] = x.String()
	default:
		meta[prefix+a.Key] = x
	}
}

// teeHandler sends every record to all handlers that accept it.
type teeHandler []slog.Handler

func NewTeeHandler(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
