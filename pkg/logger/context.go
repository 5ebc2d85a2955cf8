package logger

import (
	"context"
	"log/slog"
)

type (
	loggerKey struct{}
	fieldsKey struct{}
)

// WithLogger attaches l to ctx. A nil l leaves ctx untouched.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// With adds fields to ctx. They are attached to every record logged with
// ctx through a logger built by New, and to the logger returned by From.
func With(ctx context.Context, fields ...any) context.Context {
	prev := fieldsFrom(ctx)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// From returns the context logger, or the process logger when none is set,
// carrying the fields added with With.
func From(ctx context.Context) *slog.Logger {
	l := LoggerWrapper()
	if ctx == nil {
		return l
	}
	if attached, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		l = attached
	}
	if fields := fieldsFrom(ctx); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}

func fieldsFrom(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// contextHandler adds the context fields to records logged with a
// context, so services holding a plain *slog.Logger still tag their
// records with the request's trace id.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := fieldsFrom(ctx); len(fields) > 0 {
		r = r.Clone()
		r.Add(fields...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
