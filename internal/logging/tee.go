package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to the terminal and to the status log, each
// filtered by its own level.
type teeHandler struct {
	terminal slog.Handler
	file     slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.terminal.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	if h.file.Enabled(ctx, record.Level) {
		errs = append(errs, h.file.Handle(ctx, record.Clone()))
	}
	if h.terminal.Enabled(ctx, record.Level) {
		errs = append(errs, h.terminal.Handle(ctx, record))
	}
	return errors.Join(errs...)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{terminal: h.terminal.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{terminal: h.terminal.WithGroup(name), file: h.file.WithGroup(name)}
}
