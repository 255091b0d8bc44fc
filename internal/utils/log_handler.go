package utils

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler is a slog.Handler that dispatches each record to every
// child handler which has the record's level enabled.
type FanoutHandler []slog.Handler

func NewFanoutHandler(handlers ...slog.Handler) FanoutHandler {
	return FanoutHandler(handlers)
}

func (h FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, child := range h {
		if !child.Enabled(ctx, r.Level) {
			continue
		}
		// each handler gets its own copy, handlers may retain the record
		if err := child.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(FanoutHandler, len(h))
	for i, child := range h {
		out[i] = child.WithAttrs(attrs)
	}
	return out
}

func (h FanoutHandler) WithGroup(name string) slog.Handler {
	out := make(FanoutHandler, len(h))
	for i, child := range h {
		out[i] = child.WithGroup(name)
	}
	return out
}
