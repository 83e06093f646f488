// Package logging builds the structured logger shared by the services.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn or error onto a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", raw, err)
	}
	return lvl, nil
}

// New returns a text or JSON logger writing to w at level.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Module scopes logger to a named component.
func Module(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger.With("module", name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }
