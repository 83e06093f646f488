package core

import (
	"log/slog"
	"time"
)

// Clock supplies the current time for new collections.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Logger is the subset of *slog.Logger the registry uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for default collection dates.
func WithClock(clock Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func defaultLogger() Logger { return slog.New(slog.DiscardHandler) }

func systemClock() Clock { return ClockFunc(func() time.Time { return time.Now().UTC() }) }
