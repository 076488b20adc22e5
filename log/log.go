// Package log is the loader-wide logger: a terse, Printf-shaped
// interface over log/slog so call sites read like the teacher's
// console writer (uartPutc-driven) while tests can swap in a ring
// buffer or discard handler.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger is the narrow interface every loader package depends on.
// Only the levels the core actually emits are exposed.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type slogLogger struct {
	l *slog.Logger
}

// New wraps h in the loader's Logger interface. Pass nil for a
// text handler writing to stderr, matching the teacher's single
// always-on console.
func New(h slog.Handler) Logger {
	if h == nil {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s *slogLogger) Warnf(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s *slogLogger) Errorf(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }

// Discard is a Logger that drops every message; used by components
// exercised in tests that don't want console noise.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debugf(string, ...any) {}
func (discard) Warnf(string, ...any)  {}
func (discard) Errorf(string, ...any) {}
