// Package logging provides the structured logger and the reloadable
// filter-level handle spec.md §6 describes as an "opaque handle" into the
// logging subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LevelHandle is a mutex-guarded holder for the active zerolog.Level,
// mutated by reload_tracing_level and read by every log call site.
type LevelHandle struct {
	mu     sync.RWMutex
	level  zerolog.Level
	logger *zerolog.Logger
}

// New builds a logger writing to w at the given initial level string
// (trace/debug/info/warn/error), returning the logger and the handle used
// to change its level later.
func New(w io.Writer, levelName string) (zerolog.Logger, *LevelHandle, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	logger := zerolog.New(w).With().Timestamp().Logger().Level(level)
	handle := &LevelHandle{level: level, logger: &logger}
	return logger, handle, nil
}

// NewDefault builds a logger on os.Stderr at info level, for callers (tests,
// demos) that don't need an explicit sink.
func NewDefault() (zerolog.Logger, *LevelHandle) {
	logger, handle, _ := New(os.Stderr, "info")
	return logger, handle
}

// ParseLevel parses the level strings the Command surface and the
// -log-level flag both use.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q: %w", name, err)
	}
	return lvl, nil
}

// Set reapplies a new filter level through the handle, per spec.md §6's
// reload_tracing_level.
func (h *LevelHandle) Set(levelName string) error {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = lvl
	updated := h.logger.Level(lvl)
	h.logger = &updated
	return nil
}

// Level returns the currently active level.
func (h *LevelHandle) Level() zerolog.Level {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.level
}

// Logger returns the current, level-adjusted logger.
func (h *LevelHandle) Logger() zerolog.Logger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *h.logger
}

// ProgramLogger adapts a LevelHandle to the narrow Debugw/Warnw surface
// internal/supervisor's Program needs, translating the key/value pairs
// into zerolog's structured fields the way original_source's
// `tracing::debug!(pid = ..., name = ...)` call sites read.
type ProgramLogger struct {
	Handle *LevelHandle
}

func (l ProgramLogger) Debugw(msg string, keysAndValues ...any) {
	event := l.Handle.Logger().Debug()
	withFields(event, keysAndValues).Msg(msg)
}

func (l ProgramLogger) Warnw(msg string, keysAndValues ...any) {
	event := l.Handle.Logger().Warn()
	withFields(event, keysAndValues).Msg(msg)
}

func withFields(event *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	return event
}
