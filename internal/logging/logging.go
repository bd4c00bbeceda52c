// Package logging provides a small hierarchical logger, grounded on
// mutagen's pkg/logging: a *Logger that is safe to use even when nil (so
// callers never need a sentinel no-op implementation), colors level
// prefixes when writing to a terminal, and composes via Sublogger instead
// of a global registry.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level controls which messages a Logger emits.
type Level uint8

const (
	// LevelSilent disables all logging.
	LevelSilent Level = iota
	// LevelError logs only errors.
	LevelError
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs informational messages, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything, including debug-only diagnostics.
	LevelDebug
)

// Logger is the main logger type. A nil *Logger is valid and simply
// discards everything, so call sites never need to nil-check before
// logging.
type Logger struct {
	mu     *sync.Mutex
	writer io.Writer
	level  Level
	name   string
	color  bool
}

// New creates a root logger writing to w at the given level. If w is nil,
// os.Stderr is used.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	return &Logger{mu: &sync.Mutex{}, writer: w, level: level, color: useColor}
}

// Sublogger returns a child logger that prefixes its messages with name,
// nested under this logger's own name if any. A nil receiver yields
// another nil-safe no-op logger.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	full := name
	if l.name != "" {
		full = l.name + "." + name
	}
	return &Logger{mu: l.mu, writer: l.writer, level: l.level, name: full, color: l.color}
}

func (l *Logger) logf(level Level, prefix string, colorFn func(string, ...interface{}) string, format string, args ...interface{}) {
	if l == nil || level > l.level || level == LevelSilent {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message := fmt.Sprintf(format, args...)
	tag := prefix
	if l.color {
		tag = colorFn(prefix)
	}
	if l.name != "" {
		fmt.Fprintf(l.writer, "%s [%s] %s\n", tag, l.name, message)
	} else {
		fmt.Fprintf(l.writer, "%s %s\n", tag, message)
	}
}

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, "ERROR", color.New(color.FgRed).SprintfFunc(), format, args...)
}

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, "WARN", color.New(color.FgYellow).SprintfFunc(), format, args...)
}

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, "INFO", color.New(color.FgCyan).SprintfFunc(), format, args...)
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, "DEBUG", color.New(color.FgHiBlack).SprintfFunc(), format, args...)
}
