// Package logger provides leveled logging for codeassist.
// Debug, info and warning messages about model routing, adapter health and
// indexing are printed to stderr only in verbose mode (--verbose or
// logging.verbose). Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

// Log levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag printed before messages of this level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// timeFormat is used when timestamps are enabled.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	mu         sync.Mutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose enables or disables debug, info and warning output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetTimestamps prefixes each message with the current time.
// Long-running servers enable it; one-shot commands leave it off.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Enabled reports whether a message at level would be printed.
func Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled(level)
}

func enabled(level Level) bool {
	return level >= LevelError || verbose
}

func logf(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled(level) {
		return
	}
	prefix := "[" + level.String() + "] "
	if timestamps {
		prefix = now().Format(timeFormat) + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...) //nolint:errcheck
}

// Debug prints a message in verbose mode.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Info prints an informational message in verbose mode.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn prints a warning in verbose mode.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error prints a message regardless of verbose mode.
// Background workers use it for failures nobody is waiting on.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name) //nolint:errcheck
	}
}
