// control/logger.go
//
// Logger is the server-wide logging facade: a thin wrapper around the
// standard library's *log.Logger that gives call sites a leveled API
// instead of scattering log.Printf calls with hand-rolled prefixes.

package control

import (
	"io"
	"log"
)

// Level orders log severities; Logger drops anything below its configured
// threshold before it reaches the underlying *log.Logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
		return "UNKNOWN"
	}
}

// Logger wraps a standard library logger with a severity threshold.
type Logger struct {
	std   *log.Logger
	level Level
}

// NewLogger builds a Logger writing to w with the given minimum level.
func NewLogger(w io.Writer, level Level) *Logger {
	return &Logger{std: log.New(w, "", log.LstdFlags), level: level}
}

// Default returns a Logger writing to the standard log package's default
// destination (os.Stderr unless redirected) at LevelInfo.
func Default() *Logger {
	return &Logger{std: log.Default(), level: LevelInfo}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.std.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

// SetLevel adjusts the minimum severity that reaches the underlying writer.
func (l *Logger) SetLevel(level Level) { l.level = level }
