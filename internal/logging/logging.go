package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once

	baseMu sync.RWMutex
	base   zerolog.Logger
)

// initLevel initializes the log level and output from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
		setBase(newBase(os.Stderr, os.Getenv("LOG_FORMAT")))
	})
}

// parseLevel resolves the effective level. DEBUG wins over LOG_LEVEL.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func newBase(out io.Writer, format string) zerolog.Logger {
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func setBase(l zerolog.Logger) {
	baseMu.Lock()
	base = l
	baseMu.Unlock()
}

func root() zerolog.Logger {
	initLevel()
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// SetOutput redirects log output. format is "json" or "console".
func SetOutput(w io.Writer, format string) {
	initLevel()
	setBase(newBase(w, format))
}

// SetLevel overrides the level resolved from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	baseMu.Lock()
	currentLevel = level
	baseMu.Unlock()
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	baseMu.RLock()
	defer baseMu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		l := root()
		l.Debug().Msgf(format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		l := root()
		l.Info().Msgf(format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		l := root()
		l.Warn().Msgf(format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		l := root()
		l.Error().Msgf(format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	l := root()
	l.Fatal().Msgf(format, args...)
}

// Printf writes a message regardless of level
func Printf(format string, args ...interface{}) {
	l := root()
	l.Log().Msgf(format, args...)
}

// Logger is a leveled logger carrying contextual fields such as a job id.
type Logger struct {
	fields []string
}

// With returns a Logger that attaches the given key/value pairs to every
// message. An odd trailing key is ignored.
func With(keyvals ...string) Logger {
	return Logger{}.With(keyvals...)
}

// With returns a copy of l with additional fields.
func (l Logger) With(keyvals ...string) Logger {
	fields := make([]string, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals[:len(keyvals)-len(keyvals)%2]...)
	return Logger{fields: fields}
}

func (l Logger) event(level LogLevel) *zerolog.Event {
	if GetLevel() > level {
		return nil
	}
	zl := root()
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = zl.Debug()
	case LevelInfo:
		ev = zl.Info()
	case LevelWarn:
		ev = zl.Warn()
	default:
		ev = zl.Error()
	}
	for i := 0; i+1 < len(l.fields); i += 2 {
		ev = ev.Str(l.fields[i], l.fields[i+1])
	}
	return ev
}

// Debug logs at debug level with the logger's fields.
func (l Logger) Debug(format string, args ...interface{}) {
	if ev := l.event(LevelDebug); ev != nil {
		ev.Msgf(format, args...)
	}
}

// Info logs at info level with the logger's fields.
func (l Logger) Info(format string, args ...interface{}) {
	if ev := l.event(LevelInfo); ev != nil {
		ev.Msgf(format, args...)
	}
}

// Warn logs at warn level with the logger's fields.
func (l Logger) Warn(format string, args ...interface{}) {
	if ev := l.event(LevelWarn); ev != nil {
		ev.Msgf(format, args...)
	}
}

// Error logs at error level with the logger's fields.
func (l Logger) Error(format string, args ...interface{}) {
	if ev := l.event(LevelError); ev != nil {
		ev.Msgf(format, args...)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
