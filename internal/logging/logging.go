package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
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
	levelMu      sync.RWMutex

	logger = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	// Gating happens in this package; logrus only formats.
	l.SetLevel(logrus.DebugLevel)
	return l
}

// ParseLevel maps the DEBUG and LOG_LEVEL values to a LogLevel.
// DEBUG wins when truthy. Unknown values fall back to info.
func ParseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		levelMu.Lock()
		currentLevel = ParseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
		levelMu.Unlock()
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel overrides the level derived from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	levelMu.Lock()
	currentLevel = level
	levelMu.Unlock()
}

// SetOutput redirects all log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		logger.Debugf(format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		logger.Infof(format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		logger.Warnf(format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		logger.Errorf(format, args...)
	}
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// WithField returns an entry carrying a structured field, for call sites that
// log the same key repeatedly (e.g. per-item processing).
func WithField(key string, value interface{}) *Entry {
	return &Entry{entry: logger.WithField(key, value)}
}

// Entry is a leveled logger bound to structured fields.
type Entry struct {
	entry *logrus.Entry
}

// WithField adds another field to the entry.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value)}
}

// Debug logs at debug level.
func (e *Entry) Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		e.entry.Debugf(format, args...)
	}
}

// Info logs at info level.
func (e *Entry) Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		e.entry.Infof(format, args...)
	}
}

// Warn logs at warn level.
func (e *Entry) Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		e.entry.Warnf(format, args...)
	}
}

// Error logs at error level.
func (e *Entry) Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		e.entry.Errorf(format, args...)
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
