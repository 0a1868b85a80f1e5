// Package logging provides the diagnostic logger shared by harness components.
//
// Diagnostic logs are distinct from scenario evidence: they describe what the
// harness itself did (sessions launched, sinks failing, files written) and
// are written to one run-specific file in the configured log directory.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging surface consumed by harness components.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level tag written to the log.
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

// ParseLevel converts a configuration string to a Level, defaulting to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// ComponentLogger writes leveled entries for one component to the run log.
type ComponentLogger struct {
	runID     string
	component string
	file      *os.File
	logger    *log.Logger
	minLevel  Level
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	runID     string
	runIDOnce sync.Once

	dirMu  sync.Mutex
	logDir = filepath.Join("target", "harness-logs")
)

func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// SetDirectory changes the directory new component loggers write into.
func SetDirectory(dir string) {
	dirMu.Lock()
	defer dirMu.Unlock()
	if dir != "" {
		logDir = dir
	}
}

// Directory returns the directory new component loggers write into.
func Directory() string {
	dirMu.Lock()
	defer dirMu.Unlock()
	return logDir
}

// New creates a logger for a component writing to <dir>/<run-id>-harness.log.
//
// If the directory or file cannot be opened, New returns a logger writing to
// stderr together with the error, so callers may keep going and warn.
func New(component string, minLevel Level) (*ComponentLogger, error) {
	dir := Directory()
	if err := os.MkdirAll(dir, 0750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return newFallbackLogger(component, minLevel, err), err
	}

	id := getRunID()
	logPath := filepath.Join(dir, fmt.Sprintf("%s-harness.log", id))

	// Append mode: every component of a run shares the file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, minLevel, err), err
	}

	return &ComponentLogger{
		runID:     id,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		minLevel:  minLevel,
		logPath:   logPath,
	}, nil
}

func newFallbackLogger(component string, minLevel Level, err error) *ComponentLogger {
	logger := log.New(os.Stderr, "", 0)
	l := &ComponentLogger{
		runID:     getRunID(),
		component: component,
		logger:    logger,
		minLevel:  minLevel,
	}
	l.write(LevelWarn, fmt.Sprintf("file logging unavailable, falling back to stderr: %v", err))
	return l
}

// NewWriter creates a logger for a component that writes to w.
func NewWriter(component string, minLevel Level, w io.Writer) *ComponentLogger {
	return &ComponentLogger{
		runID:     getRunID(),
		component: component,
		logger:    log.New(w, "", 0),
		minLevel:  minLevel,
	}
}

func (l *ComponentLogger) write(level Level, message string) {
	if level < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

// Debugf logs a debug-level message.
func (l *ComponentLogger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, fmt.Sprintf(format, v...))
}

// Infof logs an info-level message.
func (l *ComponentLogger) Infof(format string, v ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level message.
func (l *ComponentLogger) Warnf(format string, v ...interface{}) {
	l.write(LevelWarn, fmt.Sprintf(format, v...))
}

// Errorf logs an error-level message.
func (l *ComponentLogger) Errorf(format string, v ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, v...))
}

// Component returns the component name.
func (l *ComponentLogger) Component() string {
	return l.component
}

// RunID returns the identifier shared by all loggers of this process.
func (l *ComponentLogger) RunID() string {
	return l.runID
}

// LogPath returns the log file path, or "" for writer and fallback loggers.
func (l *ComponentLogger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *ComponentLogger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

type discard struct{}

func (discard) Debugf(string, ...interface{}) {}
func (discard) Infof(string, ...interface{})  {}
func (discard) Warnf(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return discard{}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return discard{}
	}
	return l
}
