package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger provides different logging levels on top of slog
type Logger struct {
	debug   bool
	verbose bool
	slog    *slog.Logger
	closer  io.Closer // log file, if any
}

// LoggerOptions controls how NewLoggerWithOptions builds the handler
type LoggerOptions struct {
	Debug   bool
	Verbose bool
	JSON    bool      // JSON lines instead of the tint console format
	NoColor bool      // disable ANSI colours (forced when teeing to a file)
	Writer  io.Writer // defaults to os.Stdout
}

// NewLoggerWithOptions creates a logger from explicit options
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	level := slog.LevelInfo
	if opts.Debug || opts.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor,
		})
	}

	return &Logger{
		debug:   opts.Debug,
		verbose: opts.Verbose,
		slog:    slog.New(handler),
	}
}

// NewLoggerWithFile creates a new logger that writes to stdout and a file
func NewLoggerWithFile(opts LoggerOptions, logFilePath string) (*Logger, error) {
	// Ensure directory for the specific log file exists (handles nested paths)
	if err := EnsureDirForFile(logFilePath); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", logFilePath, err)
	}

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	console := opts.Writer
	if console == nil {
		console = os.Stdout
	}
	opts.Writer = io.MultiWriter(console, logFile)
	opts.NoColor = true

	logger := NewLoggerWithOptions(opts)
	logger.closer = logFile
	return logger, nil
}

// NewDiscardLogger returns a logger that drops everything, for tests and quiet callers
func NewDiscardLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{Writer: io.Discard, NoColor: true})
}

// Close releases the log file, if one was opened
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Info logs informational messages (always shown)
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Debug logs debug messages (only if debug enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l != nil && l.debug {
		l.log(slog.LevelDebug, format, args...)
	}
}

// Verbose logs verbose messages (only if verbose enabled)
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l != nil && l.verbose {
		l.log(slog.LevelDebug, format, args...)
	}
}

// Warn logs recoverable problems (always shown)
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

// Error logs error messages (always shown)
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	if l == nil || l.slog == nil {
		return
	}
	l.slog.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
