// Package logger is the process-wide structured logger for pppscrape.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logFile *lumberjack.Logger
)

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Output io.Writer    // Console destination (default: stderr)
	File   string       // Also write to this file, rotated by size
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Rotation limits for Options.File.
const (
	FileMaxSizeMB  = 50
	FileMaxBackups = 5
	FileMaxAgeDays = 28
)

// Init replaces the logger. A log file opened by an earlier Init is closed.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()

	if opts.Logger != nil {
		current = opts.Logger
		return
	}

	level := slog.LevelInfo
	switch {
	case opts.Quiet:
		level = slog.LevelError
	case opts.Debug:
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    FileMaxSizeMB,
			MaxBackups: FileMaxBackups,
			MaxAge:     FileMaxAgeDays,
			LocalTime:  true,
			Compress:   true,
		}
		out = io.MultiWriter(out, logFile)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		current = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		current = slog.New(slog.NewTextHandler(out, handlerOpts))
	}
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeFileLocked()
}

func closeFileLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// SetLogger sets a custom slog.Logger, e.g. the host application's.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger { return get().With(args...) }

// DebugContext logs at debug level with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	get().DebugContext(ctx, msg, args...)
}

// InfoContext logs at info level with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	get().InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	get().WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	get().ErrorContext(ctx, msg, args...)
}
