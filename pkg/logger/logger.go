package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats.
const (
	JSON = "json"
	TEXT = "text"
)

// Logger is slog with a Fatal helper for startup failures.
type Logger struct {
	*slog.Logger
}

type Config struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
	Service   string
}

func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, TEXT) {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	if cfg.Service != "" {
		l = l.With(slog.String("service", cfg.Service))
	}
	return &Logger{Logger: l}
}

// parseLevel accepts slog level names in any case; anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a child logger that keeps the Fatal helper.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Fatal logs at error level and exits with status 1.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}
