package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/lumberjack.v2"
)

type Options struct {
	Level      string
	File       string // empty writes to stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Writer returns stdout, teed into a size-rotated file when one is
// configured. Build it once per process and hand the same writer to every
// logger so a single lumberjack.Logger owns the file.
func Writer(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		LocalTime:  true,
	})
}

// New builds the JSON process logger on w.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Init installs a logger on w as the slog default.
func Init(w io.Writer, opts Options) *slog.Logger {
	l := New(w, opts.Level)
	slog.SetDefault(l)
	l.Info("logger initialized", "level", opts.Level, "file", opts.File)
	return l
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
