package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the global logger instance. It discards everything until Init is
// called.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type Options struct {
	Level slog.Level
	File  string // Log file, appended to. Empty logs to stderr.
	JSON  bool
}

var out *os.File

// Init switches L to a text or JSON handler writing to opts.File.
func Init(opts Options) error {
	w := os.Stderr
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = f
	}
	if out != nil {
		out.Close()
		out = nil
	}
	if w != os.Stderr {
		out = w
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return nil
}

// Discard restores the default silent logger.
func Discard() {
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
	if out != nil {
		out.Close()
		out = nil
	}
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Warn(msg string, args ...any) { L.Warn(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
