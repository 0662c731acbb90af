package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Services receive it through their
// options; nothing in this repository logs through a package-level global.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
