package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel converts a level name to a slog.Level. Unknown names fall back
// to INFO.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// New creates a JSON logger writing to w at the named level.
func New(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
