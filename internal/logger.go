package internal

import (
	"io"
	"log/slog"
)

// NewLogger builds the fleet server logger. Development gets text output
// for terminal reading; every other environment ships JSON so the report
// pipeline's log lines stay machine-parseable. Unknown levels fall back
// to info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	lvl := slog.LevelInfo
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if env == "development" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
