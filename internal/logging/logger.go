package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewStdoutHandler is the JSON handler every process writes through. Debug
// records are kept outside production.
func NewStdoutHandler(w io.Writer, appEnv string) slog.Handler {
	level := slog.LevelInfo
	if appEnv == "development" {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup installs a JSON logger on stdout as the slog default and returns its
// handler so it can later be combined with a DBHandler.
func Setup(appEnv string) slog.Handler {
	handler := NewStdoutHandler(os.Stdout, appEnv)
	slog.SetDefault(slog.New(handler))
	return handler
}
