package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a *slog.Logger writing JSON to console (when non-nil) and
// optionally to logFile. The interactive dashboard owns the terminal, so it
// passes a nil console and relies on the file alone. The logger is also set as
// the slog default. The returned cleanup func closes the log file if one was
// opened; callers must defer it.
func New(level, logFile string, console io.Writer) (*slog.Logger, func(), error) {
	lvl := parseLevel(level)

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	w := io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
