package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to a slog.Level.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefaultStructuredLogger installs a process-wide JSON slog handler that
// stamps every record with the service name and version.
func SetDefaultStructuredLogger(name, version, level string) {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	logger := slog.New(handler).With(
		slog.String("service", name),
		slog.String("version", version),
	)

	slog.SetDefault(logger)
}
