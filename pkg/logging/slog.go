package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the JSON logger every component receives. LOG_LEVEL=debug turns
// on debug output.
func New(service string) *slog.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With("service", service)
}
