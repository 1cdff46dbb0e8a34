package utils

import (
	"log/slog"
	"os"
)

var (
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
)

// InitLogger configures the global loggers
func InitLogger(logLevel string, moduleName string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With("module", moduleName)

	InfoLog = logger
	ErrorLog = logger
}

func init() {
	// Usable defaults until the shell applies the configured level
	InitLogger("info", "csopesy")
}
