package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/alkime/whistle/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures structured JSON logging to w based on environment
// and installs it as the default logger.
func SetupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if cfg.Debug() {
		logLevel = slog.LevelDebug
	}

	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// SetupCLILogger configures the plain text logger used by subcommands that
// own the terminal.
func SetupCLILogger() *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// RotatingFile returns a writer that appends to path and rotates it once it
// grows past maxSizeMB.
func RotatingFile(path string, maxSizeMB int) io.WriteCloser {
	return &lumberjack.Logger{ //nolint:exhaustruct // remaining fields use lumberjack defaults
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}
}
