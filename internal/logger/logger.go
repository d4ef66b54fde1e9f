package logger

import (
	"log/slog"
	"os"

	"basin-research-platform/internal/config"
)

// Logger is the process-wide structured logger. The API server, the
// ingest worker and the migrate command all log JSON to stdout.
var Logger *slog.Logger

// InitLogger builds the JSON logger. Debug mode lowers the level and
// attaches source positions.
func InitLogger(cfg *config.Config) {
	level := slog.LevelInfo
	addSource := false
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
		addSource = true
	}

	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}))

	Logger.Info("Structured logging initialized", "level", level.String())
}

// The package-level helpers tolerate being called before InitLogger,
// early failures drop the line instead of dereferencing nil.

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
