package utils

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// InitLogger initializes the global logger. Safe to call multiple times.
//
// Log level is read from CODELOFT_LOG_LEVEL (debug, info, warn, error).
// When stderr is a terminal, output is colorized via tint; otherwise plain
// text handler is used so logs stay grep-friendly when redirected.
func InitLogger() {
	loggerOnce.Do(func() {
		level := parseLevel(os.Getenv("CODELOFT_LOG_LEVEL"))

		var handler slog.Handler
		if isatty.IsTerminal(os.Stderr.Fd()) {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			})
		} else {
			handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		}

		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// GetLogger returns the global logger, initializing it if needed.
func GetLogger() *slog.Logger {
	InitLogger()
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
