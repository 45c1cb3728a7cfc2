package utils

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
)

// NewLogger returns a slog logger printing through pterm.
func NewLogger(w io.Writer, level string) *slog.Logger {
	logger := pterm.DefaultLogger.
		WithLevel(ParseLogLevel(level)).
		WithWriter(w)
	return slog.New(pterm.NewSlogHandler(logger))
}

// ParseLogLevel maps a config value onto a pterm level; unknown values mean info.
func ParseLogLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "off", "disabled":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}
