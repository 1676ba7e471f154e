// Package applog configures the process-wide structured logger.
//
// All log output goes to stderr; stdout is reserved for the JSON-line
// protocol the server speaks to its caller.
package applog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog default logger with the given level and
// format. format should be "json" for JSON output, anything else (including
// empty string) selects human-readable text output.
func Setup(level slog.Level, format string) {
	SetupWithWriter(level, format, os.Stderr)
}

// SetupWithWriter is Setup with an explicit writer, used by tests to capture
// log output instead of writing to stderr.
func SetupWithWriter(level slog.Level, format string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ResolveLevel applies the priority order: REPO_MCP_DEBUG=1 env var wins,
// then --verbose, then --quiet, defaulting to info.
func ResolveLevel(verbose, quiet bool) slog.Level {
	if os.Getenv("REPO_MCP_DEBUG") == "1" {
		return slog.LevelDebug
	}
	if verbose {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ResolveFormat reads REPO_MCP_LOG_FORMAT, defaulting to "text".
func ResolveFormat() string {
	if strings.EqualFold(os.Getenv("REPO_MCP_LOG_FORMAT"), "json") {
		return "json"
	}
	return "text"
}

// New returns a child logger tagged with a "component" attribute, so log
// lines can be filtered or attributed to a subsystem.
func New(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
