// Package observability provides structured logging, OTel-backed metrics, and
// the HTTP scrape/health surface for the orchestrator.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output is for ingestion; text is
// the interactive default. Verbose lowers the level to debug.
func NewLogger(json, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
