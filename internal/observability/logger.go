package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. Every record passes through
// the trace handler so log lines carry trace and span ids whenever the
// request context holds an active span.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	log := slog.New(NewTraceHandler(jsonHandler))

	slog.SetDefault(log)

	return log
}
