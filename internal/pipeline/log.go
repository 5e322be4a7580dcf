package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// NewLogger returns the structured logger the orchestrator uses to record
// one line per stage transition. It writes JSON to stderr so it can be
// piped into log aggregation without interleaving with the CLI's own
// stdout reporting.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// logStage records a single stage transition: its name, how long it took,
// and whether it succeeded.
func logStage(ctx context.Context, logger *slog.Logger, stage string, start time.Time, err error) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("stage", stage),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		logger.ErrorContext(ctx, "stage failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	logger.InfoContext(ctx, "stage ok", attrs...)
}
