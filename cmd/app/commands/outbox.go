package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// OutboxMaintainer is the subset of the outbox queue used by the maintenance commands.
type OutboxMaintainer interface {
	Stats(ctx context.Context) (domain.OutboxStats, error)
	RequeueFailed(ctx context.Context, force bool) (int, error)
	CleanupDone(ctx context.Context, olderThan time.Duration) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// RunOutboxStats prints outbox entry counts per status.
func RunOutboxStats(
	ctx context.Context,
	outbox OutboxMaintainer,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	stats, err := outbox.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read outbox stats: %w", err)
	}

	logger.Debug("outbox stats read", slog.Int64("pending", stats.Pending()))

	if format == "json" {
		return writeJSON(writer, map[string]int64{
			"queued":      stats.Queued,
			"in_progress": stats.InProgress,
			"done":        stats.Done,
			"error":       stats.Error,
			"pending":     stats.Pending(),
		})
	}

	_, err = fmt.Fprintf(writer,
		"Queued:      %d\nIn progress: %d\nDone:        %d\nError:       %d\nPending:     %d\n",
		stats.Queued, stats.InProgress, stats.Done, stats.Error, stats.Pending())
	return err
}

// RunOutboxRequeue moves failed entries back to queued. Without force only entries below
// the attempt cap and past the retry interval are requeued.
func RunOutboxRequeue(
	ctx context.Context,
	outbox OutboxMaintainer,
	logger *slog.Logger,
	writer io.Writer,
	force bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("requeueing failed outbox entries", slog.Bool("force", force))

	count, err := outbox.RequeueFailed(ctx, force)
	if err != nil {
		return fmt.Errorf("failed to requeue outbox entries: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{"requeued": count, "force": force})
	}

	_, err = fmt.Fprintf(writer, "Requeued %d failed outbox entries\n", count)
	return err
}

// RunOutboxClean deletes done entries older than olderThanHours and, when failed is set,
// every failed entry.
func RunOutboxClean(
	ctx context.Context,
	outbox OutboxMaintainer,
	logger *slog.Logger,
	writer io.Writer,
	olderThanHours int,
	failed bool,
	format string,
) error {
	if olderThanHours < 0 {
		return fmt.Errorf("older-than-hours must be a positive number, got: %d", olderThanHours)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning outbox entries",
		slog.Int("older_than_hours", olderThanHours),
		slog.Bool("failed", failed),
	)

	done, err := outbox.CleanupDone(ctx, time.Duration(olderThanHours)*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to clean done outbox entries: %w", err)
	}

	var cleared int64
	if failed {
		cleared, err = outbox.ClearFailed(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear failed outbox entries: %w", err)
		}
	}

	logger.Info("cleanup completed", slog.Int64("done", done), slog.Int64("failed", cleared))

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"done_removed":     done,
			"failed_removed":   cleared,
			"older_than_hours": olderThanHours,
		})
	}

	_, err = fmt.Fprintf(writer, "Removed %d done and %d failed outbox entries\n", done, cleared)
	return err
}
