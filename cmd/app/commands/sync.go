package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	reconcileUsecase "github.com/allisson/ledgersync/internal/reconcile/usecase"
	"github.com/allisson/ledgersync/internal/scheduler"
)

// Syncer triggers a single sync run.
type Syncer interface {
	Trigger(ctx context.Context, kind scheduler.Kind) (scheduler.Result, error)
}

// RunSync performs one push or pull run through the scheduler and prints its summary.
// The run fails with scheduler.ErrOffline when the remote store is unreachable.
func RunSync(
	ctx context.Context,
	syncer Syncer,
	logger *slog.Logger,
	writer io.Writer,
	kind scheduler.Kind,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("running sync", slog.String("kind", string(kind)))

	result, err := syncer.Trigger(ctx, kind)
	if err != nil {
		return fmt.Errorf("%s failed: %w", kind, err)
	}

	if format == "json" {
		err = writeJSON(writer, result)
	} else {
		err = outputSyncText(writer, result)
	}
	if err != nil {
		return err
	}

	logger.Info("sync completed", slog.String("kind", string(kind)))
	return nil
}

// outputSyncText outputs the run summary in human-readable text format.
func outputSyncText(w io.Writer, result scheduler.Result) error {
	if result.Push != nil {
		_, err := fmt.Fprintf(w,
			"Push completed: %d pushed, %d rejected, %d requeued in %d batch(es)\n",
			result.Push.Succeeded, result.Push.Rejected, result.Push.Requeued, result.Push.Batches)
		return err
	}

	if result.Pull != nil {
		if _, err := fmt.Fprintln(w, "Pull completed:"); err != nil {
			return err
		}
		collections := []struct {
			name   string
			result reconcileUsecase.CollectionResult
		}{
			{"customers", result.Pull.Customers},
			{"orders", result.Pull.Orders},
			{"payments", result.Pull.Payments},
		}
		for _, c := range collections {
			_, err := fmt.Fprintf(w, "  %-10s %d created, %d updated, %d unchanged, %d deleted, %d skipped\n",
				c.name+":", c.result.Created, c.result.Updated, c.result.Unchanged, c.result.Deleted, c.result.Skipped)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
