package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/allisson/ledgersync/internal/errors"
	"github.com/allisson/ledgersync/internal/ledger/dto"
	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// pushUseCase drains the outbox sequentially, one batch at a time
type pushUseCase struct {
	config Config
	queue  QueueUseCase
	remote RemoteStore
	logger *slog.Logger
}

// NewPushUseCase creates a new PushUseCase
func NewPushUseCase(config Config, queue QueueUseCase, remote RemoteStore, logger *slog.Logger) PushUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	return &pushUseCase{
		config: config,
		queue:  queue,
		remote: remote,
		logger: logger,
	}
}

// Push requeues retryable failures, then processes batches until the queue is drained
func (uc *pushUseCase) Push(ctx context.Context) (PushResult, error) {
	var result PushResult

	requeued, err := uc.queue.RequeueFailed(ctx, false)
	if err != nil {
		return result, err
	}
	result.Requeued = requeued

	for {
		batch, err := uc.ProcessBatch(ctx)
		result.Succeeded += batch.Succeeded
		result.Rejected += batch.Rejected
		if err != nil {
			return result, err
		}
		if batch.Fetched == 0 {
			return result, nil
		}
		result.Batches++
		if batch.Succeeded == 0 && batch.Rejected == 0 {
			// every entry was taken by someone else
			return result, nil
		}
	}
}

// ProcessBatch pushes up to BatchSize queued entries in order. The first transient failure
// aborts the rest of the batch and is returned wrapped with ErrRetryLater.
func (uc *pushUseCase) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	entries, err := uc.queue.GetPendingBatch(ctx, uc.config.BatchSize)
	if err != nil {
		return result, err
	}
	result.Fetched = len(entries)
	if len(entries) == 0 {
		return result, nil
	}

	uc.logger.Info("processing outbox batch", slog.Int("count", len(entries)))

	for _, pending := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := uc.processEntry(context.WithoutCancel(ctx), pending)
		switch outcome {
		case entrySucceeded:
			result.Succeeded++
		case entryRejected:
			result.Rejected++
		case entrySkipped:
			result.Skipped++
		}
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

type entryOutcome int

const (
	entryFailed entryOutcome = iota
	entrySucceeded
	entryRejected
	entrySkipped
)

// processEntry runs one entry to completion. ctx is never cancelled mid-entry.
func (uc *pushUseCase) processEntry(ctx context.Context, pending *domain.OutboxEntry) (entryOutcome, error) {
	entry, err := uc.queue.MarkInProgress(ctx, pending.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOutboxEntryNotQueued) {
			uc.logger.Debug("outbox entry no longer queued", slog.String("entry_id", pending.ID.String()))
			return entrySkipped, nil
		}
		return entryFailed, err
	}

	op, err := domain.DecodeOperation(entry)
	if err != nil {
		uc.logger.Error("rejecting outbox entry",
			slog.String("entry_id", entry.ID.String()),
			slog.String("type", string(entry.Type)),
			slog.Any("error", err),
		)
		if err := uc.queue.MarkRejected(ctx, entry, err.Error()); err != nil {
			return entryFailed, err
		}
		return entryRejected, nil
	}

	sha, err := uc.apply(ctx, entry, op)
	if err != nil {
		uc.logger.Warn("failed to push outbox entry",
			slog.String("entry_id", entry.ID.String()),
			slog.String("type", string(entry.Type)),
			slog.String("cloud_path", entry.CloudPath),
			slog.Int("attempt", entry.AttemptCount),
			slog.Any("error", err),
		)
		if markErr := uc.queue.MarkFailure(ctx, entry, err.Error()); markErr != nil {
			return entryFailed, errors.Join(err, markErr)
		}
		return entryFailed, fmt.Errorf("%w: push %s %s: %w", apperrors.ErrRetryLater, entry.Type, entry.EntityID, err)
	}

	if err := uc.queue.MarkSuccess(ctx, entry, sha); err != nil {
		return entryFailed, err
	}

	uc.logger.Debug("pushed outbox entry",
		slog.String("entry_id", entry.ID.String()),
		slog.String("type", string(entry.Type)),
		slog.String("cloud_path", entry.CloudPath),
	)
	return entrySucceeded, nil
}

// apply performs the remote side effect of op. Upserts are full overwrites, so replaying
// an entry is harmless. Deleting an object that is already gone succeeds.
func (uc *pushUseCase) apply(ctx context.Context, entry *domain.OutboxEntry, op domain.Operation) (string, error) {
	switch op := op.(type) {
	case domain.DocumentOperation:
		data, err := dto.Encode(op.Document())
		if err != nil {
			return "", err
		}
		return uc.remote.PutJSON(ctx, entry.CloudPath, data)
	case domain.CustomerDelete, domain.OrderDelete, domain.PaymentDelete:
		err := uc.remote.Delete(ctx, entry.CloudPath)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return "", err
		}
		return "", nil
	}
	return "", fmt.Errorf("%w: %T", domain.ErrUnknownOperationType, op)
}
