package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/ledgersync/internal/database"
	apperrors "github.com/allisson/ledgersync/internal/errors"
	"github.com/allisson/ledgersync/internal/outbox/domain"
	customValidation "github.com/allisson/ledgersync/internal/validation"
)

const (
	defaultBatchSize   = 20
	defaultMaxAttempts = 10
)

// EnqueueInput describes a pending remote mutation.
type EnqueueInput struct {
	Type      domain.OperationType
	Payload   string
	EntityID  string
	CloudPath string
	Priority  int
	// OpUpdatedAt is the unix millisecond time of the domain write. Zero means now.
	OpUpdatedAt        int64
	LastKnownRemoteSha *string
}

// Validate checks the enqueue input.
func (i *EnqueueInput) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Type, validation.Required, validation.By(func(value interface{}) error {
			if !i.Type.Valid() {
				return validation.NewError("validation_operation_type", "unknown operation type")
			}
			return nil
		})),
		validation.Field(&i.EntityID, validation.Required, customValidation.NotBlank, customValidation.PathSegment),
		validation.Field(&i.CloudPath, validation.Required, customValidation.NoWhitespace),
		validation.Field(&i.Payload, validation.When(i.Type.IsUpsert(), validation.Required), customValidation.JSONText),
		validation.Field(&i.OpUpdatedAt, validation.Min(int64(0))),
	)
}

// queueUseCase implements QueueUseCase on top of the outbox table
type queueUseCase struct {
	config    Config
	txManager database.TxManager
	repo      OutboxEntryRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewQueueUseCase creates a new QueueUseCase
func NewQueueUseCase(
	config Config,
	txManager database.TxManager,
	repo OutboxEntryRepository,
	logger *slog.Logger,
) QueueUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	return &queueUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

func (q *queueUseCase) nowMillis() int64 {
	return q.now().UnixMilli()
}

// Enqueue inserts a new entry or coalesces into the active upsert of the same entity.
// A delete first cancels every active upsert of the entity. Failed entries of the entity
// are dropped: the new snapshot supersedes them and must never be overwritten by a retry.
func (q *queueUseCase) Enqueue(ctx context.Context, input EnqueueInput) (uuid.UUID, error) {
	if err := input.Validate(); err != nil {
		return uuid.Nil, customValidation.WrapValidationError(err)
	}

	now := q.nowMillis()
	opUpdatedAt := input.OpUpdatedAt
	if opUpdatedAt == 0 {
		opUpdatedAt = now
	}

	var entryID uuid.UUID
	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		superseded, err := q.repo.DeleteFailedForEntity(ctx, input.Type.Kind(), input.EntityID)
		if err != nil {
			return err
		}
		if superseded > 0 {
			q.logger.Debug("dropped failed entries superseded by a newer write",
				slog.String("entity_kind", string(input.Type.Kind())),
				slog.String("entity_id", input.EntityID),
				slog.Int64("count", superseded),
			)
		}

		if input.Type.IsDelete() {
			cancelled, err := q.repo.DeleteActiveByType(ctx, input.Type.Kind().UpsertType(), input.EntityID)
			if err != nil {
				return err
			}
			if cancelled > 0 {
				q.logger.Debug("cancelled pending upserts",
					slog.String("entity_kind", string(input.Type.Kind())),
					slog.String("entity_id", input.EntityID),
					slog.Int64("count", cancelled),
				)
			}
		} else {
			existing, err := q.repo.FindActiveByType(ctx, input.Type, input.EntityID)
			switch {
			case err == nil:
				existing.Payload = input.Payload
				existing.CloudPath = input.CloudPath
				existing.UpdatedAt = now
				existing.OpUpdatedAt = opUpdatedAt
				existing.Revision++
				if input.LastKnownRemoteSha != nil {
					existing.LastKnownRemoteSha = input.LastKnownRemoteSha
				}
				if err := q.repo.Update(ctx, existing); err != nil {
					return err
				}
				entryID = existing.ID
				return nil
			case !errors.Is(err, domain.ErrOutboxEntryNotFound):
				return err
			}
		}

		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		entry := &domain.OutboxEntry{
			ID:                 id,
			Type:               input.Type,
			EntityKind:         input.Type.Kind(),
			EntityID:           input.EntityID,
			Payload:            input.Payload,
			CloudPath:          input.CloudPath,
			Status:             domain.OutboxEntryStatusQueued,
			Priority:           input.Priority,
			AttemptCount:       0,
			CreatedAt:          opUpdatedAt,
			UpdatedAt:          opUpdatedAt,
			OpUpdatedAt:        opUpdatedAt,
			LastKnownRemoteSha: input.LastKnownRemoteSha,
		}
		if err := q.repo.Create(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return entryID, nil
}

// GetPendingBatch returns up to limit queued entries in drain order
func (q *queueUseCase) GetPendingBatch(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	if limit <= 0 {
		limit = q.config.BatchSize
	}
	return q.repo.GetByStatus(ctx, domain.OutboxEntryStatusQueued, limit)
}

// MarkInProgress moves a queued entry to in_progress and counts the attempt
func (q *queueUseCase) MarkInProgress(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	var entry *domain.OutboxEntry
	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := q.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrOutboxEntryNotFound) {
				return domain.ErrOutboxEntryNotQueued
			}
			return err
		}
		if current.Status != domain.OutboxEntryStatusQueued {
			return domain.ErrOutboxEntryNotQueued
		}

		current.Status = domain.OutboxEntryStatusInProgress
		current.AttemptCount++
		current.UpdatedAt = q.nowMillis()
		if err := q.repo.Update(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkSuccess completes an in-progress entry. When the entry was coalesced while in
// flight it goes back to queued so the newer payload is pushed next.
func (q *queueUseCase) MarkSuccess(ctx context.Context, entry *domain.OutboxEntry, newRemoteSha string) error {
	return q.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := q.repo.GetByID(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, domain.ErrOutboxEntryNotFound) {
				q.logger.Debug("outbox entry cancelled while in flight", slog.String("entry_id", entry.ID.String()))
				return nil
			}
			return err
		}
		if current.Status != domain.OutboxEntryStatusInProgress {
			return nil
		}

		if newRemoteSha != "" {
			current.LastKnownRemoteSha = &newRemoteSha
		}
		current.LastErrorMessage = nil
		current.UpdatedAt = q.nowMillis()

		if current.Revision != entry.Revision {
			current.Status = domain.OutboxEntryStatusQueued
			current.AttemptCount = 0
		} else {
			current.Status = domain.OutboxEntryStatusDone
		}

		return q.repo.Update(ctx, current)
	})
}

// MarkFailure moves an in-progress entry to error and stores the message
func (q *queueUseCase) MarkFailure(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error {
	return q.markError(ctx, entry, errMsg, false)
}

// MarkRejected moves an entry to error with its attempts exhausted so it is never retried automatically
func (q *queueUseCase) MarkRejected(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error {
	return q.markError(ctx, entry, errMsg, true)
}

func (q *queueUseCase) markError(ctx context.Context, entry *domain.OutboxEntry, errMsg string, permanent bool) error {
	return q.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := q.repo.GetByID(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, domain.ErrOutboxEntryNotFound) {
				return nil
			}
			return err
		}

		current.Status = domain.OutboxEntryStatusError
		current.LastErrorMessage = &errMsg
		current.UpdatedAt = q.nowMillis()
		if permanent && current.AttemptCount < q.config.MaxAttempts {
			current.AttemptCount = q.config.MaxAttempts
		}

		if err := q.repo.Update(ctx, current); err != nil {
			return err
		}

		// A write enqueued for the entity while this one was in flight supersedes it.
		newer, err := q.repo.HasActiveForEntity(ctx, current.EntityKind, current.EntityID)
		if err != nil {
			return err
		}
		if newer {
			q.logger.Debug("dropped failed entry superseded while in flight",
				slog.String("entry_id", current.ID.String()),
				slog.String("entity_id", current.EntityID),
			)
			return q.repo.Delete(ctx, current.ID)
		}
		return nil
	})
}

// CancelUpsertsFor deletes the active upserts of the entity targeted by opType
func (q *queueUseCase) CancelUpsertsFor(ctx context.Context, opType domain.OperationType, entityID string) error {
	return q.txManager.WithTx(ctx, func(ctx context.Context) error {
		_, err := q.repo.DeleteActiveByType(ctx, opType.Kind().UpsertType(), entityID)
		return err
	})
}

// RequeueFailed moves retryable error entries back to queued. Entries are visited newest
// first; an error entry whose entity already has an active entry is obsolete and removed.
func (q *queueUseCase) RequeueFailed(ctx context.Context, force bool) (int, error) {
	now := q.nowMillis()
	cutoff := now - q.config.RetryInterval.Milliseconds()
	if force {
		cutoff = math.MaxInt64
	}

	requeued := 0
	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		candidates, err := q.repo.ListByStatusUpdatedBefore(ctx, domain.OutboxEntryStatusError, cutoff)
		if err != nil {
			return err
		}

		for _, entry := range candidates {
			if !force && entry.AttemptCount >= q.config.MaxAttempts {
				continue
			}

			active, err := q.repo.HasActiveForEntity(ctx, entry.EntityKind, entry.EntityID)
			if err != nil {
				return err
			}
			if active {
				if err := q.repo.Delete(ctx, entry.ID); err != nil {
					return err
				}
				continue
			}

			entry.Status = domain.OutboxEntryStatusQueued
			entry.UpdatedAt = now
			if force {
				entry.AttemptCount = 0
			}
			if err := q.repo.Update(ctx, entry); err != nil {
				return err
			}
			requeued++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if requeued > 0 {
		q.logger.Info("requeued failed outbox entries", slog.Int("count", requeued), slog.Bool("force", force))
	}
	return requeued, nil
}

// ResetStale moves in_progress entries untouched for longer than StaleAfter back to queued
func (q *queueUseCase) ResetStale(ctx context.Context) (int, error) {
	now := q.nowMillis()
	cutoff := now - q.config.StaleAfter.Milliseconds()

	reset := 0
	err := q.txManager.WithTx(ctx, func(ctx context.Context) error {
		stale, err := q.repo.ListByStatusUpdatedBefore(ctx, domain.OutboxEntryStatusInProgress, cutoff)
		if err != nil {
			return err
		}

		for _, entry := range stale {
			entry.Status = domain.OutboxEntryStatusQueued
			entry.UpdatedAt = now
			if err := q.repo.Update(ctx, entry); err != nil {
				return err
			}
			reset++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if reset > 0 {
		q.logger.Warn("reset stale in-progress outbox entries", slog.Int("count", reset))
	}
	return reset, nil
}

// CleanupDone deletes done entries last touched more than olderThan ago
func (q *queueUseCase) CleanupDone(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := q.nowMillis() - olderThan.Milliseconds()
	return q.repo.DeleteByStatus(ctx, domain.OutboxEntryStatusDone, cutoff)
}

// ClearFailed deletes every error entry
func (q *queueUseCase) ClearFailed(ctx context.Context) (int64, error) {
	return q.repo.DeleteByStatus(ctx, domain.OutboxEntryStatusError, math.MaxInt64)
}

// Stats returns entry counts per status
func (q *queueUseCase) Stats(ctx context.Context) (domain.OutboxStats, error) {
	return q.repo.CountByStatus(ctx)
}

// List returns entries with status, newest first
func (q *queueUseCase) List(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	offset, limit int,
) ([]*domain.OutboxEntry, error) {
	if !status.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown outbox status %q", status)
	}
	return q.repo.List(ctx, status, offset, limit)
}
