// Package usecase implements the outbox queue and the push synchronizer that drains it
// toward the remote object store.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// Config holds outbox use case configuration
type Config struct {
	BatchSize     int
	MaxAttempts   int
	RetryInterval time.Duration
	StaleAfter    time.Duration
}

// OutboxEntryRepository defines outbox entry persistence operations
type OutboxEntryRepository interface {
	Create(ctx context.Context, entry *domain.OutboxEntry) error
	Update(ctx context.Context, entry *domain.OutboxEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error)
	GetByStatus(ctx context.Context, status domain.OutboxEntryStatus, limit int) ([]*domain.OutboxEntry, error)
	List(ctx context.Context, status domain.OutboxEntryStatus, offset, limit int) ([]*domain.OutboxEntry, error)
	ListByStatusUpdatedBefore(
		ctx context.Context,
		status domain.OutboxEntryStatus,
		updatedBefore int64,
	) ([]*domain.OutboxEntry, error)
	FindActiveByType(ctx context.Context, opType domain.OperationType, entityID string) (*domain.OutboxEntry, error)
	DeleteActiveByType(ctx context.Context, opType domain.OperationType, entityID string) (int64, error)
	HasActiveForEntity(ctx context.Context, kind domain.EntityKind, entityID string) (bool, error)
	HasUnpushedForEntity(ctx context.Context, kind domain.EntityKind, entityID string) (bool, error)
	DeleteFailedForEntity(ctx context.Context, kind domain.EntityKind, entityID string) (int64, error)
	DeleteByStatus(ctx context.Context, status domain.OutboxEntryStatus, updatedBefore int64) (int64, error)
	CountByStatus(ctx context.Context) (domain.OutboxStats, error)
}

// RemoteStore is the subset of the remote object store used by the push synchronizer.
type RemoteStore interface {
	// PutJSON fully overwrites the document at path and returns its new revision marker, if any.
	PutJSON(ctx context.Context, path string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// QueueUseCase defines the outbox queue operations
type QueueUseCase interface {
	// Enqueue records a pending remote mutation, coalescing upserts of the same entity.
	// It joins the transaction carried by ctx, if any.
	Enqueue(ctx context.Context, input EnqueueInput) (uuid.UUID, error)
	GetPendingBatch(ctx context.Context, limit int) ([]*domain.OutboxEntry, error)
	MarkInProgress(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error)
	MarkSuccess(ctx context.Context, entry *domain.OutboxEntry, newRemoteSha string) error
	MarkFailure(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error
	MarkRejected(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error
	CancelUpsertsFor(ctx context.Context, opType domain.OperationType, entityID string) error
	RequeueFailed(ctx context.Context, force bool) (int, error)
	ResetStale(ctx context.Context) (int, error)
	CleanupDone(ctx context.Context, olderThan time.Duration) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (domain.OutboxStats, error)
	List(ctx context.Context, status domain.OutboxEntryStatus, offset, limit int) ([]*domain.OutboxEntry, error)
}

// PushUseCase defines the push synchronizer operations
type PushUseCase interface {
	// Push requeues retryable failures and drains the queue until it is empty or a batch fails.
	Push(ctx context.Context) (PushResult, error)
	ProcessBatch(ctx context.Context) (BatchResult, error)
}

// BatchResult summarizes one ProcessBatch run.
type BatchResult struct {
	Fetched   int `json:"fetched"`
	Succeeded int `json:"succeeded"`
	Rejected  int `json:"rejected"`
	Skipped   int `json:"skipped"`
}

// PushResult summarizes one Push run.
type PushResult struct {
	Requeued  int `json:"requeued"`
	Batches   int `json:"batches"`
	Succeeded int `json:"succeeded"`
	Rejected  int `json:"rejected"`
}
