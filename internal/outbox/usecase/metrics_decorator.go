package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/metrics"
	"github.com/allisson/ledgersync/internal/outbox/domain"
)

const metricsDomain = "outbox"

func metricStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// queueUseCaseWithMetrics decorates QueueUseCase with metrics instrumentation.
type queueUseCaseWithMetrics struct {
	next    QueueUseCase
	metrics metrics.BusinessMetrics
}

// NewQueueUseCaseWithMetrics wraps a QueueUseCase with metrics recording.
func NewQueueUseCaseWithMetrics(useCase QueueUseCase, m metrics.BusinessMetrics) QueueUseCase {
	return &queueUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (q *queueUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metricStatus(err)
	q.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	q.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Enqueue records metrics for enqueue operations.
func (q *queueUseCaseWithMetrics) Enqueue(ctx context.Context, input EnqueueInput) (uuid.UUID, error) {
	start := time.Now()
	id, err := q.next.Enqueue(ctx, input)
	q.record(ctx, "outbox_enqueue", start, err)
	return id, err
}

// GetPendingBatch is not instrumented; ProcessBatch already covers it.
func (q *queueUseCaseWithMetrics) GetPendingBatch(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	return q.next.GetPendingBatch(ctx, limit)
}

// MarkInProgress is not instrumented.
func (q *queueUseCaseWithMetrics) MarkInProgress(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	return q.next.MarkInProgress(ctx, id)
}

// MarkSuccess records one pushed entry.
func (q *queueUseCaseWithMetrics) MarkSuccess(
	ctx context.Context,
	entry *domain.OutboxEntry,
	newRemoteSha string,
) error {
	start := time.Now()
	err := q.next.MarkSuccess(ctx, entry, newRemoteSha)
	q.record(ctx, "outbox_mark_success", start, err)
	return err
}

// MarkFailure records one failed entry.
func (q *queueUseCaseWithMetrics) MarkFailure(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error {
	start := time.Now()
	err := q.next.MarkFailure(ctx, entry, errMsg)
	q.record(ctx, "outbox_mark_failure", start, err)
	return err
}

// MarkRejected records one rejected entry.
func (q *queueUseCaseWithMetrics) MarkRejected(ctx context.Context, entry *domain.OutboxEntry, errMsg string) error {
	start := time.Now()
	err := q.next.MarkRejected(ctx, entry, errMsg)
	q.record(ctx, "outbox_mark_rejected", start, err)
	return err
}

// CancelUpsertsFor records metrics for explicit cancellations.
func (q *queueUseCaseWithMetrics) CancelUpsertsFor(
	ctx context.Context,
	opType domain.OperationType,
	entityID string,
) error {
	start := time.Now()
	err := q.next.CancelUpsertsFor(ctx, opType, entityID)
	q.record(ctx, "outbox_cancel", start, err)
	return err
}

// RequeueFailed records metrics for requeue sweeps.
func (q *queueUseCaseWithMetrics) RequeueFailed(ctx context.Context, force bool) (int, error) {
	start := time.Now()
	count, err := q.next.RequeueFailed(ctx, force)
	q.record(ctx, "outbox_requeue", start, err)
	return count, err
}

// ResetStale records metrics for stale sweeps.
func (q *queueUseCaseWithMetrics) ResetStale(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := q.next.ResetStale(ctx)
	q.record(ctx, "outbox_reset_stale", start, err)
	return count, err
}

// CleanupDone records metrics for cleanup runs.
func (q *queueUseCaseWithMetrics) CleanupDone(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	count, err := q.next.CleanupDone(ctx, olderThan)
	q.record(ctx, "outbox_cleanup_done", start, err)
	return count, err
}

// ClearFailed records metrics for failed entry removal.
func (q *queueUseCaseWithMetrics) ClearFailed(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := q.next.ClearFailed(ctx)
	q.record(ctx, "outbox_clear_failed", start, err)
	return count, err
}

// Stats is not instrumented.
func (q *queueUseCaseWithMetrics) Stats(ctx context.Context) (domain.OutboxStats, error) {
	return q.next.Stats(ctx)
}

// List is not instrumented.
func (q *queueUseCaseWithMetrics) List(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	offset, limit int,
) ([]*domain.OutboxEntry, error) {
	return q.next.List(ctx, status, offset, limit)
}

// pushUseCaseWithMetrics decorates PushUseCase with metrics instrumentation.
type pushUseCaseWithMetrics struct {
	next    PushUseCase
	metrics metrics.BusinessMetrics
}

// NewPushUseCaseWithMetrics wraps a PushUseCase with metrics recording.
func NewPushUseCaseWithMetrics(useCase PushUseCase, m metrics.BusinessMetrics) PushUseCase {
	return &pushUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Push records metrics for push runs. A retry-later outcome is reported as its own status.
func (p *pushUseCaseWithMetrics) Push(ctx context.Context) (PushResult, error) {
	start := time.Now()
	result, err := p.next.Push(ctx)

	status := metricStatus(err)
	if errors.Is(err, context.Canceled) {
		status = "cancelled"
	}
	p.metrics.RecordOperation(ctx, metricsDomain, "outbox_push", status)
	p.metrics.RecordDuration(ctx, metricsDomain, "outbox_push", time.Since(start), status)

	return result, err
}

// ProcessBatch records metrics for batch runs.
func (p *pushUseCaseWithMetrics) ProcessBatch(ctx context.Context) (BatchResult, error) {
	start := time.Now()
	result, err := p.next.ProcessBatch(ctx)

	status := metricStatus(err)
	p.metrics.RecordOperation(ctx, metricsDomain, "outbox_process_batch", status)
	p.metrics.RecordDuration(ctx, metricsDomain, "outbox_process_batch", time.Since(start), status)

	return result, err
}
