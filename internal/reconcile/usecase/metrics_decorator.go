package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/allisson/ledgersync/internal/metrics"
)

// pullUseCaseWithMetrics decorates PullUseCase with metrics instrumentation.
type pullUseCaseWithMetrics struct {
	next    PullUseCase
	metrics metrics.BusinessMetrics
}

// NewPullUseCaseWithMetrics wraps a PullUseCase with metrics recording.
func NewPullUseCaseWithMetrics(useCase PullUseCase, m metrics.BusinessMetrics) PullUseCase {
	return &pullUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Pull records metrics for reconciliation passes.
func (p *pullUseCaseWithMetrics) Pull(ctx context.Context) (PullResult, error) {
	start := time.Now()
	result, err := p.next.Pull(ctx)

	status := "success"
	switch {
	case errors.Is(err, context.Canceled):
		status = "cancelled"
	case err != nil:
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "reconcile", "reconcile_pull", status)
	p.metrics.RecordDuration(ctx, "reconcile", "reconcile_pull", time.Since(start), status)

	return result, err
}
