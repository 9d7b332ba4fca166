package usecase

import (
	"context"
	"time"

	"github.com/allisson/ledgersync/internal/ledger/domain"
	"github.com/allisson/ledgersync/internal/metrics"
)

// ledgerUseCaseWithMetrics decorates LedgerUseCase with metrics instrumentation.
type ledgerUseCaseWithMetrics struct {
	next    LedgerUseCase
	metrics metrics.BusinessMetrics
}

// NewLedgerUseCaseWithMetrics wraps a LedgerUseCase with metrics recording.
func NewLedgerUseCaseWithMetrics(useCase LedgerUseCase, m metrics.BusinessMetrics) LedgerUseCase {
	return &ledgerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *ledgerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	l.metrics.RecordOperation(ctx, "ledger", operation, status)
	l.metrics.RecordDuration(ctx, "ledger", operation, time.Since(start), status)
}

// SaveCustomer records metrics for customer writes.
func (l *ledgerUseCaseWithMetrics) SaveCustomer(ctx context.Context, customer *domain.Customer) error {
	start := time.Now()
	err := l.next.SaveCustomer(ctx, customer)
	l.record(ctx, "customer_save", start, err)
	return err
}

// GetCustomer is not instrumented.
func (l *ledgerUseCaseWithMetrics) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return l.next.GetCustomer(ctx, id)
}

// DeleteCustomer records metrics for customer deletions.
func (l *ledgerUseCaseWithMetrics) DeleteCustomer(ctx context.Context, id string) error {
	start := time.Now()
	err := l.next.DeleteCustomer(ctx, id)
	l.record(ctx, "customer_delete", start, err)
	return err
}

// SearchCustomers records metrics for customer searches.
func (l *ledgerUseCaseWithMetrics) SearchCustomers(
	ctx context.Context,
	query string,
	limit int,
) ([]*domain.Customer, error) {
	start := time.Now()
	customers, err := l.next.SearchCustomers(ctx, query, limit)
	l.record(ctx, "customer_search", start, err)
	return customers, err
}

// SaveOrder records metrics for order writes.
func (l *ledgerUseCaseWithMetrics) SaveOrder(ctx context.Context, order *domain.Order) error {
	start := time.Now()
	err := l.next.SaveOrder(ctx, order)
	l.record(ctx, "order_save", start, err)
	return err
}

// GetOrder is not instrumented.
func (l *ledgerUseCaseWithMetrics) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return l.next.GetOrder(ctx, id)
}

// DeleteOrder records metrics for order deletions.
func (l *ledgerUseCaseWithMetrics) DeleteOrder(ctx context.Context, id string) error {
	start := time.Now()
	err := l.next.DeleteOrder(ctx, id)
	l.record(ctx, "order_delete", start, err)
	return err
}

// SavePayment records metrics for payment writes.
func (l *ledgerUseCaseWithMetrics) SavePayment(ctx context.Context, payment *domain.Payment) error {
	start := time.Now()
	err := l.next.SavePayment(ctx, payment)
	l.record(ctx, "payment_save", start, err)
	return err
}

// GetPayment is not instrumented.
func (l *ledgerUseCaseWithMetrics) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return l.next.GetPayment(ctx, id)
}

// DeletePayment records metrics for payment deletions.
func (l *ledgerUseCaseWithMetrics) DeletePayment(ctx context.Context, id string) error {
	start := time.Now()
	err := l.next.DeletePayment(ctx, id)
	l.record(ctx, "payment_delete", start, err)
	return err
}
