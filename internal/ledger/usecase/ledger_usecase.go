package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/allisson/ledgersync/internal/database"
	"github.com/allisson/ledgersync/internal/ledger/domain"
	"github.com/allisson/ledgersync/internal/ledger/dto"
	outboxDomain "github.com/allisson/ledgersync/internal/outbox/domain"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
	customValidation "github.com/allisson/ledgersync/internal/validation"
)

const defaultSearchLimit = 50

// ledgerUseCase implements LedgerUseCase
type ledgerUseCase struct {
	txManager database.TxManager
	customers CustomerRepository
	orders    OrderRepository
	payments  PaymentRepository
	outbox    Enqueuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase
func NewLedgerUseCase(
	txManager database.TxManager,
	customers CustomerRepository,
	orders OrderRepository,
	payments PaymentRepository,
	outbox Enqueuer,
	logger *slog.Logger,
) LedgerUseCase {
	return &ledgerUseCase{
		txManager: txManager,
		customers: customers,
		orders:    orders,
		payments:  payments,
		outbox:    outbox,
		logger:    logger,
		now:       time.Now,
	}
}

// touch stamps a write with the current logical time. The new timestamp is always
// strictly greater than the previous one so the write wins last-writer-wins.
func (l *ledgerUseCase) touch(createdAt, updatedAt *int64) {
	now := l.now().UnixMilli()
	if now <= *updatedAt {
		now = *updatedAt + 1
	}
	*updatedAt = now
	if *createdAt == 0 {
		*createdAt = now
	}
}

// SaveCustomer creates or updates a customer and enqueues its profile upsert
func (l *ledgerUseCase) SaveCustomer(ctx context.Context, customer *domain.Customer) error {
	l.touch(&customer.CreatedAt, &customer.UpdatedAt)

	doc := dto.FromCustomer(customer)
	if err := doc.Validate(); err != nil {
		return customValidation.WrapValidationError(err)
	}

	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := l.customers.Upsert(ctx, customer); err != nil {
			return err
		}
		return l.enqueueUpsert(ctx, outboxDomain.EntityKindCustomer, customer.ID,
			dto.CustomerPath(customer.ID), doc, customer.UpdatedAt)
	})
}

// GetCustomer retrieves a customer
func (l *ledgerUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return l.customers.Get(ctx, id)
}

// DeleteCustomer deletes a customer locally and enqueues the deletion of every remote
// document it owns
func (l *ledgerUseCase) DeleteCustomer(ctx context.Context, id string) error {
	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := l.customers.Get(ctx, id); err != nil {
			return err
		}

		orderIDs, err := l.orders.ListIDsByCustomer(ctx, id)
		if err != nil {
			return err
		}
		for _, orderID := range orderIDs {
			if err := l.enqueueOrderDeletion(ctx, id, orderID); err != nil {
				return err
			}
		}

		if err := l.enqueueDelete(ctx, outboxDomain.EntityKindCustomer, id, dto.CustomerPath(id)); err != nil {
			return err
		}
		return l.customers.Delete(ctx, id)
	})
}

// SearchCustomers returns customers matching query by name, phone or order details
func (l *ledgerUseCase) SearchCustomers(ctx context.Context, query string, limit int) ([]*domain.Customer, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return l.customers.Search(ctx, query, limit)
}

// SaveOrder creates or updates an order with its items and enqueues the order upsert.
// The remote path of an order is keyed by its customer, so an existing order keeps it.
func (l *ledgerUseCase) SaveOrder(ctx context.Context, order *domain.Order) error {
	l.touch(&order.CreatedAt, &order.UpdatedAt)
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if order.Items[i].UpdatedAt == 0 {
			order.Items[i].UpdatedAt = order.UpdatedAt
		}
	}

	doc := dto.FromOrder(order)
	if err := doc.Validate(); err != nil {
		return customValidation.WrapValidationError(err)
	}

	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.customers.Exists(ctx, order.CustomerID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrCustomerNotFound
		}

		existing, err := l.orders.Get(ctx, order.ID)
		switch {
		case err == nil:
			if existing.CustomerID != order.CustomerID {
				return domain.ErrOrderCustomerChanged
			}
		case !errors.Is(err, domain.ErrOrderNotFound):
			return err
		}

		if err := l.orders.Upsert(ctx, order); err != nil {
			return err
		}
		return l.enqueueUpsert(ctx, outboxDomain.EntityKindOrder, order.ID,
			dto.OrderPath(order.CustomerID, order.ID), doc, order.UpdatedAt)
	})
}

// GetOrder retrieves an order with its items
func (l *ledgerUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return l.orders.Get(ctx, id)
}

// DeleteOrder deletes an order with its payments and enqueues the remote deletions
func (l *ledgerUseCase) DeleteOrder(ctx context.Context, id string) error {
	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		order, err := l.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := l.enqueueOrderDeletion(ctx, order.CustomerID, id); err != nil {
			return err
		}
		return l.orders.Delete(ctx, id)
	})
}

// SavePayment records or updates a payment and enqueues the payment upsert
func (l *ledgerUseCase) SavePayment(ctx context.Context, payment *domain.Payment) error {
	l.touch(&payment.PaymentAt, &payment.UpdatedAt)

	doc := dto.FromPayment(payment)
	if err := doc.Validate(); err != nil {
		return customValidation.WrapValidationError(err)
	}

	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.orders.Exists(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrOrderNotFound
		}

		if err := l.payments.Upsert(ctx, payment); err != nil {
			return err
		}
		return l.enqueueUpsert(ctx, outboxDomain.EntityKindPayment, payment.ID,
			dto.PaymentPath(payment.ID), doc, payment.UpdatedAt)
	})
}

// GetPayment retrieves a payment
func (l *ledgerUseCase) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return l.payments.Get(ctx, id)
}

// DeletePayment deletes a payment and enqueues the remote deletion
func (l *ledgerUseCase) DeletePayment(ctx context.Context, id string) error {
	return l.txManager.WithTx(ctx, func(ctx context.Context) error {
		found, err := l.payments.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrPaymentNotFound
		}

		if err := l.enqueueDelete(ctx, outboxDomain.EntityKindPayment, id, dto.PaymentPath(id)); err != nil {
			return err
		}
		return l.payments.Delete(ctx, id)
	})
}

func (l *ledgerUseCase) enqueueOrderDeletion(ctx context.Context, customerID, orderID string) error {
	paymentIDs, err := l.payments.ListIDsByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, paymentID := range paymentIDs {
		err := l.enqueueDelete(ctx, outboxDomain.EntityKindPayment, paymentID, dto.PaymentPath(paymentID))
		if err != nil {
			return err
		}
	}
	return l.enqueueDelete(ctx, outboxDomain.EntityKindOrder, orderID, dto.OrderPath(customerID, orderID))
}

func (l *ledgerUseCase) enqueueUpsert(
	ctx context.Context,
	kind outboxDomain.EntityKind,
	entityID, cloudPath string,
	doc any,
	opUpdatedAt int64,
) error {
	payload, err := dto.Encode(doc)
	if err != nil {
		return err
	}

	_, err = l.outbox.Enqueue(ctx, outboxUsecase.EnqueueInput{
		Type:        kind.UpsertType(),
		Payload:     string(payload),
		EntityID:    entityID,
		CloudPath:   cloudPath,
		Priority:    kind.DefaultPriority(),
		OpUpdatedAt: opUpdatedAt,
	})
	return err
}

func (l *ledgerUseCase) enqueueDelete(ctx context.Context, kind outboxDomain.EntityKind, entityID, cloudPath string) error {
	payload, err := dto.Encode(outboxDomain.EntityRef{ID: entityID})
	if err != nil {
		return err
	}

	_, err = l.outbox.Enqueue(ctx, outboxUsecase.EnqueueInput{
		Type:      kind.DeleteType(),
		Payload:   string(payload),
		EntityID:  entityID,
		CloudPath: cloudPath,
		Priority:  kind.DefaultPriority(),
	})
	if err != nil {
		return err
	}

	l.logger.Debug("remote deletion scheduled",
		slog.String("entity_kind", string(kind)),
		slog.String("entity_id", entityID),
	)
	return nil
}
