// Package usecase implements the ledger domain writes. Every write commits the entity
// rows and the matching outbox entries in one local transaction.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/ledger/domain"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
)

// CustomerRepository defines the customer persistence used by ledger writes and the pull reconciler
type CustomerRepository interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]*domain.Customer, error)
}

// OrderRepository defines the order persistence used by ledger writes and the pull reconciler
type OrderRepository interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error)
	Upsert(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines the payment persistence used by ledger writes and the pull reconciler
type PaymentRepository interface {
	Get(ctx context.Context, id string) (*domain.Payment, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	ListIDsByOrder(ctx context.Context, orderID string) ([]string, error)
	Upsert(ctx context.Context, payment *domain.Payment) error
	Delete(ctx context.Context, id string) error
}

// Enqueuer records pending remote mutations. It must join the transaction carried by ctx.
type Enqueuer interface {
	Enqueue(ctx context.Context, input outboxUsecase.EnqueueInput) (uuid.UUID, error)
}

// LedgerUseCase defines the local ledger operations
type LedgerUseCase interface {
	SaveCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	// DeleteCustomer removes the customer with its orders and payments and schedules
	// the matching remote deletions.
	DeleteCustomer(ctx context.Context, id string) error
	SearchCustomers(ctx context.Context, query string, limit int) ([]*domain.Customer, error)
	SaveOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	SavePayment(ctx context.Context, payment *domain.Payment) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}
