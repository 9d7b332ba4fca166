// Package usecase implements the pull reconciler: a full-collection diff from the remote
// store into the local store, with the remote as existence authority and
// last-writer-wins by updatedAt for field values.
package usecase

import (
	"context"

	ledgerDomain "github.com/allisson/ledgersync/internal/ledger/domain"
	outboxDomain "github.com/allisson/ledgersync/internal/outbox/domain"
)

// RemoteReader is the read side of the remote object store
type RemoteReader interface {
	List(ctx context.Context, folder string) ([]string, error)
	Get(ctx context.Context, path string) ([]byte, error)
}

// CustomerRepository defines the customer persistence used by the reconciler
type CustomerRepository interface {
	Get(ctx context.Context, id string) (*ledgerDomain.Customer, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, customer *ledgerDomain.Customer) error
	Delete(ctx context.Context, id string) error
}

// OrderRepository defines the order persistence used by the reconciler
type OrderRepository interface {
	Get(ctx context.Context, id string) (*ledgerDomain.Order, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, order *ledgerDomain.Order) error
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines the payment persistence used by the reconciler
type PaymentRepository interface {
	Get(ctx context.Context, id string) (*ledgerDomain.Payment, error)
	ListIDs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, payment *ledgerDomain.Payment) error
	Delete(ctx context.Context, id string) error
}

// PendingChecker reports whether an entity still has unpushed local changes, failed
// entries included. The reconciler only reads the outbox, it never mutates it.
type PendingChecker interface {
	HasUnpushedForEntity(ctx context.Context, kind outboxDomain.EntityKind, entityID string) (bool, error)
}

// CollectionResult counts what a reconciliation pass did to one collection
type CollectionResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
	// Skipped counts undecodable, vanished and orphaned remote documents, and local
	// entities kept because they still have pending outbox entries.
	Skipped int `json:"skipped"`
}

// PullResult summarizes a full reconciliation pass
type PullResult struct {
	Customers CollectionResult `json:"customers"`
	Orders    CollectionResult `json:"orders"`
	Payments  CollectionResult `json:"payments"`
}

// PullUseCase defines the pull reconciler operations
type PullUseCase interface {
	// Pull reconciles customers, then orders, then payments. Items already applied stay
	// committed when a later item aborts the pass.
	Pull(ctx context.Context) (PullResult, error)
}
