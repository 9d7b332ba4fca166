package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/allisson/ledgersync/internal/database"
	apperrors "github.com/allisson/ledgersync/internal/errors"
	ledgerDomain "github.com/allisson/ledgersync/internal/ledger/domain"
	"github.com/allisson/ledgersync/internal/ledger/dto"
	outboxDomain "github.com/allisson/ledgersync/internal/outbox/domain"
)

type itemOutcome int

const (
	itemUnchanged itemOutcome = iota
	itemCreated
	itemUpdated
	itemSkipped
)

// remoteRef identifies a remote document by entity ID and, for orders, the owning customer.
type remoteRef struct {
	ID       string
	ParentID string
}

// collection describes how one entity collection is listed, applied and pruned.
type collection struct {
	kind     outboxDomain.EntityKind
	folder   string
	parse    func(path string) (remoteRef, bool)
	apply    func(ctx context.Context, ref remoteRef, data []byte) (itemOutcome, error)
	localIDs func(ctx context.Context) ([]string, error)
	delete   func(ctx context.Context, id string) error
}

// pullUseCase implements PullUseCase
type pullUseCase struct {
	txManager database.TxManager
	remote    RemoteReader
	customers CustomerRepository
	orders    OrderRepository
	payments  PaymentRepository
	pending   PendingChecker
	logger    *slog.Logger
}

// NewPullUseCase creates a new PullUseCase
func NewPullUseCase(
	txManager database.TxManager,
	remote RemoteReader,
	customers CustomerRepository,
	orders OrderRepository,
	payments PaymentRepository,
	pending PendingChecker,
	logger *slog.Logger,
) PullUseCase {
	return &pullUseCase{
		txManager: txManager,
		remote:    remote,
		customers: customers,
		orders:    orders,
		payments:  payments,
		pending:   pending,
		logger:    logger,
	}
}

// Pull runs one reconciliation pass
func (p *pullUseCase) Pull(ctx context.Context) (PullResult, error) {
	var result PullResult

	steps := []struct {
		coll   collection
		result *CollectionResult
	}{
		{p.customerCollection(), &result.Customers},
		{p.orderCollection(), &result.Orders},
		{p.paymentCollection(), &result.Payments},
	}

	for _, step := range steps {
		collResult, err := p.reconcile(ctx, step.coll)
		*step.result = collResult
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, fmt.Errorf("%w: pull %s: %w", apperrors.ErrRetryLater, step.coll.folder, err)
		}
	}

	p.logger.Info("pull completed",
		slog.Any("customers", result.Customers),
		slog.Any("orders", result.Orders),
		slog.Any("payments", result.Payments),
	)
	return result, nil
}

func (p *pullUseCase) reconcile(ctx context.Context, coll collection) (CollectionResult, error) {
	var result CollectionResult

	paths, err := p.remote.List(ctx, coll.folder)
	if err != nil {
		return result, err
	}

	present := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		ref, ok := coll.parse(path)
		if !ok {
			continue
		}
		present[ref.ID] = struct{}{}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := p.remote.Get(ctx, path)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				p.logger.Warn("remote document vanished after listing", slog.String("path", path))
				result.Skipped++
				continue
			}
			return result, err
		}

		if !gjson.ValidBytes(data) {
			p.logger.Warn("skipping malformed remote document", slog.String("path", path))
			result.Skipped++
			continue
		}

		outcome, err := coll.apply(ctx, ref, data)
		if err != nil {
			return result, err
		}
		switch outcome {
		case itemCreated:
			result.Created++
		case itemUpdated:
			result.Updated++
		case itemSkipped:
			result.Skipped++
		default:
			result.Unchanged++
		}
	}

	localIDs, err := coll.localIDs(ctx)
	if err != nil {
		return result, err
	}

	for _, id := range localIDs {
		if _, ok := present[id]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pending, err := p.pending.HasUnpushedForEntity(ctx, coll.kind, id)
		if err != nil {
			return result, err
		}
		if pending {
			p.logger.Debug("keeping unpushed local entity",
				slog.String("entity_kind", string(coll.kind)),
				slog.String("entity_id", id),
			)
			result.Skipped++
			continue
		}

		if err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
			return coll.delete(ctx, id)
		}); err != nil {
			return result, err
		}
		result.Deleted++
	}

	return result, nil
}

// remoteUpdatedAt peeks the logical timestamp without decoding the whole document.
func remoteUpdatedAt(data []byte, fallback string) int64 {
	if updatedAt := gjson.GetBytes(data, "updatedAt").Int(); updatedAt > 0 {
		return updatedAt
	}
	if fallback != "" {
		return gjson.GetBytes(data, fallback).Int()
	}
	return 0
}

func (p *pullUseCase) skip(kind outboxDomain.EntityKind, id string, err error) (itemOutcome, error) {
	p.logger.Warn("skipping remote document",
		slog.String("entity_kind", string(kind)),
		slog.String("entity_id", id),
		slog.Any("error", err),
	)
	return itemSkipped, nil
}

func (p *pullUseCase) customerCollection() collection {
	return collection{
		kind:   outboxDomain.EntityKindCustomer,
		folder: dto.CustomersFolder,
		parse: func(path string) (remoteRef, bool) {
			id, ok := dto.ParseCustomerPath(path)
			return remoteRef{ID: id}, ok
		},
		apply:    p.applyCustomer,
		localIDs: p.customers.ListIDs,
		delete:   p.customers.Delete,
	}
}

func (p *pullUseCase) applyCustomer(ctx context.Context, ref remoteRef, data []byte) (itemOutcome, error) {
	updatedAt := remoteUpdatedAt(data, "")

	var outcome itemOutcome
	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		local, err := p.customers.Get(ctx, ref.ID)
		if err != nil && !errors.Is(err, ledgerDomain.ErrCustomerNotFound) {
			return err
		}
		if local != nil && updatedAt <= local.UpdatedAt {
			outcome = itemUnchanged
			return nil
		}

		doc, err := dto.DecodeCustomer(data)
		if err == nil && doc.ID != ref.ID {
			err = fmt.Errorf("document id %q does not match path", doc.ID)
		}
		if err != nil {
			outcome, err = p.skip(outboxDomain.EntityKindCustomer, ref.ID, err)
			return err
		}

		if err := p.customers.Upsert(ctx, doc.ToCustomer()); err != nil {
			return err
		}
		outcome = createdOrUpdated(local != nil)
		return nil
	})
	return outcome, err
}

func (p *pullUseCase) orderCollection() collection {
	return collection{
		kind:   outboxDomain.EntityKindOrder,
		folder: dto.CustomersFolder,
		parse: func(path string) (remoteRef, bool) {
			customerID, orderID, ok := dto.ParseOrderPath(path)
			return remoteRef{ID: orderID, ParentID: customerID}, ok
		},
		apply:    p.applyOrder,
		localIDs: p.orders.ListIDs,
		delete:   p.orders.Delete,
	}
}

func (p *pullUseCase) applyOrder(ctx context.Context, ref remoteRef, data []byte) (itemOutcome, error) {
	updatedAt := remoteUpdatedAt(data, "")

	var outcome itemOutcome
	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		local, err := p.orders.Get(ctx, ref.ID)
		if err != nil && !errors.Is(err, ledgerDomain.ErrOrderNotFound) {
			return err
		}
		if local != nil && updatedAt <= local.UpdatedAt {
			outcome = itemUnchanged
			return nil
		}

		doc, err := dto.DecodeOrder(data)
		if err == nil && (doc.ID != ref.ID || doc.CustomerID != ref.ParentID) {
			err = fmt.Errorf("document ids %q/%q do not match path", doc.CustomerID, doc.ID)
		}
		if err != nil {
			outcome, err = p.skip(outboxDomain.EntityKindOrder, ref.ID, err)
			return err
		}

		parentExists, err := p.customers.Exists(ctx, doc.CustomerID)
		if err != nil {
			return err
		}
		if !parentExists {
			outcome, err = p.skip(outboxDomain.EntityKindOrder, ref.ID, ledgerDomain.ErrCustomerNotFound)
			return err
		}

		if err := p.orders.Upsert(ctx, doc.ToOrder()); err != nil {
			return err
		}
		outcome = createdOrUpdated(local != nil)
		return nil
	})
	return outcome, err
}

func (p *pullUseCase) paymentCollection() collection {
	return collection{
		kind:   outboxDomain.EntityKindPayment,
		folder: dto.PaymentsFolder,
		parse: func(path string) (remoteRef, bool) {
			id, ok := dto.ParsePaymentPath(path)
			return remoteRef{ID: id}, ok
		},
		apply:    p.applyPayment,
		localIDs: p.payments.ListIDs,
		delete:   p.payments.Delete,
	}
}

func (p *pullUseCase) applyPayment(ctx context.Context, ref remoteRef, data []byte) (itemOutcome, error) {
	updatedAt := remoteUpdatedAt(data, "paymentAt")

	var outcome itemOutcome
	err := p.txManager.WithTx(ctx, func(ctx context.Context) error {
		local, err := p.payments.Get(ctx, ref.ID)
		if err != nil && !errors.Is(err, ledgerDomain.ErrPaymentNotFound) {
			return err
		}
		if local != nil && updatedAt <= local.EffectiveUpdatedAt() {
			outcome = itemUnchanged
			return nil
		}

		doc, err := dto.DecodePayment(data)
		if err == nil && doc.ID != ref.ID {
			err = fmt.Errorf("document id %q does not match path", doc.ID)
		}
		if err != nil {
			outcome, err = p.skip(outboxDomain.EntityKindPayment, ref.ID, err)
			return err
		}

		parentExists, err := p.orders.Exists(ctx, doc.OrderID)
		if err != nil {
			return err
		}
		if !parentExists {
			outcome, err = p.skip(outboxDomain.EntityKindPayment, ref.ID, ledgerDomain.ErrOrderNotFound)
			return err
		}

		if err := p.payments.Upsert(ctx, doc.ToPayment()); err != nil {
			return err
		}
		outcome = createdOrUpdated(local != nil)
		return nil
	})
	return outcome, err
}

func createdOrUpdated(existed bool) itemOutcome {
	if existed {
		return itemUpdated
	}
	return itemCreated
}
