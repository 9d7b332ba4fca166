package usecase

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ledgersync/internal/database"
	apperrors "github.com/allisson/ledgersync/internal/errors"
	"github.com/allisson/ledgersync/internal/ledger/domain"
	"github.com/allisson/ledgersync/internal/ledger/dto"
	"github.com/allisson/ledgersync/internal/ledger/repository"
	outboxDomain "github.com/allisson/ledgersync/internal/outbox/domain"
	outboxRepository "github.com/allisson/ledgersync/internal/outbox/repository"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
	"github.com/allisson/ledgersync/internal/testutil"
)

const testNow = int64(1_700_000_000_000)

type ledgerFixture struct {
	uc     *ledgerUseCase
	outbox *outboxRepository.SQLiteOutboxEntryRepository
	count  func(table string) int
}

func newLedgerFixture(t *testing.T, enqueuer Enqueuer) *ledgerFixture {
	t.Helper()

	db := testutil.SetupSQLiteDB(t)
	t.Cleanup(func() { testutil.TeardownDB(t, db) })

	logger := slog.New(slog.DiscardHandler)
	txManager := database.NewTxManager(db)
	outboxRepo := outboxRepository.NewSQLiteOutboxEntryRepository(db)
	if enqueuer == nil {
		enqueuer = outboxUsecase.NewQueueUseCase(outboxUsecase.Config{}, txManager, outboxRepo, logger)
	}

	uc := NewLedgerUseCase(
		txManager,
		repository.NewCustomerRepository(db, database.DriverSQLite),
		repository.NewOrderRepository(db, database.DriverSQLite),
		repository.NewPaymentRepository(db, database.DriverSQLite),
		enqueuer,
		logger,
	).(*ledgerUseCase)
	uc.now = func() time.Time { return time.UnixMilli(testNow) }

	return &ledgerFixture{
		uc:     uc,
		outbox: outboxRepo,
		count:  func(table string) int { return testutil.CountRows(t, db, table) },
	}
}

func (f *ledgerFixture) queued(t *testing.T) []*outboxDomain.OutboxEntry {
	t.Helper()
	entries, err := f.outbox.GetByStatus(context.Background(), outboxDomain.OutboxEntryStatusQueued, 100)
	require.NoError(t, err)
	return entries
}

func newOrder(customerID, orderID string) *domain.Order {
	return &domain.Order{
		ID:          orderID,
		CustomerID:  customerID,
		InvoiceSeq:  7,
		TotalAmount: 80,
		Items: []domain.OrderItem{
			{ID: orderID + "-i1", ProductTypeLabel: "Shirt", UnitPrice: 40, Quantity: 2, Subtotal: 80, FinalTotal: 80},
		},
	}
}

// mockEnqueuer is a mock implementation of Enqueuer for testing.
type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, input outboxUsecase.EnqueueInput) (uuid.UUID, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func TestLedgerUseCase_SaveCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EnqueuesProfileUpsert", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		customer := &domain.Customer{ID: "c1", Name: "Alice", Phone: "555-0100"}

		require.NoError(t, f.uc.SaveCustomer(ctx, customer))
		assert.Equal(t, testNow, customer.CreatedAt)
		assert.Equal(t, testNow, customer.UpdatedAt)

		entries := f.queued(t)
		require.Len(t, entries, 1)
		entry := entries[0]
		assert.Equal(t, outboxDomain.OperationTypeCustomerUpsert, entry.Type)
		assert.Equal(t, "c1", entry.EntityID)
		assert.Equal(t, "customers/c1/profile.json", entry.CloudPath)
		assert.Equal(t, outboxDomain.PriorityCustomer, entry.Priority)
		assert.Equal(t, testNow, entry.OpUpdatedAt)

		expected, err := dto.Encode(dto.FromCustomer(customer))
		require.NoError(t, err)
		assert.JSONEq(t, string(expected), entry.Payload)
	})

	t.Run("Success_RepeatedWritesCoalesce", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		customer := &domain.Customer{ID: "c1", Name: "Alice"}

		require.NoError(t, f.uc.SaveCustomer(ctx, customer))
		customer.Name = "Alice Smith"
		require.NoError(t, f.uc.SaveCustomer(ctx, customer))

		// Clock did not move, the second write is still strictly newer
		assert.Equal(t, testNow+1, customer.UpdatedAt)

		entries := f.queued(t)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Payload, "Alice Smith")
		assert.Equal(t, 1, entries[0].Revision)
	})

	t.Run("Error_InvalidCustomer", func(t *testing.T) {
		f := newLedgerFixture(t, nil)

		err := f.uc.SaveCustomer(ctx, &domain.Customer{ID: "bad/id"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, 0, f.count("customers"))
		assert.Empty(t, f.queued(t))
	})

	t.Run("Error_EnqueueFailureRollsBackWrite", func(t *testing.T) {
		enqueuer := &mockEnqueuer{}
		enqueuer.On("Enqueue", mock.Anything, mock.Anything).Return(uuid.Nil, assert.AnError).Once()
		f := newLedgerFixture(t, enqueuer)

		err := f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c1", Name: "Alice"})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 0, f.count("customers"))
		assert.Equal(t, 0, f.count("search_index"))
		enqueuer.AssertExpectations(t)
	})
}

func TestLedgerUseCase_SaveOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EnqueuesOrderUpsert", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c1", Name: "Alice"}))

		order := newOrder("c1", "o1")
		require.NoError(t, f.uc.SaveOrder(ctx, order))
		assert.Equal(t, "o1", order.Items[0].OrderID)

		entries := f.queued(t)
		require.Len(t, entries, 2)
		assert.Equal(t, outboxDomain.OperationTypeCustomerUpsert, entries[0].Type)
		assert.Equal(t, outboxDomain.OperationTypeOrderUpsert, entries[1].Type)
		assert.Equal(t, "customers/c1/orders/o1.json", entries[1].CloudPath)

		stored, err := f.uc.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, order.UpdatedAt, stored.Items[0].UpdatedAt)
	})

	t.Run("Error_MissingCustomer", func(t *testing.T) {
		f := newLedgerFixture(t, nil)

		err := f.uc.SaveOrder(ctx, newOrder("nobody", "o1"))
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
		assert.Equal(t, 0, f.count("orders"))
		assert.Empty(t, f.queued(t))
	})

	t.Run("Error_CustomerChanged", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "A", Name: "Alice"}))
		require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "B", Name: "Bob"}))
		require.NoError(t, f.uc.SaveOrder(ctx, newOrder("A", "o1")))

		err := f.uc.SaveOrder(ctx, newOrder("B", "o1"))
		assert.ErrorIs(t, err, domain.ErrOrderCustomerChanged)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		stored, err := f.uc.GetOrder(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, "A", stored.CustomerID)

		var orderPaths []string
		for _, entry := range f.queued(t) {
			if entry.EntityKind == outboxDomain.EntityKindOrder {
				orderPaths = append(orderPaths, entry.CloudPath)
			}
		}
		assert.Equal(t, []string{"customers/A/orders/o1.json"}, orderPaths)
	})
}

func TestLedgerUseCase_SavePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EnqueuesPaymentUpsert", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c1", Name: "Alice"}))
		require.NoError(t, f.uc.SaveOrder(ctx, newOrder("c1", "o1")))

		payment := &domain.Payment{ID: "p1", OrderID: "o1", AmountPaid: 30}
		require.NoError(t, f.uc.SavePayment(ctx, payment))
		assert.Equal(t, testNow, payment.PaymentAt)

		entries := f.queued(t)
		require.Len(t, entries, 3)
		assert.Equal(t, outboxDomain.OperationTypePaymentUpsert, entries[2].Type)
		assert.Equal(t, "payments/p1.json", entries[2].CloudPath)

		stored, err := f.uc.GetPayment(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 30.0, stored.AmountPaid)
	})

	t.Run("Error_MissingOrder", func(t *testing.T) {
		f := newLedgerFixture(t, nil)

		err := f.uc.SavePayment(ctx, &domain.Payment{ID: "p1", OrderID: "nobody", AmountPaid: 1})
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		assert.Empty(t, f.queued(t))
	})
}

func TestLedgerUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, f *ledgerFixture) {
		require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c1", Name: "Alice"}))
		require.NoError(t, f.uc.SaveOrder(ctx, newOrder("c1", "o1")))
		require.NoError(t, f.uc.SavePayment(ctx, &domain.Payment{ID: "p1", OrderID: "o1", AmountPaid: 30}))
	}

	t.Run("DeleteCustomer_CancelsUpsertsAndEnqueuesDeletes", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		seed(t, f)

		require.NoError(t, f.uc.DeleteCustomer(ctx, "c1"))

		types := make(map[outboxDomain.OperationType]string)
		for _, entry := range f.queued(t) {
			types[entry.Type] = entry.CloudPath
		}
		assert.Equal(t, map[outboxDomain.OperationType]string{
			outboxDomain.OperationTypeCustomerDelete: "customers/c1/profile.json",
			outboxDomain.OperationTypeOrderDelete:    "customers/c1/orders/o1.json",
			outboxDomain.OperationTypePaymentDelete:  "payments/p1.json",
		}, types)

		assert.Equal(t, 0, f.count("customers"))
		assert.Equal(t, 0, f.count("orders"))
		assert.Equal(t, 0, f.count("order_items"))
		assert.Equal(t, 0, f.count("payments"))
		assert.Equal(t, 0, f.count("search_index"))
	})

	t.Run("DeleteCustomer_NotFound", func(t *testing.T) {
		f := newLedgerFixture(t, nil)

		err := f.uc.DeleteCustomer(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
		assert.Empty(t, f.queued(t))
	})

	t.Run("DeleteOrder_KeepsCustomer", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		seed(t, f)

		require.NoError(t, f.uc.DeleteOrder(ctx, "o1"))

		entries := f.queued(t)
		require.Len(t, entries, 3)
		assert.Equal(t, outboxDomain.OperationTypeCustomerUpsert, entries[0].Type)
		assert.Equal(t, outboxDomain.OperationTypeOrderDelete, entries[1].Type)
		assert.Equal(t, outboxDomain.OperationTypePaymentDelete, entries[2].Type)
		assert.Equal(t, 1, f.count("customers"))
		assert.Equal(t, 0, f.count("orders"))
	})

	t.Run("DeletePayment", func(t *testing.T) {
		f := newLedgerFixture(t, nil)
		seed(t, f)

		require.NoError(t, f.uc.DeletePayment(ctx, "p1"))
		assert.ErrorIs(t, f.uc.DeletePayment(ctx, "p1"), domain.ErrPaymentNotFound)

		_, err := f.uc.GetPayment(ctx, "p1")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}

func TestLedgerUseCase_SearchCustomers(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)

	require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c1", Name: "Alice", Phone: "555-0100"}))
	require.NoError(t, f.uc.SaveCustomer(ctx, &domain.Customer{ID: "c2", Name: "Bob", Phone: "555-0200"}))

	customers, err := f.uc.SearchCustomers(ctx, "0200", 0)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "c2", customers[0].ID)

	customers, err = f.uc.SearchCustomers(ctx, "555", 0)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}
