package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ledgersync/internal/errors"
)

func TestOperationType(t *testing.T) {
	tests := []struct {
		opType   OperationType
		kind     EntityKind
		isUpsert bool
		isDelete bool
	}{
		{OperationTypeCustomerUpsert, EntityKindCustomer, true, false},
		{OperationTypeCustomerDelete, EntityKindCustomer, false, true},
		{OperationTypeOrderUpsert, EntityKindOrder, true, false},
		{OperationTypeOrderDelete, EntityKindOrder, false, true},
		{OperationTypePaymentUpsert, EntityKindPayment, true, false},
		{OperationTypePaymentDelete, EntityKindPayment, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.opType), func(t *testing.T) {
			assert.True(t, tt.opType.Valid())
			assert.Equal(t, tt.kind, tt.opType.Kind())
			assert.Equal(t, tt.isUpsert, tt.opType.IsUpsert())
			assert.Equal(t, tt.isDelete, tt.opType.IsDelete())
		})
	}

	assert.False(t, OperationType("INVOICE_UPSERT").Valid())
	assert.Equal(t, OperationTypeOrderUpsert, EntityKindOrder.UpsertType())
	assert.Equal(t, OperationTypePaymentDelete, EntityKindPayment.DeleteType())
}

func TestEntityKind_DefaultPriority(t *testing.T) {
	assert.Greater(t, EntityKindCustomer.DefaultPriority(), EntityKindOrder.DefaultPriority())
	assert.Greater(t, EntityKindOrder.DefaultPriority(), EntityKindPayment.DefaultPriority())
}

func TestDecodeOperation(t *testing.T) {
	t.Run("customer upsert", func(t *testing.T) {
		op, err := DecodeOperation(&OutboxEntry{
			Type:     OperationTypeCustomerUpsert,
			EntityID: "c-1",
			Payload:  `{"id":"c-1","name":"Ann","updatedAt":10}`,
		})
		require.NoError(t, err)

		upsert, ok := op.(CustomerUpsert)
		require.True(t, ok)
		assert.Equal(t, "Ann", upsert.Customer.Name)
		assert.Equal(t, "c-1", op.EntityID())
		assert.Equal(t, OperationTypeCustomerUpsert, op.Type())
		_, isDocument := op.(DocumentOperation)
		assert.True(t, isDocument)
	})

	t.Run("order upsert", func(t *testing.T) {
		op, err := DecodeOperation(&OutboxEntry{
			Type:    OperationTypeOrderUpsert,
			Payload: `{"id":"o-1","customerId":"c-1","items":[{"id":"i-1","orderId":"o-1"}]}`,
		})
		require.NoError(t, err)
		upsert, ok := op.(OrderUpsert)
		require.True(t, ok)
		assert.Len(t, upsert.Order.Items, 1)
	})

	t.Run("payment delete from payload", func(t *testing.T) {
		op, err := DecodeOperation(&OutboxEntry{
			Type:    OperationTypePaymentDelete,
			Payload: `{"id":"p-1"}`,
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentDelete{ID: "p-1"}, op)
		_, isDocument := op.(DocumentOperation)
		assert.False(t, isDocument)
	})

	t.Run("order delete falls back to entity id", func(t *testing.T) {
		op, err := DecodeOperation(&OutboxEntry{Type: OperationTypeOrderDelete, EntityID: "o-9"})
		require.NoError(t, err)
		assert.Equal(t, OrderDelete{ID: "o-9"}, op)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeOperation(&OutboxEntry{Type: "INVOICE_UPSERT", Payload: `{}`})
		assert.ErrorIs(t, err, ErrUnknownOperationType)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		_, err := DecodeOperation(&OutboxEntry{Type: OperationTypeCustomerUpsert, Payload: `{"id":`})
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("delete without id", func(t *testing.T) {
		_, err := DecodeOperation(&OutboxEntry{Type: OperationTypeCustomerDelete, Payload: `{}`})
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestOutboxStats_Pending(t *testing.T) {
	stats := OutboxStats{Queued: 2, InProgress: 1, Done: 7, Error: 3}
	assert.Equal(t, int64(3), stats.Pending())
	assert.True(t, OutboxEntryStatusQueued.IsActive())
	assert.True(t, OutboxEntryStatusInProgress.IsActive())
	assert.False(t, OutboxEntryStatusError.IsActive())
}
