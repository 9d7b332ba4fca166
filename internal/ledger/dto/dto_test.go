package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ledgersync/internal/errors"
	"github.com/allisson/ledgersync/internal/ledger/domain"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestOrderDto_RoundTrip(t *testing.T) {
	order := OrderDto{
		ID:                "o-1",
		CustomerID:        "c-1",
		InvoiceSeq:        42,
		ReceivedAt:        1700000000000,
		CreatedAt:         1700000000000,
		UpdatedAt:         1700000005000,
		AdjustedAmount:    -5,
		TotalAmount:       120.5,
		RemainingBalance:  20.5,
		PaidTotal:         100,
		ProductCategories: "shirt,pants",
		Owners:            "Ann",
		OrderStatus:       "PENDING",
		DeliveryDate:      nil,
		WarrantyMonths:    6,
		Items: []OrderItemDto{
			{
				ID:                 "i-1",
				OrderID:            "o-1",
				ProductTypeLabel:   "Shirt",
				ProductOwnerName:   "Ann",
				FormDataJSON:       `{"size":"L"}`,
				UnitPrice:          60.25,
				Quantity:           2,
				DiscountPercentage: 0,
				Subtotal:           120.5,
				FinalTotal:         120.5,
				UpdatedAt:          1700000005000,
			},
		},
	}

	first, err := Encode(order)
	require.NoError(t, err)

	decoded, err := DecodeOrder(first)
	require.NoError(t, err)
	assert.Equal(t, order, *decoded)

	second, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), `"deliveryDate":null`)
}

func TestPaymentDto_UpdatedAtOmitted(t *testing.T) {
	data, err := Encode(PaymentDto{ID: "p-1", OrderID: "o-1", AmountPaid: 10, PaymentAt: 1000})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "updatedAt")

	decoded, err := DecodePayment([]byte(`{"id":"p-1","orderId":"o-1","amountPaid":10,"paymentAt":1000}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), decoded.ToPayment().EffectiveUpdatedAt())
}

func TestDecode_Invalid(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeCustomer([]byte(`{"id":`))
		assert.Error(t, err)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := DecodeCustomer([]byte(`{"name":"Ann"}`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("id with separator", func(t *testing.T) {
		_, err := DecodePayment([]byte(`{"id":"a/b","orderId":"o-1"}`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("item belongs to another order", func(t *testing.T) {
		_, err := DecodeOrder([]byte(`{"id":"o-1","customerId":"c-1","items":[{"id":"i-1","orderId":"o-2"}]}`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("item with invalid form data", func(t *testing.T) {
		_, err := DecodeOrder([]byte(`{"id":"o-1","customerId":"c-1","items":[{"id":"i-1","formDataJson":"{"}]}`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestMappers(t *testing.T) {
	customer := &domain.Customer{
		ID:               "c-1",
		Name:             "Ann",
		Phone:            "555",
		CreatedAt:        1,
		UpdatedAt:        2,
		TotalOutstanding: 12.5,
		HasPendingOrder:  true,
	}
	customerDto := FromCustomer(customer)
	assert.Equal(t, customer, customerDto.ToCustomer())

	order := &domain.Order{
		ID:           "o-1",
		CustomerID:   "c-1",
		UpdatedAt:    3,
		DeliveryDate: int64Ptr(99),
		Items:        []domain.OrderItem{{ID: "i-1", OrderID: "o-1", Quantity: 1}},
	}
	orderDto := FromOrder(order)
	assert.Equal(t, "o-1", orderDto.Items[0].OrderID)
	assert.Equal(t, order, orderDto.ToOrder())

	payment := &domain.Payment{ID: "p-1", OrderID: "o-1", AmountPaid: 5, PaymentAt: 10, UpdatedAt: 11}
	paymentDto := FromPayment(payment)
	assert.Equal(t, payment, paymentDto.ToPayment())
}
