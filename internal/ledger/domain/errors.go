package domain

import (
	"github.com/allisson/ledgersync/internal/errors"
)

// Ledger-specific error definitions.
var (
	// ErrCustomerNotFound indicates the customer does not exist in the local store.
	ErrCustomerNotFound = errors.Wrap(errors.ErrNotFound, "customer not found")

	// ErrOrderNotFound indicates the order does not exist in the local store.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrOrderCustomerChanged indicates an update tried to move an order to another customer.
	ErrOrderCustomerChanged = errors.Wrap(errors.ErrInvalidInput, "order cannot move to another customer")

	// ErrPaymentNotFound indicates the payment does not exist in the local store.
	ErrPaymentNotFound = errors.Wrap(errors.ErrNotFound, "payment not found")
)
