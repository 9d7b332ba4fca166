package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/allisson/ledgersync/internal/ledger/dto"
	customValidation "github.com/allisson/ledgersync/internal/validation"
)

// EntityKind names the ledger entity an operation targets.
type EntityKind string

const (
	EntityKindCustomer EntityKind = "CUSTOMER"
	EntityKindOrder    EntityKind = "ORDER"
	EntityKindPayment  EntityKind = "PAYMENT"
)

// OperationType is the persisted tag of an outbox entry, {Entity}_{UPSERT|DELETE}.
type OperationType string

const (
	OperationTypeCustomerUpsert OperationType = "CUSTOMER_UPSERT"
	OperationTypeCustomerDelete OperationType = "CUSTOMER_DELETE"
	OperationTypeOrderUpsert    OperationType = "ORDER_UPSERT"
	OperationTypeOrderDelete    OperationType = "ORDER_DELETE"
	OperationTypePaymentUpsert  OperationType = "PAYMENT_UPSERT"
	OperationTypePaymentDelete  OperationType = "PAYMENT_DELETE"
)

const (
	upsertSuffix = "_UPSERT"
	deleteSuffix = "_DELETE"
)

// Default drain priorities. Parents drain before children so a pulling client never
// sees an order before its customer.
const (
	PriorityCustomer = 3
	PriorityOrder    = 2
	PriorityPayment  = 1
)

// Valid reports whether t belongs to the closed set of operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OperationTypeCustomerUpsert, OperationTypeCustomerDelete,
		OperationTypeOrderUpsert, OperationTypeOrderDelete,
		OperationTypePaymentUpsert, OperationTypePaymentDelete:
		return true
	}
	return false
}

// IsUpsert reports whether t writes a document.
func (t OperationType) IsUpsert() bool {
	return strings.HasSuffix(string(t), upsertSuffix)
}

// IsDelete reports whether t removes a document.
func (t OperationType) IsDelete() bool {
	return strings.HasSuffix(string(t), deleteSuffix)
}

// Kind returns the entity kind encoded in the type tag.
func (t OperationType) Kind() EntityKind {
	s := string(t)
	s = strings.TrimSuffix(s, upsertSuffix)
	s = strings.TrimSuffix(s, deleteSuffix)
	return EntityKind(s)
}

// UpsertType returns the upsert operation type for the entity kind.
func (k EntityKind) UpsertType() OperationType {
	return OperationType(string(k) + upsertSuffix)
}

// DeleteType returns the delete operation type for the entity kind.
func (k EntityKind) DeleteType() OperationType {
	return OperationType(string(k) + deleteSuffix)
}

// DefaultPriority returns the drain priority used for the entity kind.
func (k EntityKind) DefaultPriority() int {
	switch k {
	case EntityKindCustomer:
		return PriorityCustomer
	case EntityKindOrder:
		return PriorityOrder
	default:
		return PriorityPayment
	}
}

// EntityRef is the payload of delete operations.
type EntityRef struct {
	ID string `json:"id"`
}

// Operation is a decoded outbox entry. The concrete types below form a closed set.
type Operation interface {
	Type() OperationType
	EntityID() string
	operation()
}

// DocumentOperation is an operation that overwrites a remote document.
type DocumentOperation interface {
	Operation
	Document() any
}

// CustomerUpsert writes a customer profile.
type CustomerUpsert struct{ Customer dto.CustomerDto }

// CustomerDelete removes a customer profile.
type CustomerDelete struct{ ID string }

// OrderUpsert writes an order with its items.
type OrderUpsert struct{ Order dto.OrderDto }

// OrderDelete removes an order.
type OrderDelete struct{ ID string }

// PaymentUpsert writes a payment.
type PaymentUpsert struct{ Payment dto.PaymentDto }

// PaymentDelete removes a payment.
type PaymentDelete struct{ ID string }

func (CustomerUpsert) Type() OperationType { return OperationTypeCustomerUpsert }
func (CustomerDelete) Type() OperationType { return OperationTypeCustomerDelete }
func (OrderUpsert) Type() OperationType    { return OperationTypeOrderUpsert }
func (OrderDelete) Type() OperationType    { return OperationTypeOrderDelete }
func (PaymentUpsert) Type() OperationType  { return OperationTypePaymentUpsert }
func (PaymentDelete) Type() OperationType  { return OperationTypePaymentDelete }

func (o CustomerUpsert) EntityID() string { return o.Customer.ID }
func (o CustomerDelete) EntityID() string { return o.ID }
func (o OrderUpsert) EntityID() string    { return o.Order.ID }
func (o OrderDelete) EntityID() string    { return o.ID }
func (o PaymentUpsert) EntityID() string  { return o.Payment.ID }
func (o PaymentDelete) EntityID() string  { return o.ID }

func (o CustomerUpsert) Document() any { return o.Customer }
func (o OrderUpsert) Document() any    { return o.Order }
func (o PaymentUpsert) Document() any  { return o.Payment }

func (CustomerUpsert) operation() {}
func (CustomerDelete) operation() {}
func (OrderUpsert) operation()    {}
func (OrderDelete) operation()    {}
func (PaymentUpsert) operation()  {}
func (PaymentDelete) operation()  {}

// DecodeOperation turns a persisted entry into its typed operation. Unknown types and
// undecodable payloads are permanent errors.
func DecodeOperation(entry *OutboxEntry) (Operation, error) {
	payload := []byte(entry.Payload)

	switch entry.Type {
	case OperationTypeCustomerUpsert:
		d, err := dto.DecodeCustomer(payload)
		if err != nil {
			return nil, invalidPayload(entry, err)
		}
		return CustomerUpsert{Customer: *d}, nil
	case OperationTypeOrderUpsert:
		d, err := dto.DecodeOrder(payload)
		if err != nil {
			return nil, invalidPayload(entry, err)
		}
		return OrderUpsert{Order: *d}, nil
	case OperationTypePaymentUpsert:
		d, err := dto.DecodePayment(payload)
		if err != nil {
			return nil, invalidPayload(entry, err)
		}
		return PaymentUpsert{Payment: *d}, nil
	case OperationTypeCustomerDelete, OperationTypeOrderDelete, OperationTypePaymentDelete:
		id, err := decodeRef(entry)
		if err != nil {
			return nil, err
		}
		switch entry.Type {
		case OperationTypeCustomerDelete:
			return CustomerDelete{ID: id}, nil
		case OperationTypeOrderDelete:
			return OrderDelete{ID: id}, nil
		default:
			return PaymentDelete{ID: id}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownOperationType, entry.Type)
}

func decodeRef(entry *OutboxEntry) (string, error) {
	var ref EntityRef
	if entry.Payload != "" {
		if err := json.Unmarshal([]byte(entry.Payload), &ref); err != nil {
			return "", invalidPayload(entry, err)
		}
	}
	if ref.ID == "" {
		ref.ID = entry.EntityID
	}
	if ref.ID == "" {
		return "", fmt.Errorf("%w: %s entry has no entity id", ErrInvalidPayload, entry.Type)
	}
	if err := customValidation.PathSegment.Validate(ref.ID); err != nil {
		return "", invalidPayload(entry, err)
	}
	return ref.ID, nil
}

func invalidPayload(entry *OutboxEntry, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, entry.Type, err)
}
