// Package domain defines the customer ledger entities kept in the local store.
//
// Timestamps are unix milliseconds. UpdatedAt is the logical clock used for
// last-writer-wins reconciliation against the remote store.
package domain

// Customer is a ledger account holder.
type Customer struct {
	ID               string
	Name             string
	Phone            string
	CreatedAt        int64
	UpdatedAt        int64
	TotalOutstanding float64
	HasPendingOrder  bool
}

// Order is a customer order. Items are always handled as a complete snapshot.
type Order struct {
	ID                string
	CustomerID        string
	InvoiceSeq        int64
	ReceivedAt        int64
	CreatedAt         int64
	UpdatedAt         int64
	AdjustedAmount    float64
	TotalAmount       float64
	RemainingBalance  float64
	PaidTotal         float64
	ProductCategories string
	Owners            string
	OrderStatus       string
	DeliveryDate      *int64
	WarrantyMonths    int
	Items             []OrderItem
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID                 string
	OrderID            string
	ProductTypeLabel   string
	ProductOwnerName   string
	FormDataJSON       string
	UnitPrice          float64
	Quantity           int
	DiscountPercentage float64
	Subtotal           float64
	FinalTotal         float64
	UpdatedAt          int64
}

// Payment records money received against an order.
type Payment struct {
	ID         string
	OrderID    string
	AmountPaid float64
	PaymentAt  int64
	UpdatedAt  int64
}

// EffectiveUpdatedAt returns the logical timestamp used for conflict resolution.
// Payments written by older clients carry no updatedAt, so paymentAt stands in.
func (p *Payment) EffectiveUpdatedAt() int64 {
	if p.UpdatedAt > 0 {
		return p.UpdatedAt
	}
	return p.PaymentAt
}
