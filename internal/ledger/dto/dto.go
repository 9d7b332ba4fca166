// Package dto defines the JSON documents exchanged with the remote object store
// and the path convention that addresses them.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	"github.com/allisson/ledgersync/internal/ledger/domain"
	customValidation "github.com/allisson/ledgersync/internal/validation"
)

// CustomerDto is stored at customers/{id}/profile.json.
type CustomerDto struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	CreatedAt        int64   `json:"createdAt"`
	UpdatedAt        int64   `json:"updatedAt"`
	TotalOutstanding float64 `json:"totalOutstanding"`
	HasPendingOrder  bool    `json:"hasPendingOrder"`
}

// OrderDto is stored at customers/{customerId}/orders/{id}.json and embeds its items.
type OrderDto struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customerId"`
	InvoiceSeq        int64          `json:"invoiceSeq"`
	ReceivedAt        int64          `json:"receivedAt"`
	CreatedAt         int64          `json:"createdAt"`
	UpdatedAt         int64          `json:"updatedAt"`
	AdjustedAmount    float64        `json:"adjustedAmount"`
	TotalAmount       float64        `json:"totalAmount"`
	RemainingBalance  float64        `json:"remainingBalance"`
	PaidTotal         float64        `json:"paidTotal"`
	ProductCategories string         `json:"productCategories"`
	Owners            string         `json:"owners"`
	OrderStatus       string         `json:"orderStatus"`
	DeliveryDate      *int64         `json:"deliveryDate"`
	WarrantyMonths    int            `json:"warrantyMonths"`
	Items             []OrderItemDto `json:"items"`
}

// OrderItemDto is a line item embedded in OrderDto.
type OrderItemDto struct {
	ID                 string  `json:"id"`
	OrderID            string  `json:"orderId"`
	ProductTypeLabel   string  `json:"productTypeLabel"`
	ProductOwnerName   string  `json:"productOwnerName"`
	FormDataJSON       string  `json:"formDataJson"`
	UnitPrice          float64 `json:"unitPrice"`
	Quantity           int     `json:"quantity"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Subtotal           float64 `json:"subtotal"`
	FinalTotal         float64 `json:"finalTotal"`
	UpdatedAt          int64   `json:"updatedAt"`
}

// PaymentDto is stored at payments/{id}.json.
type PaymentDto struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"orderId"`
	AmountPaid float64 `json:"amountPaid"`
	PaymentAt  int64   `json:"paymentAt"`
	UpdatedAt  int64   `json:"updatedAt,omitempty"`
}

// Validate checks the customer document.
func (d *CustomerDto) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required, customValidation.NotBlank, customValidation.PathSegment),
		validation.Field(&d.UpdatedAt, validation.Min(int64(0))),
		validation.Field(&d.CreatedAt, validation.Min(int64(0))),
	)
}

// Validate checks the order document and every embedded item.
func (d *OrderDto) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required, customValidation.NotBlank, customValidation.PathSegment),
		validation.Field(&d.CustomerID, validation.Required, customValidation.PathSegment),
		validation.Field(&d.UpdatedAt, validation.Min(int64(0))),
		validation.Field(&d.WarrantyMonths, validation.Min(0)),
		validation.Field(&d.Items, validation.By(func(value interface{}) error {
			for i := range d.Items {
				item := d.Items[i]
				if item.OrderID != "" && item.OrderID != d.ID {
					return validation.NewError("validation_item_order", "items must belong to the order")
				}
				if err := item.Validate(); err != nil {
					return err
				}
			}
			return nil
		})),
	)
}

// Validate checks a single order item.
func (d *OrderItemDto) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required, customValidation.NotBlank),
		validation.Field(&d.Quantity, validation.Min(0)),
		validation.Field(&d.FormDataJSON, customValidation.JSONText),
	)
}

// Validate checks the payment document.
func (d *PaymentDto) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required, customValidation.NotBlank, customValidation.PathSegment),
		validation.Field(&d.OrderID, validation.Required),
		validation.Field(&d.PaymentAt, validation.Min(int64(0))),
	)
}

// Encode marshals a document into its canonical JSON text.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeCustomer unmarshals and validates a customer document.
func DecodeCustomer(data []byte) (*CustomerDto, error) {
	var d CustomerDto
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return &d, nil
}

// DecodeOrder unmarshals and validates an order document.
func DecodeOrder(data []byte) (*OrderDto, error) {
	var d OrderDto
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return &d, nil
}

// DecodePayment unmarshals and validates a payment document.
func DecodePayment(data []byte) (*PaymentDto, error) {
	var d PaymentDto
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}
	return &d, nil
}

// FromCustomer maps a ledger customer to its remote document.
func FromCustomer(c *domain.Customer) CustomerDto {
	return CustomerDto{
		ID:               c.ID,
		Name:             c.Name,
		Phone:            c.Phone,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		TotalOutstanding: c.TotalOutstanding,
		HasPendingOrder:  c.HasPendingOrder,
	}
}

// ToCustomer maps a remote document to a ledger customer.
func (d *CustomerDto) ToCustomer() *domain.Customer {
	return &domain.Customer{
		ID:               d.ID,
		Name:             d.Name,
		Phone:            d.Phone,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		TotalOutstanding: d.TotalOutstanding,
		HasPendingOrder:  d.HasPendingOrder,
	}
}

// FromOrder maps a ledger order, including its items, to its remote document.
func FromOrder(o *domain.Order) OrderDto {
	items := make([]OrderItemDto, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDto{
			ID:                 item.ID,
			OrderID:            o.ID,
			ProductTypeLabel:   item.ProductTypeLabel,
			ProductOwnerName:   item.ProductOwnerName,
			FormDataJSON:       item.FormDataJSON,
			UnitPrice:          item.UnitPrice,
			Quantity:           item.Quantity,
			DiscountPercentage: item.DiscountPercentage,
			Subtotal:           item.Subtotal,
			FinalTotal:         item.FinalTotal,
			UpdatedAt:          item.UpdatedAt,
		})
	}

	return OrderDto{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		InvoiceSeq:        o.InvoiceSeq,
		ReceivedAt:        o.ReceivedAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		AdjustedAmount:    o.AdjustedAmount,
		TotalAmount:       o.TotalAmount,
		RemainingBalance:  o.RemainingBalance,
		PaidTotal:         o.PaidTotal,
		ProductCategories: o.ProductCategories,
		Owners:            o.Owners,
		OrderStatus:       o.OrderStatus,
		DeliveryDate:      o.DeliveryDate,
		WarrantyMonths:    o.WarrantyMonths,
		Items:             items,
	}
}

// ToOrder maps a remote document to a ledger order with its items.
func (d *OrderDto) ToOrder() *domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ID:                 item.ID,
			OrderID:            d.ID,
			ProductTypeLabel:   item.ProductTypeLabel,
			ProductOwnerName:   item.ProductOwnerName,
			FormDataJSON:       item.FormDataJSON,
			UnitPrice:          item.UnitPrice,
			Quantity:           item.Quantity,
			DiscountPercentage: item.DiscountPercentage,
			Subtotal:           item.Subtotal,
			FinalTotal:         item.FinalTotal,
			UpdatedAt:          item.UpdatedAt,
		})
	}

	return &domain.Order{
		ID:                d.ID,
		CustomerID:        d.CustomerID,
		InvoiceSeq:        d.InvoiceSeq,
		ReceivedAt:        d.ReceivedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		AdjustedAmount:    d.AdjustedAmount,
		TotalAmount:       d.TotalAmount,
		RemainingBalance:  d.RemainingBalance,
		PaidTotal:         d.PaidTotal,
		ProductCategories: d.ProductCategories,
		Owners:            d.Owners,
		OrderStatus:       d.OrderStatus,
		DeliveryDate:      d.DeliveryDate,
		WarrantyMonths:    d.WarrantyMonths,
		Items:             items,
	}
}

// FromPayment maps a ledger payment to its remote document.
func FromPayment(p *domain.Payment) PaymentDto {
	return PaymentDto{
		ID:         p.ID,
		OrderID:    p.OrderID,
		AmountPaid: p.AmountPaid,
		PaymentAt:  p.PaymentAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ToPayment maps a remote document to a ledger payment.
func (d *PaymentDto) ToPayment() *domain.Payment {
	return &domain.Payment{
		ID:         d.ID,
		OrderID:    d.OrderID,
		AmountPaid: d.AmountPaid,
		PaymentAt:  d.PaymentAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
