package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/allisson/ledgersync/internal/ledger/domain"
)

const (
	orderColumns = `id, customer_id, invoice_seq, received_at, created_at, updated_at, adjusted_amount,
		total_amount, remaining_balance, paid_total, product_categories, owners, order_status, delivery_date,
		warranty_months`

	orderItemColumns = `id, order_id, product_type_label, product_owner_name, form_data_json, unit_price,
		quantity, discount_percentage, subtotal, final_total, updated_at`
)

// OrderRepository handles order persistence. Items are stored and replaced as a snapshot.
type OrderRepository struct {
	sqlRepository
}

// NewOrderRepository creates a new OrderRepository for the given driver.
func NewOrderRepository(db *sql.DB, driver string) *OrderRepository {
	return &OrderRepository{sqlRepository{db: db, driver: driver}}
}

// Get retrieves an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o            domain.Order
		deliveryDate sql.NullInt64
	)

	err := r.querier(ctx).QueryRowContext(ctx,
		r.rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id).Scan(
		&o.ID, &o.CustomerID, &o.InvoiceSeq, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt, &o.AdjustedAmount,
		&o.TotalAmount, &o.RemainingBalance, &o.PaidTotal, &o.ProductCategories, &o.Owners, &o.OrderStatus,
		&deliveryDate, &o.WarrantyMonths,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if deliveryDate.Valid {
		o.DeliveryDate = &deliveryDate.Int64
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// Exists reports whether an order row exists.
func (r *OrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = ?)`, id)
}

// ListIDs returns every local order ID.
func (r *OrderRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM orders ORDER BY id`)
}

// ListIDsByCustomer returns the IDs of the orders owned by customerID.
func (r *OrderRepository) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM orders WHERE customer_id = ? ORDER BY id`, customerID)
}

// Upsert writes the order row in place, replaces its items wholesale and refreshes its search row.
func (r *OrderRepository) Upsert(ctx context.Context, o *domain.Order) error {
	found, err := r.Exists(ctx, o.ID)
	if err != nil {
		return err
	}

	if found {
		err = r.exec(ctx, `UPDATE orders
			SET customer_id = ?, invoice_seq = ?, received_at = ?, created_at = ?, updated_at = ?,
			    adjusted_amount = ?, total_amount = ?, remaining_balance = ?, paid_total = ?,
			    product_categories = ?, owners = ?, order_status = ?, delivery_date = ?, warranty_months = ?
			WHERE id = ?`,
			o.CustomerID, o.InvoiceSeq, o.ReceivedAt, o.CreatedAt, o.UpdatedAt, o.AdjustedAmount, o.TotalAmount,
			o.RemainingBalance, o.PaidTotal, o.ProductCategories, o.Owners, o.OrderStatus, o.DeliveryDate,
			o.WarrantyMonths, o.ID)
	} else {
		err = r.exec(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.CustomerID, o.InvoiceSeq, o.ReceivedAt, o.CreatedAt, o.UpdatedAt, o.AdjustedAmount,
			o.TotalAmount, o.RemainingBalance, o.PaidTotal, o.ProductCategories, o.Owners, o.OrderStatus,
			o.DeliveryDate, o.WarrantyMonths)
	}
	if err != nil {
		return err
	}

	if err := r.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
		return err
	}
	for i := range o.Items {
		item := &o.Items[i]
		err := r.exec(ctx, `INSERT INTO order_items (`+orderItemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, o.ID, item.ProductTypeLabel, item.ProductOwnerName, item.FormDataJSON, item.UnitPrice,
			item.Quantity, item.DiscountPercentage, item.Subtotal, item.FinalTotal, item.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return r.upsertSearchRow(ctx, searchKindOrder, o.ID, o.CustomerID,
		strconv.FormatInt(o.InvoiceSeq, 10), o.ProductCategories, o.Owners, o.OrderStatus)
}

// Delete removes an order with its items, payments and search row.
// Deleting a missing order is not an error.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if err := r.exec(ctx, `DELETE FROM payments WHERE order_id = ?`, id); err != nil {
		return err
	}
	if err := r.exec(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return err
	}
	if err := r.deleteSearchRow(ctx, searchKindOrder, id); err != nil {
		return err
	}
	return r.exec(ctx, `DELETE FROM orders WHERE id = ?`, id)
}

func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.querier(ctx).QueryContext(ctx,
		r.rebind(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`), orderID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductTypeLabel, &item.ProductOwnerName,
			&item.FormDataJSON, &item.UnitPrice, &item.Quantity, &item.DiscountPercentage, &item.Subtotal,
			&item.FinalTotal, &item.UpdatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
