package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/ledgersync/internal/ledger/domain"
)

const paymentColumns = `id, order_id, amount_paid, payment_at, updated_at`

// PaymentRepository handles payment persistence.
type PaymentRepository struct {
	sqlRepository
}

// NewPaymentRepository creates a new PaymentRepository for the given driver.
func NewPaymentRepository(db *sql.DB, driver string) *PaymentRepository {
	return &PaymentRepository{sqlRepository{db: db, driver: driver}}
}

// Get retrieves a payment by ID.
func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.querier(ctx).QueryRowContext(ctx,
		r.rebind(`SELECT `+paymentColumns+` FROM payments WHERE id = ?`), id).Scan(
		&p.ID, &p.OrderID, &p.AmountPaid, &p.PaymentAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Exists reports whether a payment row exists.
func (r *PaymentRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = ?)`, id)
}

// ListIDs returns every local payment ID.
func (r *PaymentRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM payments ORDER BY id`)
}

// ListIDsByOrder returns the IDs of the payments recorded against orderID.
func (r *PaymentRepository) ListIDsByOrder(ctx context.Context, orderID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM payments WHERE order_id = ? ORDER BY id`, orderID)
}

// Upsert writes the payment row in place or inserts it when missing.
func (r *PaymentRepository) Upsert(ctx context.Context, p *domain.Payment) error {
	found, err := r.Exists(ctx, p.ID)
	if err != nil {
		return err
	}

	if found {
		return r.exec(ctx, `UPDATE payments SET order_id = ?, amount_paid = ?, payment_at = ?, updated_at = ?
			WHERE id = ?`, p.OrderID, p.AmountPaid, p.PaymentAt, p.UpdatedAt, p.ID)
	}
	return r.exec(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.AmountPaid, p.PaymentAt, p.UpdatedAt)
}

// Delete removes a payment. Deleting a missing payment is not an error.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM payments WHERE id = ?`, id)
}
