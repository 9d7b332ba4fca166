package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/ledgersync/internal/ledger/domain"
)

const customerColumns = `id, name, phone, created_at, updated_at, total_outstanding, has_pending_order`

// CustomerRepository handles customer persistence and the customer search rows.
type CustomerRepository struct {
	sqlRepository
}

// NewCustomerRepository creates a new CustomerRepository for the given driver.
func NewCustomerRepository(db *sql.DB, driver string) *CustomerRepository {
	return &CustomerRepository{sqlRepository{db: db, driver: driver}}
}

// Get retrieves a customer by ID.
func (r *CustomerRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.querier(ctx).QueryRowContext(ctx,
		r.rebind(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// Exists reports whether a customer row exists.
func (r *CustomerRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = ?)`, id)
}

// ListIDs returns every local customer ID.
func (r *CustomerRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM customers ORDER BY id`)
}

// Upsert updates the customer row in place or inserts it when missing, then refreshes
// its search row. Rows are never replaced, so owned orders survive.
func (r *CustomerRepository) Upsert(ctx context.Context, c *domain.Customer) error {
	found, err := r.Exists(ctx, c.ID)
	if err != nil {
		return err
	}

	if found {
		err = r.exec(ctx, `UPDATE customers
			SET name = ?, phone = ?, created_at = ?, updated_at = ?, total_outstanding = ?, has_pending_order = ?
			WHERE id = ?`,
			c.Name, c.Phone, c.CreatedAt, c.UpdatedAt, c.TotalOutstanding, c.HasPendingOrder, c.ID)
	} else {
		err = r.exec(ctx, `INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Phone, c.CreatedAt, c.UpdatedAt, c.TotalOutstanding, c.HasPendingOrder)
	}
	if err != nil {
		return err
	}

	return r.upsertSearchRow(ctx, searchKindCustomer, c.ID, c.ID, c.Name, c.Phone)
}

// Delete removes a customer with its orders, order items, payments and search rows.
// Deleting a missing customer is not an error.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	statements := []string{
		`DELETE FROM payments WHERE order_id IN (SELECT id FROM orders WHERE customer_id = ?)`,
		`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE customer_id = ?)`,
		`DELETE FROM search_index WHERE customer_id = ?`,
		`DELETE FROM orders WHERE customer_id = ?`,
		`DELETE FROM customers WHERE id = ?`,
	}
	for _, stmt := range statements {
		if err := r.exec(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

// Search returns customers whose own or order search rows contain query, ordered by name.
func (r *CustomerRepository) Search(ctx context.Context, query string, limit int) ([]*domain.Customer, error) {
	pattern := "%" + likeEscaper.Replace(searchBody(query)) + "%"

	rows, err := r.querier(ctx).QueryContext(ctx, r.rebind(`SELECT `+prefixed("c.", customerColumns)+`
		FROM customers c
		WHERE c.id IN (SELECT s.customer_id FROM search_index s WHERE s.body LIKE ? ESCAPE '!')
		ORDER BY c.name ASC, c.id ASC
		LIMIT ?`), pattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	customers := make([]*domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt, &c.TotalOutstanding, &c.HasPendingOrder)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
