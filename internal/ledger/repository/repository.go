// Package repository implements ledger persistence for the local store.
//
// Queries are written once with '?' placeholders and rebound per driver, so the
// same repositories serve sqlite3, postgres and mysql.
package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/allisson/ledgersync/internal/database"
)

// Search index entity kinds.
const (
	searchKindCustomer = "customer"
	searchKindOrder    = "order"
)

// likeEscaper makes LIKE wildcards in user input match literally under ESCAPE '!'.
// A backslash would need doubling inside MySQL string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

type sqlRepository struct {
	db     *sql.DB
	driver string
}

func (r *sqlRepository) querier(ctx context.Context) database.Querier {
	return database.GetTx(ctx, r.db)
}

func (r *sqlRepository) rebind(query string) string {
	return database.Rebind(r.driver, query)
}

func (r *sqlRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	err := r.querier(ctx).QueryRowContext(ctx, r.rebind(query), args...).Scan(&exists)
	return exists, err
}

func (r *sqlRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sqlRepository) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.querier(ctx).ExecContext(ctx, r.rebind(query), args...)
	return err
}

// upsertSearchRow replaces the search row of an entity.
func (r *sqlRepository) upsertSearchRow(ctx context.Context, kind, entityID, customerID string, terms ...string) error {
	if err := r.deleteSearchRow(ctx, kind, entityID); err != nil {
		return err
	}
	return r.exec(ctx,
		`INSERT INTO search_index (entity_kind, entity_id, customer_id, body) VALUES (?, ?, ?, ?)`,
		kind, entityID, customerID, searchBody(terms...))
}

func (r *sqlRepository) deleteSearchRow(ctx context.Context, kind, entityID string) error {
	return r.exec(ctx, `DELETE FROM search_index WHERE entity_kind = ? AND entity_id = ?`, kind, entityID)
}

func searchBody(terms ...string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			parts = append(parts, strings.ToLower(term))
		}
	}
	return strings.Join(parts, " ")
}

// prefixed qualifies every column of a comma separated column list with prefix.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
