package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/database"
	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// PostgreSQLOutboxEntryRepository handles outbox entry persistence for PostgreSQL
type PostgreSQLOutboxEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEntryRepository creates a new PostgreSQLOutboxEntryRepository
func NewPostgreSQLOutboxEntryRepository(db *sql.DB) *PostgreSQLOutboxEntryRepository {
	return &PostgreSQLOutboxEntryRepository{
		db: db,
	}
}

// Create inserts a new outbox entry
func (r *PostgreSQLOutboxEntryRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_entries (` + outboxColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.Type, entry.EntityKind, entry.EntityID,
		entry.Payload, entry.CloudPath, entry.Status, entry.Priority, entry.AttemptCount, entry.LastErrorMessage,
		entry.CreatedAt, entry.UpdatedAt, entry.OpUpdatedAt, entry.LastKnownRemoteSha, entry.Revision)

	return err
}

// Update overwrites every mutable column of an outbox entry
func (r *PostgreSQLOutboxEntryRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET payload = $1, cloud_path = $2, status = $3, priority = $4, attempt_count = $5,
			      last_error_message = $6, updated_at = $7, op_updated_at = $8, last_known_remote_sha = $9,
			      revision = $10
			  WHERE id = $11`

	_, err := querier.ExecContext(ctx, query, entry.Payload, entry.CloudPath, entry.Status, entry.Priority,
		entry.AttemptCount, entry.LastErrorMessage, entry.UpdatedAt, entry.OpUpdatedAt, entry.LastKnownRemoteSha,
		entry.Revision, entry.ID)

	return err
}

// Delete removes an outbox entry. Deleting a missing entry is not an error.
func (r *PostgreSQLOutboxEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM outbox_entries WHERE id = $1`, id)
	return err
}

// GetByID retrieves an outbox entry and locks its row for the rest of the transaction
func (r *PostgreSQLOutboxEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + ` FROM outbox_entries WHERE id = $1 FOR UPDATE`

	return scanOutboxEntry(querier.QueryRowContext(ctx, query, id))
}

// GetByStatus retrieves entries with status in drain order: priority desc, created_at asc
func (r *PostgreSQLOutboxEntryRepository) GetByStatus(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = $1
			  ORDER BY priority DESC, created_at ASC, id ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// List retrieves entries with status for inspection, newest first
func (r *PostgreSQLOutboxEntryRepository) List(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	offset, limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// ListByStatusUpdatedBefore retrieves entries with status last touched before the given
// unix millisecond timestamp, most recently updated first
func (r *PostgreSQLOutboxEntryRepository) ListByStatusUpdatedBefore(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	updatedBefore int64,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = $1 AND updated_at < $2
			  ORDER BY updated_at DESC, id DESC
			  FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, status, updatedBefore)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// FindActiveByType returns the queued or in-progress entry of opType for entityID
func (r *PostgreSQLOutboxEntryRepository) FindActiveByType(
	ctx context.Context,
	opType domain.OperationType,
	entityID string,
) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE type = $1 AND entity_id = $2 AND status IN ($3, $4)
			  ORDER BY created_at ASC, id ASC
			  LIMIT 1
			  FOR UPDATE`

	args := append([]any{opType, entityID}, activeStatuses()...)
	return scanOutboxEntry(querier.QueryRowContext(ctx, query, args...))
}

// DeleteActiveByType deletes queued or in-progress entries of opType for entityID
func (r *PostgreSQLOutboxEntryRepository) DeleteActiveByType(
	ctx context.Context,
	opType domain.OperationType,
	entityID string,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_entries WHERE type = $1 AND entity_id = $2 AND status IN ($3, $4)`

	args := append([]any{opType, entityID}, activeStatuses()...)
	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HasActiveForEntity reports whether any queued or in-progress entry targets the entity
func (r *PostgreSQLOutboxEntryRepository) HasActiveForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (
			      SELECT 1 FROM outbox_entries
			      WHERE entity_kind = $1 AND entity_id = $2 AND status IN ($3, $4)
			  )`

	var exists bool
	args := append([]any{kind, entityID}, activeStatuses()...)
	err := querier.QueryRowContext(ctx, query, args...).Scan(&exists)
	return exists, err
}

// HasUnpushedForEntity reports whether any entry that has not reached done targets the entity
func (r *PostgreSQLOutboxEntryRepository) HasUnpushedForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (
			      SELECT 1 FROM outbox_entries
			      WHERE entity_kind = $1 AND entity_id = $2 AND status <> $3
			  )`

	var exists bool
	err := querier.QueryRowContext(ctx, query, kind, entityID, domain.OutboxEntryStatusDone).Scan(&exists)
	return exists, err
}

// DeleteFailedForEntity deletes every error entry targeting the entity
func (r *PostgreSQLOutboxEntryRepository) DeleteFailedForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_entries WHERE entity_kind = $1 AND entity_id = $2 AND status = $3`

	result, err := querier.ExecContext(ctx, query, kind, entityID, domain.OutboxEntryStatusError)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByStatus deletes entries with status last touched before the given timestamp
func (r *PostgreSQLOutboxEntryRepository) DeleteByStatus(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	updatedBefore int64,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM outbox_entries WHERE status = $1 AND updated_at < $2`, status, updatedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByStatus returns entry counts grouped by status
func (r *PostgreSQLOutboxEntryRepository) CountByStatus(ctx context.Context) (domain.OutboxStats, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_entries GROUP BY status`)
	if err != nil {
		return domain.OutboxStats{}, err
	}

	return scanOutboxStats(rows)
}
