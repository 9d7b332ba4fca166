package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/database"
	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// MySQLOutboxEntryRepository handles outbox entry persistence for MySQL
type MySQLOutboxEntryRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEntryRepository creates a new MySQLOutboxEntryRepository
func NewMySQLOutboxEntryRepository(db *sql.DB) *MySQLOutboxEntryRepository {
	return &MySQLOutboxEntryRepository{
		db: db,
	}
}

// Create inserts a new outbox entry
func (r *MySQLOutboxEntryRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_entries (` + outboxColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.Type, entry.EntityKind, entry.EntityID,
		entry.Payload, entry.CloudPath, entry.Status, entry.Priority, entry.AttemptCount, entry.LastErrorMessage,
		entry.CreatedAt, entry.UpdatedAt, entry.OpUpdatedAt, entry.LastKnownRemoteSha, entry.Revision)

	return err
}

// Update overwrites every mutable column of an outbox entry
func (r *MySQLOutboxEntryRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET payload = ?, cloud_path = ?, status = ?, priority = ?, attempt_count = ?,
			      last_error_message = ?, updated_at = ?, op_updated_at = ?, last_known_remote_sha = ?,
			      revision = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, entry.Payload, entry.CloudPath, entry.Status, entry.Priority,
		entry.AttemptCount, entry.LastErrorMessage, entry.UpdatedAt, entry.OpUpdatedAt, entry.LastKnownRemoteSha,
		entry.Revision, entry.ID)

	return err
}

// Delete removes an outbox entry. Deleting a missing entry is not an error.
func (r *MySQLOutboxEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM outbox_entries WHERE id = ?`, id)
	return err
}

// GetByID retrieves an outbox entry and locks its row for the rest of the transaction
func (r *MySQLOutboxEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + ` FROM outbox_entries WHERE id = ? FOR UPDATE`

	return scanOutboxEntry(querier.QueryRowContext(ctx, query, id))
}

// GetByStatus retrieves entries with status in drain order: priority desc, created_at asc
func (r *MySQLOutboxEntryRepository) GetByStatus(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = ?
			  ORDER BY priority DESC, created_at ASC, id ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// List retrieves entries with status for inspection, newest first
func (r *MySQLOutboxEntryRepository) List(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	offset, limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// ListByStatusUpdatedBefore retrieves entries with status last touched before the given
// unix millisecond timestamp, most recently updated first
func (r *MySQLOutboxEntryRepository) ListByStatusUpdatedBefore(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	updatedBefore int64,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE status = ? AND updated_at < ?
			  ORDER BY updated_at DESC, id DESC
			  FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, status, updatedBefore)
	if err != nil {
		return nil, err
	}

	return scanOutboxEntries(rows)
}

// FindActiveByType returns the queued or in-progress entry of opType for entityID
func (r *MySQLOutboxEntryRepository) FindActiveByType(
	ctx context.Context,
	opType domain.OperationType,
	entityID string,
) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_entries
			  WHERE type = ? AND entity_id = ? AND status IN (?, ?)
			  ORDER BY created_at ASC, id ASC
			  LIMIT 1
			  FOR UPDATE`

	args := append([]any{opType, entityID}, activeStatuses()...)
	return scanOutboxEntry(querier.QueryRowContext(ctx, query, args...))
}

// DeleteActiveByType deletes queued or in-progress entries of opType for entityID
func (r *MySQLOutboxEntryRepository) DeleteActiveByType(
	ctx context.Context,
	opType domain.OperationType,
	entityID string,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_entries WHERE type = ? AND entity_id = ? AND status IN (?, ?)`

	args := append([]any{opType, entityID}, activeStatuses()...)
	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HasActiveForEntity reports whether any queued or in-progress entry targets the entity
func (r *MySQLOutboxEntryRepository) HasActiveForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (
			      SELECT 1 FROM outbox_entries
			      WHERE entity_kind = ? AND entity_id = ? AND status IN (?, ?)
			  )`

	var exists bool
	args := append([]any{kind, entityID}, activeStatuses()...)
	err := querier.QueryRowContext(ctx, query, args...).Scan(&exists)
	return exists, err
}

// HasUnpushedForEntity reports whether any entry that has not reached done targets the entity
func (r *MySQLOutboxEntryRepository) HasUnpushedForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (
			      SELECT 1 FROM outbox_entries
			      WHERE entity_kind = ? AND entity_id = ? AND status <> ?
			  )`

	var exists bool
	err := querier.QueryRowContext(ctx, query, kind, entityID, domain.OutboxEntryStatusDone).Scan(&exists)
	return exists, err
}

// DeleteFailedForEntity deletes every error entry targeting the entity
func (r *MySQLOutboxEntryRepository) DeleteFailedForEntity(
	ctx context.Context,
	kind domain.EntityKind,
	entityID string,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_entries WHERE entity_kind = ? AND entity_id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, kind, entityID, domain.OutboxEntryStatusError)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByStatus deletes entries with status last touched before the given timestamp
func (r *MySQLOutboxEntryRepository) DeleteByStatus(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	updatedBefore int64,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`DELETE FROM outbox_entries WHERE status = ? AND updated_at < ?`, status, updatedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByStatus returns entry counts grouped by status
func (r *MySQLOutboxEntryRepository) CountByStatus(ctx context.Context) (domain.OutboxStats, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_entries GROUP BY status`)
	if err != nil {
		return domain.OutboxStats{}, err
	}

	return scanOutboxStats(rows)
}
