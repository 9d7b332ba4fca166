// Package repository provides data persistence implementations for outbox entries.
package repository

import (
	"database/sql"
	"errors"

	"github.com/allisson/ledgersync/internal/outbox/domain"
)

const outboxColumns = `id, type, entity_kind, entity_id, payload, cloud_path, status, priority, attempt_count,
	last_error_message, created_at, updated_at, op_updated_at, last_known_remote_sha, revision`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutboxEntry(row rowScanner) (*domain.OutboxEntry, error) {
	var entry domain.OutboxEntry
	err := row.Scan(
		&entry.ID,
		&entry.Type,
		&entry.EntityKind,
		&entry.EntityID,
		&entry.Payload,
		&entry.CloudPath,
		&entry.Status,
		&entry.Priority,
		&entry.AttemptCount,
		&entry.LastErrorMessage,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.OpUpdatedAt,
		&entry.LastKnownRemoteSha,
		&entry.Revision,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func scanOutboxEntries(rows *sql.Rows) ([]*domain.OutboxEntry, error) {
	defer rows.Close() //nolint:errcheck

	var entries []*domain.OutboxEntry
	for rows.Next() {
		entry, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func scanOutboxStats(rows *sql.Rows) (domain.OutboxStats, error) {
	defer rows.Close() //nolint:errcheck

	var stats domain.OutboxStats
	for rows.Next() {
		var status domain.OutboxEntryStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch status {
		case domain.OutboxEntryStatusQueued:
			stats.Queued = count
		case domain.OutboxEntryStatusInProgress:
			stats.InProgress = count
		case domain.OutboxEntryStatusDone:
			stats.Done = count
		case domain.OutboxEntryStatusError:
			stats.Error = count
		}
	}

	return stats, rows.Err()
}

func activeStatuses() []any {
	return []any{domain.OutboxEntryStatusQueued, domain.OutboxEntryStatusInProgress}
}
