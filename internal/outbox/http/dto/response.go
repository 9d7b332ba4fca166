// Package dto provides data transfer objects for the outbox admin endpoints.
package dto

import (
	"time"

	"github.com/allisson/ledgersync/internal/outbox/domain"
)

// StatsResponse reports outbox entry counts per status.
type StatsResponse struct {
	Queued     int64 `json:"queued"`
	InProgress int64 `json:"in_progress"`
	Done       int64 `json:"done"`
	Error      int64 `json:"error"`
	Pending    int64 `json:"pending"`
}

// MapStatsToResponse converts outbox stats to an API response.
func MapStatsToResponse(stats domain.OutboxStats) StatsResponse {
	return StatsResponse{
		Queued:     stats.Queued,
		InProgress: stats.InProgress,
		Done:       stats.Done,
		Error:      stats.Error,
		Pending:    stats.Pending(),
	}
}

// EntryResponse represents an outbox entry in API responses. The payload is omitted.
type EntryResponse struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	EntityKind       string    `json:"entity_kind"`
	EntityID         string    `json:"entity_id"`
	CloudPath        string    `json:"cloud_path"`
	Status           string    `json:"status"`
	Priority         int       `json:"priority"`
	AttemptCount     int       `json:"attempt_count"`
	LastErrorMessage *string   `json:"last_error_message,omitempty"`
	Revision         int       `json:"revision"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MapEntryToResponse converts an outbox entry to an API response.
func MapEntryToResponse(entry *domain.OutboxEntry) EntryResponse {
	return EntryResponse{
		ID:               entry.ID.String(),
		Type:             string(entry.Type),
		EntityKind:       string(entry.EntityKind),
		EntityID:         entry.EntityID,
		CloudPath:        entry.CloudPath,
		Status:           string(entry.Status),
		Priority:         entry.Priority,
		AttemptCount:     entry.AttemptCount,
		LastErrorMessage: entry.LastErrorMessage,
		Revision:         entry.Revision,
		CreatedAt:        time.UnixMilli(entry.CreatedAt).UTC(),
		UpdatedAt:        time.UnixMilli(entry.UpdatedAt).UTC(),
	}
}

// ListEntriesResponse represents a page of outbox entries.
type ListEntriesResponse struct {
	Data []EntryResponse `json:"data"`
}

// MapEntriesToListResponse converts outbox entries to a list API response.
func MapEntriesToListResponse(entries []*domain.OutboxEntry) ListEntriesResponse {
	data := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, MapEntryToResponse(entry))
	}
	return ListEntriesResponse{Data: data}
}

// RequeueResponse reports how many failed entries were queued again.
type RequeueResponse struct {
	Requeued int `json:"requeued"`
}

// ClearFailedResponse reports how many failed entries were removed.
type ClearFailedResponse struct {
	Removed int64 `json:"removed"`
}
