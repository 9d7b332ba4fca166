// Package domain defines the outbox entry model and the closed set of sync operations
// replayed toward the remote object store.
package domain

import (
	"github.com/google/uuid"
)

// OutboxEntryStatus represents the lifecycle state of an outbox entry.
type OutboxEntryStatus string

const (
	OutboxEntryStatusQueued     OutboxEntryStatus = "queued"
	OutboxEntryStatusInProgress OutboxEntryStatus = "in_progress"
	OutboxEntryStatusDone       OutboxEntryStatus = "done"
	OutboxEntryStatusError      OutboxEntryStatus = "error"
)

// IsActive reports whether the entry still waits for (or is undergoing) a push.
func (s OutboxEntryStatus) IsActive() bool {
	return s == OutboxEntryStatusQueued || s == OutboxEntryStatusInProgress
}

// Valid reports whether s is a known status.
func (s OutboxEntryStatus) Valid() bool {
	switch s {
	case OutboxEntryStatusQueued, OutboxEntryStatusInProgress, OutboxEntryStatusDone, OutboxEntryStatusError:
		return true
	}
	return false
}

// OutboxEntry is a pending remote mutation recorded in the same local transaction
// as the domain write that produced it.
type OutboxEntry struct {
	ID         uuid.UUID
	Type       OperationType
	EntityKind EntityKind
	EntityID   string
	// Payload is a self-contained JSON snapshot of the entity at enqueue time.
	Payload   string
	CloudPath string
	Status    OutboxEntryStatus
	// Priority drains higher values first.
	Priority         int
	AttemptCount     int
	LastErrorMessage *string
	// CreatedAt, UpdatedAt and OpUpdatedAt are unix milliseconds.
	CreatedAt          int64
	UpdatedAt          int64
	OpUpdatedAt        int64
	LastKnownRemoteSha *string
	// Revision is bumped every time a coalescing enqueue overwrites the payload.
	Revision int
}

// OutboxStats holds entry counts per status.
type OutboxStats struct {
	Queued     int64 `json:"queued"`
	InProgress int64 `json:"in_progress"`
	Done       int64 `json:"done"`
	Error      int64 `json:"error"`
}

// Pending returns the number of entries not yet pushed.
func (s OutboxStats) Pending() int64 {
	return s.Queued + s.InProgress
}
