package domain

import (
	"github.com/allisson/ledgersync/internal/errors"
)

// Outbox-specific error definitions.
var (
	// ErrOutboxEntryNotFound indicates the entry no longer exists (cancelled or cleaned up).
	ErrOutboxEntryNotFound = errors.Wrap(errors.ErrNotFound, "outbox entry not found")

	// ErrOutboxEntryNotQueued indicates a state transition raced with another writer.
	ErrOutboxEntryNotQueued = errors.Wrap(errors.ErrConflict, "outbox entry is not queued")

	// ErrUnknownOperationType indicates a persisted type outside the closed operation set.
	ErrUnknownOperationType = errors.Wrap(errors.ErrInvalidInput, "unknown outbox operation type")

	// ErrInvalidPayload indicates the entry payload cannot be decoded into its operation.
	ErrInvalidPayload = errors.Wrap(errors.ErrInvalidInput, "invalid outbox payload")
)
