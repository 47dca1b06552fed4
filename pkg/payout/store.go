package payout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/posdesk/posdesk/pkg/model"
)

var (
	// ErrEmptyBatch rejects an intake call with no requests.
	ErrEmptyBatch = errors.New("payout requests cannot be empty")

	// ErrRecordNotFound is returned when a payout record or document id
	// does not resolve.
	ErrRecordNotFound = errors.New("payout record not found")

	// ErrTerminalState rejects a transition out of COMPLETED or FAILED.
	ErrTerminalState = errors.New("payout record already in terminal state")
)

// RecordStore is the durable home of payout records and their append-only
// status history. All writes of a single call commit atomically.
type RecordStore interface {
	// CreateBatch persists the records of one intake call, each with its
	// initial history entry, plus the batch outbox event.
	CreateBatch(ctx context.Context, records []*model.PayoutRecord, outbox *model.PayoutEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.PayoutRecord, error)

	ListByBatchStatus(ctx context.Context, batchID uuid.UUID, status model.PayoutStatus) ([]model.PayoutRecord, error)

	// ListStalePendingBatches returns the distinct batch ids that still hold
	// PENDING records created before cutoff.
	ListStalePendingBatches(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// AppendStatus applies one status transition: column updates, a history
	// entry, an optional metadata patch, and an optional outbox event, in a
	// single transaction. When from is non-nil the update is conditional on
	// the record currently holding that status; a lost claim returns
	// (nil, false, nil). Transitions out of a terminal state fail with
	// ErrTerminalState.
	AppendStatus(ctx context.Context, id uuid.UUID, from *model.PayoutStatus, entry model.PayoutStatusEvent, columns map[string]interface{}, metadata model.JSONB, outbox *model.PayoutEvent) (*model.PayoutRecord, bool, error)
}

// DocumentStore is the boundary to the shared back-office document store
// that origin records live in.
type DocumentStore interface {
	// MergeDocument shallow-merges fields into the document at path and
	// advances its updated_at. A missing document is ErrRecordNotFound.
	MergeDocument(ctx context.Context, path string, fields model.JSONB) error
}

// BatchDispatcher carries the fire-and-forget scheduling signal from intake
// to the payout worker.
type BatchDispatcher interface {
	ScheduleBatch(ctx context.Context, batchID uuid.UUID) error
}
