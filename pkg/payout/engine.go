package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/metrics"
	"github.com/posdesk/posdesk/pkg/model"
)

// Field keys accepted by Engine.UpdateStatus. Keys outside this set are
// merged into the record's metadata instead.
const (
	FieldProviderPayoutID = "provider_payout_id"
	FieldCompletionTime   = "completion_time"
	FieldFailureReason    = "failure_reason"
	FieldProcessingTime   = "processing_time"
)

var recordColumns = map[string]bool{
	FieldProviderPayoutID: true,
	FieldCompletionTime:   true,
	FieldFailureReason:    true,
	FieldProcessingTime:   true,
}

// RecordRef addresses a payout record either by id or by a loaded record.
type RecordRef struct {
	id     uuid.UUID
	record *model.PayoutRecord
}

func ByID(id uuid.UUID) RecordRef {
	return RecordRef{id: id}
}

func ByRecord(record *model.PayoutRecord) RecordRef {
	return RecordRef{record: record}
}

// Engine is the single authority for mutating payout status. Every
// transition appends exactly one history entry and strictly advances
// updated_at; terminal transitions additionally sync the origin record
// after the payout's own update has committed.
type Engine struct {
	records RecordStore
	origins *OriginSync
	logger  *zap.Logger
}

func NewEngine(records RecordStore, origins *OriginSync, logger *zap.Logger) *Engine {
	return &Engine{
		records: records,
		origins: origins,
		logger:  logger,
	}
}

// UpdateStatus transitions the referenced record to status, appending a
// history entry carrying note. Known keys in fields update record columns;
// the rest patch metadata.
func (e *Engine) UpdateStatus(ctx context.Context, ref RecordRef, status model.PayoutStatus, note string, fields map[string]interface{}) (*model.PayoutRecord, error) {
	record, err := e.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	updated, ok, err := e.apply(ctx, record, nil, status, note, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordNotFound
	}

	if status.IsTerminal() {
		e.origins.UpdateOriginalRecordStatus(ctx, updated, status.Label())
	}

	return updated, nil
}

// ClaimProcessing moves the record from PENDING to PROCESSING only if it is
// still PENDING, closing the race between concurrent scheduler runs. The
// second return value reports whether this caller won the claim.
func (e *Engine) ClaimProcessing(ctx context.Context, record *model.PayoutRecord, note string) (*model.PayoutRecord, bool, error) {
	from := model.PayoutPending
	return e.apply(ctx, record, &from, model.PayoutProcessing, note, map[string]interface{}{
		FieldProcessingTime: time.Now(),
	})
}

func (e *Engine) resolve(ctx context.Context, ref RecordRef) (*model.PayoutRecord, error) {
	if ref.record != nil {
		return ref.record, nil
	}
	if ref.id == uuid.Nil {
		return nil, fmt.Errorf("payout record reference is empty: %w", ErrRecordNotFound)
	}
	return e.records.GetByID(ctx, ref.id)
}

func (e *Engine) apply(ctx context.Context, record *model.PayoutRecord, from *model.PayoutStatus, status model.PayoutStatus, note string, fields map[string]interface{}) (*model.PayoutRecord, bool, error) {
	now := time.Now()

	columns := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	var metadata model.JSONB
	for key, value := range fields {
		if recordColumns[key] {
			columns[key] = value
			continue
		}
		if metadata == nil {
			metadata = model.JSONB{}
		}
		metadata[key] = value
	}

	entry := model.PayoutStatusEvent{
		Status:    status,
		Note:      note,
		CreatedAt: now,
	}

	outbox := &model.PayoutEvent{
		EventID:   uuid.New(),
		EventType: model.EventPayoutStatusChanged,
		Status:    model.OutboxStatusPending,
		Payload: model.JSONB{
			"payout_id": record.ID.String(),
			"batch_id":  record.BatchID.String(),
			"status":    string(status),
			"note":      note,
		},
	}

	updated, claimed, err := e.records.AppendStatus(ctx, record.ID, from, entry, columns, metadata, outbox)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return nil, false, nil
	}

	metrics.PayoutsTotal.WithLabelValues(updated.TenantID, string(updated.Method), string(status)).Inc()

	e.logger.Info("payout status updated",
		zap.String("payout_id", updated.ID.String()),
		zap.String("batch_id", updated.BatchID.String()),
		zap.String("status", string(status)),
	)

	return updated, true, nil
}
