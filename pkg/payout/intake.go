package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/metrics"
	"github.com/posdesk/posdesk/pkg/model"
)

const intakeNote = "initializing payout request"

// PayoutRequest is one disbursement asked for by a back-office module.
// Amount is in the smallest unit of the platform currency.
type PayoutRequest struct {
	Amount           int64              `json:"amount" validate:"gt=0"`
	Description      string             `json:"description"`
	Method           model.PayoutMethod `json:"method" validate:"required,oneof=LINE_PAY BANK_TRANSFER CASH"`
	TargetIdentifier string             `json:"target_identifier" validate:"required"`
	EmployeeID       string             `json:"employee_id" validate:"required"`
	TenantID         string             `json:"tenant_id" validate:"required"`
	ReferenceID      string             `json:"reference_id"`
	ReferenceType    string             `json:"reference_type"`
	Metadata         model.JSONB        `json:"metadata"`
}

type BatchResult struct {
	BatchID uuid.UUID
	Records []*model.PayoutRecord
}

// Intake validates payout requests, persists them as one batch of PENDING
// records, and signals the worker to process the batch asynchronously.
type Intake struct {
	records    RecordStore
	dispatcher BatchDispatcher
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewIntake(records RecordStore, dispatcher BatchDispatcher, logger *zap.Logger) *Intake {
	return &Intake{
		records:    records,
		dispatcher: dispatcher,
		validate:   validator.New(),
		logger:     logger,
	}
}

// ProcessBatchPayout creates one PENDING record per request under a fresh
// batch id and schedules async processing. Scheduling is fire-and-forget:
// a dispatch failure is logged and the batch is left for the reconciler.
func (i *Intake) ProcessBatchPayout(ctx context.Context, requests []PayoutRequest) (*BatchResult, error) {
	if len(requests) == 0 {
		return nil, ErrEmptyBatch
	}

	for idx, request := range requests {
		if err := i.validate.Struct(request); err != nil {
			return nil, fmt.Errorf("invalid payout request at index %d: %w", idx, err)
		}
	}

	batchID := uuid.New()
	now := time.Now()

	records := make([]*model.PayoutRecord, 0, len(requests))
	for _, request := range requests {
		id := uuid.New()
		metadata := request.Metadata
		if metadata == nil {
			metadata = model.JSONB{}
		}
		records = append(records, &model.PayoutRecord{
			ID:               id,
			BatchID:          batchID,
			TenantID:         request.TenantID,
			EmployeeID:       request.EmployeeID,
			Status:           model.PayoutPending,
			Method:           request.Method,
			Amount:           request.Amount,
			Description:      request.Description,
			TargetIdentifier: request.TargetIdentifier,
			ReferenceID:      request.ReferenceID,
			ReferenceType:    request.ReferenceType,
			Metadata:         metadata,
			History: []model.PayoutStatusEvent{
				{
					PayoutID:  id,
					Status:    model.PayoutPending,
					Note:      intakeNote,
					CreatedAt: now,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	outbox := &model.PayoutEvent{
		EventID:   uuid.New(),
		EventType: model.EventBatchCreated,
		Status:    model.OutboxStatusPending,
		Payload: model.JSONB{
			"batch_id": batchID.String(),
			"count":    len(records),
		},
	}

	if err := i.records.CreateBatch(ctx, records, outbox); err != nil {
		return nil, fmt.Errorf("failed to create payout batch: %w", err)
	}

	for _, record := range records {
		metrics.PayoutsTotal.WithLabelValues(record.TenantID, string(record.Method), string(model.PayoutPending)).Inc()
	}

	i.logger.Info("payout batch created",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(records)),
	)

	if err := i.dispatcher.ScheduleBatch(ctx, batchID); err != nil {
		i.logger.Warn("failed to schedule batch processing, reconciler will pick it up",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}

	return &BatchResult{BatchID: batchID, Records: records}, nil
}
