package payout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/metrics"
	"github.com/posdesk/posdesk/pkg/model"
	"github.com/posdesk/posdesk/pkg/provider"
)

const (
	processingNote = "processing payout started"
	completedNote  = "payout completed by provider"
	failedNote     = "processing payout failed"

	timeoutReason = "provider dispatch timed out"
)

// Scheduler drives a batch's PENDING records through dispatch. Each record
// is claimed with a conditional update before dispatch, so concurrent runs
// over the same batch never double-dispatch, and one record's failure never
// touches its siblings.
type Scheduler struct {
	records         RecordStore
	engine          *Engine
	providers       provider.Registry
	logger          *zap.Logger
	providerTimeout time.Duration
}

func NewScheduler(records RecordStore, engine *Engine, providers provider.Registry, logger *zap.Logger, providerTimeout time.Duration) *Scheduler {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &Scheduler{
		records:         records,
		engine:          engine,
		providers:       providers,
		logger:          logger,
		providerTimeout: providerTimeout,
	}
}

// ScheduleBatch processes every record of the batch still PENDING. A batch
// with no PENDING records is a no-op. The returned error covers only the
// initial store query; per-record outcomes land on the records themselves.
func (s *Scheduler) ScheduleBatch(ctx context.Context, batchID uuid.UUID) error {
	pending, err := s.records.ListByBatchStatus(ctx, batchID, model.PayoutPending)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		s.logger.Debug("no pending payouts in batch", zap.String("batch_id", batchID.String()))
		return nil
	}

	metrics.BatchesScheduled.Inc()
	s.logger.Info("scheduling payout batch",
		zap.String("batch_id", batchID.String()),
		zap.Int("pending", len(pending)),
	)

	for idx := range pending {
		record := &pending[idx]

		claimed, ok, err := s.engine.ClaimProcessing(ctx, record, processingNote)
		if err != nil {
			s.logger.Error("failed to claim payout for processing",
				zap.String("payout_id", record.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			// Another scheduler run claimed it first.
			s.logger.Debug("payout already claimed",
				zap.String("payout_id", record.ID.String()),
			)
			continue
		}

		s.dispatch(ctx, claimed)
	}

	return nil
}

// RunReconciler periodically re-schedules batches whose PENDING records have
// outlived pendingAge, covering lost fire-and-forget scheduling signals.
func (s *Scheduler) RunReconciler(ctx context.Context, interval, pendingAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcile(ctx, pendingAge)
		}
	}
}

func (s *Scheduler) reconcile(ctx context.Context, pendingAge time.Duration) {
	batchIDs, err := s.records.ListStalePendingBatches(ctx, time.Now().Add(-pendingAge))
	if err != nil {
		s.logger.Error("failed to list stale pending batches", zap.Error(err))
		return
	}

	for _, batchID := range batchIDs {
		s.logger.Info("reconciling stale payout batch", zap.String("batch_id", batchID.String()))
		if err := s.ScheduleBatch(ctx, batchID); err != nil {
			s.logger.Error("failed to reconcile batch",
				zap.String("batch_id", batchID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, record *model.PayoutRecord) {
	adapter, ok := s.providers[record.Method]
	if !ok {
		s.fail(ctx, record, "no provider adapter registered for method "+string(record.Method))
		return
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := adapter.Execute(dispatchCtx, record)
	metrics.DispatchDuration.WithLabelValues(string(record.Method)).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = timeoutReason
		}
		s.fail(ctx, record, reason)
		return
	}

	if !outcome.Success {
		reason := outcome.FailureReason
		if reason == "" {
			reason = "provider reported failure"
		}
		s.fail(ctx, record, reason)
		return
	}

	fields := map[string]interface{}{
		FieldProviderPayoutID: outcome.ProviderPayoutID,
		FieldCompletionTime:   time.Now(),
	}
	if _, err := s.engine.UpdateStatus(ctx, ByRecord(record), model.PayoutCompleted, completedNote, fields); err != nil {
		s.logger.Error("failed to mark payout completed",
			zap.String("payout_id", record.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) fail(ctx context.Context, record *model.PayoutRecord, reason string) {
	fields := map[string]interface{}{
		FieldFailureReason: reason,
	}
	if _, err := s.engine.UpdateStatus(ctx, ByRecord(record), model.PayoutFailed, failedNote, fields); err != nil {
		s.logger.Error("failed to mark payout failed",
			zap.String("payout_id", record.ID.String()),
			zap.Error(err),
		)
	}
}
