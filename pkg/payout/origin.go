package payout

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/metrics"
	"github.com/posdesk/posdesk/pkg/model"
)

// PathBuilder resolves the document path of the origin record a payout was
// created for. The second return value is false when the record's reference
// fields cannot produce a valid path.
type PathBuilder func(record *model.PayoutRecord) (string, bool)

// OriginSync writes terminal payout status back to the business record that
// originated the payout. It is a best-effort side channel: misses and write
// failures are logged, never raised, because the payout record itself is
// already the committed source of truth.
type OriginSync struct {
	docs     DocumentStore
	builders map[string]PathBuilder
	logger   *zap.Logger
}

func NewOriginSync(docs DocumentStore, logger *zap.Logger) *OriginSync {
	s := &OriginSync{
		docs:     docs,
		builders: make(map[string]PathBuilder),
		logger:   logger,
	}
	s.Register("dividend", dividendPath)
	return s
}

// Register maps a referenceType to a path builder. New origin record kinds
// plug in here without touching the status engine.
func (s *OriginSync) Register(referenceType string, builder PathBuilder) {
	s.builders[referenceType] = builder
}

func (s *OriginSync) UpdateOriginalRecordStatus(ctx context.Context, record *model.PayoutRecord, statusLabel string) {
	builder, ok := s.builders[record.ReferenceType]
	if !ok {
		metrics.OriginSyncMisses.Inc()
		s.logger.Debug("no origin mapping for reference type",
			zap.String("payout_id", record.ID.String()),
			zap.String("reference_type", record.ReferenceType),
		)
		return
	}

	path, ok := builder(record)
	if !ok {
		metrics.OriginSyncMisses.Inc()
		s.logger.Warn("origin path could not be resolved",
			zap.String("payout_id", record.ID.String()),
			zap.String("reference_type", record.ReferenceType),
			zap.String("reference_id", record.ReferenceID),
		)
		return
	}

	fields := model.JSONB{
		"status":       statusLabel,
		"payoutId":     record.ID.String(),
		"payoutStatus": statusLabel,
	}

	if err := s.docs.MergeDocument(ctx, path, fields); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			metrics.OriginSyncMisses.Inc()
			s.logger.Warn("origin record missing",
				zap.String("payout_id", record.ID.String()),
				zap.String("path", path),
			)
			return
		}
		s.logger.Error("failed to update origin record",
			zap.String("payout_id", record.ID.String()),
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("origin record updated",
		zap.String("payout_id", record.ID.String()),
		zap.String("path", path),
		zap.String("payout_status", statusLabel),
	)
}

// dividendPath maps a dividend payout back to its snapshot entry. The
// reference id carries the snapshot id before the first path separator.
func dividendPath(record *model.PayoutRecord) (string, bool) {
	snapshotID, _, ok := strings.Cut(record.ReferenceID, "/")
	if !ok || snapshotID == "" || record.EmployeeID == "" {
		return "", false
	}
	return "dividend_snapshots/" + snapshotID + "/equity_payouts/" + record.EmployeeID, true
}
