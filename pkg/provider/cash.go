package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/model"
)

// CashAdapter settles immediately: the disbursement happens over the
// counter, so the payout only needs a locally generated receipt id.
type CashAdapter struct {
	logger *zap.Logger
}

func NewCashAdapter(logger *zap.Logger) *CashAdapter {
	return &CashAdapter{logger: logger}
}

func (a *CashAdapter) Execute(ctx context.Context, record *model.PayoutRecord) (Outcome, error) {
	receiptID := "cash-" + record.ID.String()

	a.logger.Debug("cash payout settled",
		zap.String("payout_id", record.ID.String()),
		zap.String("receipt_id", receiptID),
	)

	return Outcome{Success: true, ProviderPayoutID: receiptID}, nil
}
