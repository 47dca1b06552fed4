package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/model"
)

// LINEPayClient is the call contract of the LINE Pay transfer rail. The
// concrete SDK lives outside this module and is injected.
type LINEPayClient interface {
	Transfer(ctx context.Context, transfer LINEPayTransfer) (LINEPayResult, error)
}

type LINEPayTransfer struct {
	Target      string
	Amount      int64
	Description string
}

type LINEPayResult struct {
	TransferID string
}

type LINEPayAdapter struct {
	client LINEPayClient
	logger *zap.Logger
}

func NewLINEPayAdapter(client LINEPayClient, logger *zap.Logger) *LINEPayAdapter {
	return &LINEPayAdapter{client: client, logger: logger}
}

func (a *LINEPayAdapter) Execute(ctx context.Context, record *model.PayoutRecord) (Outcome, error) {
	result, err := a.client.Transfer(ctx, LINEPayTransfer{
		Target:      record.TargetIdentifier,
		Amount:      record.Amount,
		Description: record.Description,
	})
	if err != nil {
		return Outcome{}, err
	}

	a.logger.Debug("line pay transfer accepted",
		zap.String("payout_id", record.ID.String()),
		zap.String("transfer_id", result.TransferID),
	)

	return Outcome{Success: true, ProviderPayoutID: result.TransferID}, nil
}
