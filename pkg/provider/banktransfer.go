package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/model"
)

// BankTransferClient is the call contract of the bank-transfer rail.
type BankTransferClient interface {
	Submit(ctx context.Context, order BankTransferOrder) (BankTransferReceipt, error)
}

type BankTransferOrder struct {
	BankCode      string
	AccountNumber string
	Amount        int64
	Memo          string
}

type BankTransferReceipt struct {
	TransactionID string
}

type BankTransferAdapter struct {
	client BankTransferClient
	logger *zap.Logger
}

func NewBankTransferAdapter(client BankTransferClient, logger *zap.Logger) *BankTransferAdapter {
	return &BankTransferAdapter{client: client, logger: logger}
}

// Execute submits one transfer order. The target identifier carries the
// destination as "<bankCode>-<accountNumber>"; a malformed target is a
// business-level decline, not a transport error.
func (a *BankTransferAdapter) Execute(ctx context.Context, record *model.PayoutRecord) (Outcome, error) {
	bankCode, account, ok := strings.Cut(record.TargetIdentifier, "-")
	if !ok || bankCode == "" || account == "" {
		return Outcome{
			Success:       false,
			FailureReason: "invalid bank transfer target: " + record.TargetIdentifier,
		}, nil
	}

	receipt, err := a.client.Submit(ctx, BankTransferOrder{
		BankCode:      bankCode,
		AccountNumber: account,
		Amount:        record.Amount,
		Memo:          record.Description,
	})
	if err != nil {
		return Outcome{}, err
	}

	a.logger.Debug("bank transfer submitted",
		zap.String("payout_id", record.ID.String()),
		zap.String("transaction_id", receipt.TransactionID),
	)

	return Outcome{Success: true, ProviderPayoutID: receipt.TransactionID}, nil
}
