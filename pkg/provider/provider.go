package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/model"
)

// Outcome is the result of one provider dispatch. A rail can report failure
// either through Outcome.Success=false (business-level decline) or through
// an error (transport-level failure); the scheduler treats both as FAILED.
type Outcome struct {
	Success          bool
	ProviderPayoutID string
	FailureReason    string
}

// Adapter translates a payout record into one external payment-rail call.
type Adapter interface {
	Execute(ctx context.Context, record *model.PayoutRecord) (Outcome, error)
}

// Registry selects the adapter for a payout method. The scheduler never
// branches on method beyond this lookup.
type Registry map[model.PayoutMethod]Adapter

// DefaultRegistry wires one adapter per supported method.
func DefaultRegistry(linePay LINEPayClient, bank BankTransferClient, logger *zap.Logger) Registry {
	return Registry{
		model.MethodLINEPay:      NewLINEPayAdapter(linePay, logger),
		model.MethodBankTransfer: NewBankTransferAdapter(bank, logger),
		model.MethodCash:         NewCashAdapter(logger),
	}
}
