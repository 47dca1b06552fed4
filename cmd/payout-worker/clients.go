package main

import (
	"context"
	"errors"

	"github.com/posdesk/posdesk/pkg/provider"
)

// The LINE Pay and bank-transfer rail integrations live in the private
// deployment repos; this open build wires placeholder clients that decline
// every transfer so misrouted payouts fail visibly instead of hanging.

type unconfiguredLINEPay struct{}

func newLINEPayClient() provider.LINEPayClient {
	return unconfiguredLINEPay{}
}

func (unconfiguredLINEPay) Transfer(ctx context.Context, transfer provider.LINEPayTransfer) (provider.LINEPayResult, error) {
	return provider.LINEPayResult{}, errors.New("line pay rail is not configured")
}

type unconfiguredBankTransfer struct{}

func newBankTransferClient() provider.BankTransferClient {
	return unconfiguredBankTransfer{}
}

func (unconfiguredBankTransfer) Submit(ctx context.Context, order provider.BankTransferOrder) (provider.BankTransferReceipt, error) {
	return provider.BankTransferReceipt{}, errors.New("bank transfer rail is not configured")
}
