package settlement

import (
	"context"

	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/providers/vtpass"
)

// Biller is the bill payment provider.
type Biller interface {
	Pay(ctx context.Context, req vtpass.PayRequest) (*providers.Response, error)
	Requery(ctx context.Context, requestID string) (*providers.Response, error)
}

// Payouts sends money to bank accounts.
type Payouts interface {
	InitiateTransfer(ctx context.Context, req flutterwave.TransferRequest) (*flutterwave.Transfer, error)
}

// Notifier is told about every committed status change.
type Notifier interface {
	NotifyTransaction(ctx context.Context, userID uint, txn *models.Transaction)
}

type noopNotifier struct{}

func (noopNotifier) NotifyTransaction(context.Context, uint, *models.Transaction) {}
