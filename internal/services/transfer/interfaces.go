package transfer

import (
	"context"

	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// Notifier is told about both legs of a committed transfer.
type Notifier interface {
	NotifyTransaction(ctx context.Context, userID uint, txn *models.Transaction)
}

// Service handles wallet to wallet transfers between users.
type Service interface {
	Transfer(ctx context.Context, senderID, recipientID uint, amount decimal.Decimal, narration string) (*Result, error)
}

// Result carries both ledger rows and the sender's balance after commit.
type Result struct {
	Debit   *models.Transaction `json:"transaction"`
	Credit  *models.Transaction `json:"-"`
	Balance decimal.Decimal     `json:"balance"`
}
