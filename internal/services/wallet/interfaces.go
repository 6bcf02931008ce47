package wallet

import (
	"context"

	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// Service defines the wallet read operations.
type Service interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (decimal.Decimal, error)

	History(ctx context.Context, userID uint, q HistoryQuery) (*Page[models.Transaction], error)
	Transfers(ctx context.Context, userID uint, page, limit int) (*Page[models.TransferTransaction], error)
	Transaction(ctx context.Context, userID uint, reference string) (*models.Transaction, error)
}

// HistoryQuery filters and pages a user's ledger rows.
type HistoryQuery struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}
