package repositories

import (
	"context"

	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// WalletRepository defines the wallet operations. Lock, Credit and Debit
// take a row lock and are only meaningful inside Store.ExecuteInTransaction.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	LockByUserID(ctx context.Context, userID uint) (*models.Wallet, error)

	// Credit adds amount to the locked wallet and returns it.
	Credit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error)
	// Debit subtracts amount or fails with ErrInsufficientFunds.
	Debit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error)
}
