package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WalletStatusActive = "active"
	WalletStatusLocked = "locked"

	DefaultCurrency = "NGN"
)

// Wallet holds a user's spendable balance. Balance never goes below zero
// and is only changed through the locked repository primitives.
type Wallet struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0;check:balance >= 0" json:"balance"`
	Currency  string          `gorm:"size:3;default:'NGN'" json:"currency"`
	Status    string          `gorm:"size:20;default:'active'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanSpend reports whether the wallet holds at least amount.
func (w *Wallet) CanSpend(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
