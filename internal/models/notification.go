package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Notification struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	UserID        uint            `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Title         string          `gorm:"not null" json:"title"`
	Message       string          `gorm:"not null" json:"message"`
	Type          string          `gorm:"size:30" json:"type"`
	TransactionID *uint           `json:"transaction_id,omitempty"`
	Reference     string          `gorm:"size:100" json:"reference"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"amount"`
	Status        string          `gorm:"size:20" json:"status"`
	IsRead        bool            `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DeviceToken is a push target registered by a client app.
type DeviceToken struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransferTransaction records the beneficiary of a payout or in-app transfer.
type TransferTransaction struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Reference     string          `gorm:"size:100;index" json:"reference"`
	AccountName   string          `json:"account_name"`
	AccountNumber string          `gorm:"size:20" json:"account_number"`
	AccountBank   string          `json:"account_bank"`
	AccountCode   string          `gorm:"size:20" json:"account_code"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
