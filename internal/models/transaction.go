package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypePurchase      = "purchase"
	TransactionTypeTransfer      = "transfer"
	TransactionTypeDeposit       = "deposit"
	TransactionTypeRefund        = "refund"
	TransactionTypeReferralBonus = "referral_bonus"
	TransactionTypeCredit        = "credit"
)

// Transaction categories
const (
	CategoryAirtime        = "airtime"
	CategoryData           = "data"
	CategoryTV             = "tv"
	CategoryElectricity    = "electricity"
	CategoryEducation      = "education"
	CategoryInternet       = "internet"
	CategoryBankTransfer   = "bank_transfer"
	CategoryWalletTransfer = "wallet_transfer"
	CategoryVirtualAccount = "virtual_account"
	CategoryCard           = "card"
	CategoryReferral       = "referral"
)

// Transaction statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusReversed   = "reversed"
)

// Transaction is one row of the ledger. RequestID and Reference are unique
// and never change after insert; the outcome fields change only through
// status transitions allowed by CanTransition.
type Transaction struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	UserID          uint            `gorm:"not null;index:idx_transactions_user_type_status,priority:1" json:"user_id"`
	RequestID       string          `gorm:"size:100;not null;uniqueIndex;index:idx_transactions_request_txn,priority:1" json:"request_id"`
	TransactionID   *string         `gorm:"size:100;index:idx_transactions_request_txn,priority:2" json:"transaction_id"`
	Reference       string          `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	Commission      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"commission"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	Type            string          `gorm:"size:30;not null;index:idx_transactions_user_type_status,priority:2" json:"type"`
	Category        string          `gorm:"size:30" json:"category"`
	Status          string          `gorm:"size:20;not null;default:'pending';index:idx_transactions_user_type_status,priority:3" json:"status"`
	ServiceID       string          `gorm:"size:50" json:"service_id"`
	Phone           string          `gorm:"size:20" json:"phone"`
	ProductName     string          `json:"product_name"`
	BillersCode     string          `gorm:"size:50" json:"billers_code,omitempty"`
	VariationCode   string          `gorm:"size:50" json:"variation_code,omitempty"`
	Platform        string          `gorm:"size:30" json:"platform"`
	Channel         string          `gorm:"size:30" json:"channel"`
	Method          string          `gorm:"size:30" json:"method"`
	ResponseCode    string          `gorm:"size:10" json:"response_code"`
	ResponseMessage string          `json:"response_message"`
	PurchasedCode   string          `json:"purchased_code,omitempty"`
	TransactionDate *time.Time      `json:"transaction_date"`
	RawResponse     JSON            `gorm:"type:jsonb" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTerminal reports whether no ordinary event may move the row further.
func IsTerminal(status string) bool {
	switch status {
	case StatusSuccess, StatusFailed, StatusReversed:
		return true
	}
	return false
}

var transitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusSuccess, StatusFailed},
	StatusProcessing: {StatusSuccess, StatusFailed},
	// a payout can be reported failed or reversed after it was marked successful
	StatusSuccess: {StatusReversed, StatusFailed},
}

// CanTransition reports whether a row in status from may move to status to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ProviderTxnID returns the provider transaction id or "".
func (t *Transaction) ProviderTxnID() string {
	if t.TransactionID == nil {
		return ""
	}
	return *t.TransactionID
}
