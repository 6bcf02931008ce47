package settlement

import (
	"tekpay/internal/models"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
)

type PurchaseRequest struct {
	UserID           uint
	Category         string
	ServiceID        string
	Amount           decimal.Decimal
	Phone            string
	BillersCode      string
	VariationCode    string
	Quantity         int
	SubscriptionType string
}

func (r PurchaseRequest) bill() validation.Bill {
	return validation.Bill{
		Category:         r.Category,
		ServiceID:        r.ServiceID,
		Amount:           r.Amount,
		Phone:            r.Phone,
		BillersCode:      r.BillersCode,
		VariationCode:    r.VariationCode,
		Quantity:         r.Quantity,
		SubscriptionType: r.SubscriptionType,
	}
}

// PurchaseResult is the state of a purchase after a call to the biller.
// ShouldRequery is set while the row is still pending.
type PurchaseResult struct {
	Transaction   *models.Transaction
	Balance       *decimal.Decimal
	ShouldRequery bool
	Message       string
}

type BankTransferRequest struct {
	UserID        uint
	AccountBank   string
	BankName      string
	AccountNumber string
	AccountName   string
	Amount        decimal.Decimal
	Narration     string
}

type BankTransferResult struct {
	Transaction *models.Transaction
	Balance     decimal.Decimal
	Message     string
}

type SweepResult struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
	Errors  int `json:"errors"`
}

func newResult(txn *models.Transaction, balance *decimal.Decimal) *PurchaseResult {
	return &PurchaseResult{
		Transaction:   txn,
		Balance:       balance,
		ShouldRequery: txn.Status == models.StatusPending,
		Message:       txn.ResponseMessage,
	}
}
