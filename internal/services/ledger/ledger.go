// Package ledger holds the balance mutations shared by the settlement
// engine and the webhook reconciler. Every function expects a Store bound
// to an open database transaction in which the ledger row is already
// locked.
package ledger

import (
	"context"
	"errors"
	"fmt"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/repositories"

	"github.com/shopspring/decimal"
)

const (
	MessageInsufficientFunds = "Insufficient balance"
	refundSuffix             = "_refund"
)

// ApplyResponse copies the outcome fields of a classified provider
// response onto row. Identity fields and amounts charged are left alone.
func ApplyResponse(row *models.Transaction, resp *providers.Response) {
	if resp == nil {
		return
	}
	if resp.ProviderTxnID != "" {
		id := resp.ProviderTxnID
		row.TransactionID = &id
	}
	if resp.Code != "" {
		row.ResponseCode = resp.Code
	}
	if resp.Message != "" {
		row.ResponseMessage = resp.Message
	}
	if resp.PurchasedCode != "" {
		row.PurchasedCode = resp.PurchasedCode
	}
	if !resp.Commission.IsZero() {
		row.Commission = resp.Commission
	}
	if resp.ProductName != "" {
		row.ProductName = resp.ProductName
	}
	if resp.TransactionDate != nil {
		row.TransactionDate = resp.TransactionDate
	}
	if len(resp.Raw) > 0 {
		row.RawResponse = models.NewJSON(resp.Raw)
	}
}

// DebitSuccess charges row.TotalAmount to the owner's wallet and moves the
// row to success. When the wallet no longer covers the amount the row is
// moved to failed instead and lost is true; the caller still commits so
// the failure stays on record.
func DebitSuccess(ctx context.Context, tx repositories.Store, row *models.Transaction) (wallet *models.Wallet, lost bool, err error) {
	wallet, err = tx.Wallets().Debit(ctx, row.UserID, row.TotalAmount)
	switch {
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		row.ResponseMessage = MessageInsufficientFunds
		if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusFailed); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	case err != nil:
		return nil, false, err
	}
	if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusSuccess); err != nil {
		return nil, false, err
	}
	return wallet, false, nil
}

// Refund moves row to status (failed or reversed), credits its
// total_amount back and records a separate refund row referencing it.
func Refund(ctx context.Context, tx repositories.Store, row *models.Transaction, status, reason string) (*models.Wallet, *models.Transaction, error) {
	if reason != "" {
		row.ResponseMessage = reason
	}
	if err := tx.Transactions().UpdateOutcome(ctx, row, status); err != nil {
		return nil, nil, err
	}

	wallet, err := tx.Wallets().Credit(ctx, row.UserID, row.TotalAmount)
	if err != nil {
		return nil, nil, err
	}

	refund := &models.Transaction{
		UserID:          row.UserID,
		RequestID:       row.RequestID + refundSuffix,
		Reference:       row.Reference + refundSuffix,
		Amount:          row.TotalAmount,
		TotalAmount:     row.TotalAmount,
		Type:            models.TransactionTypeRefund,
		Category:        row.Category,
		Status:          models.StatusSuccess,
		ServiceID:       row.ServiceID,
		ProductName:     fmt.Sprintf("Refund for %s", row.Reference),
		Platform:        row.Platform,
		Channel:         row.Channel,
		Method:          "wallet",
		ResponseMessage: row.ResponseMessage,
	}
	if err := tx.Transactions().Create(ctx, refund); err != nil {
		return nil, nil, err
	}
	return wallet, refund, nil
}

// Credit adds amount to the owner's wallet and moves row to success.
// amount must be positive.
func Credit(ctx context.Context, tx repositories.Store, row *models.Transaction, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	wallet, err := tx.Wallets().Credit(ctx, row.UserID, amount)
	if err != nil {
		return nil, err
	}
	if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusSuccess); err != nil {
		return nil, err
	}
	return wallet, nil
}
