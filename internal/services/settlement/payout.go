package settlement

import (
	"context"
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/repositories"
	"tekpay/internal/services/ledger"
	"tekpay/internal/utils"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const messagePayoutQueued = "Transfer queued successfully"

var ErrPayoutsDisabled = errors.New("bank transfers are not configured")

// BankTransfer pays req.Amount out of the wallet to a bank account.
//
// The wallet is debited and a pending row recorded before the payout
// provider is called. An accepted payout moves the row to processing and
// the transfer webhook completes it. A rejected payout fails the row and
// refunds the wallet. A timeout leaves the row pending for the webhook.
func (s *Service) BankTransfer(ctx context.Context, req BankTransferRequest) (*BankTransferResult, error) {
	start := s.now()
	defer func() {
		s.metrics.RecordOperationDuration(operationPayout, time.Since(start))
	}()

	if s.payouts == nil {
		return nil, ErrPayoutsDisabled
	}
	if err := validation.ValidateBankTransfer(req.AccountBank, req.AccountNumber, req.Amount, req.Narration); err != nil {
		return nil, err
	}

	now := s.now()
	reference := utils.PayoutReference(now)
	row := &models.Transaction{
		UserID:      req.UserID,
		RequestID:   utils.RequestID(now),
		Reference:   reference,
		Amount:      req.Amount,
		TotalAmount: req.Amount,
		Type:        models.TransactionTypeTransfer,
		Category:    models.CategoryBankTransfer,
		Status:      models.StatusPending,
		ProductName: "Transfer to " + req.AccountName,
		BillersCode: req.AccountNumber,
		ServiceID:   req.AccountBank,
		Platform:    platformFlutterwave,
		Channel:     "bank",
		Method:      "wallet",
	}
	log := s.logger.With(zap.Uint("user_id", req.UserID), zap.String("reference", reference))

	var balance decimal.Decimal
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		wallet, err := tx.Wallets().Debit(ctx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		balance = wallet.Balance
		return tx.Transactions().Create(ctx, row)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			s.metrics.RecordOperationResult(operationPayout, "insufficient_funds")
		}
		return nil, apperrors.Persistence("debit wallet for payout", err)
	}

	callStart := time.Now()
	transfer, err := s.payouts.InitiateTransfer(ctx, flutterwave.TransferRequest{
		AccountBank:   req.AccountBank,
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
		Narration:     req.Narration,
		Currency:      models.DefaultCurrency,
		Reference:     reference,
	})

	switch {
	case err != nil && providers.IsTimeout(err):
		s.metrics.RecordProviderCall(platformFlutterwave, "transfer", "timeout", time.Since(callStart))
		s.metrics.RecordOperationResult(operationPayout, "pending")
		log.Warn("payout timed out, awaiting webhook", zap.Error(err))
		s.notifier.NotifyTransaction(ctx, row.UserID, row)
		return &BankTransferResult{Transaction: row, Balance: balance, Message: "Transfer is pending"}, nil

	case err != nil:
		s.metrics.RecordProviderCall(platformFlutterwave, "transfer", "error", time.Since(callStart))
		s.metrics.RecordOperationResult(operationPayout, "rejected")
		log.Error("payout rejected, refunding", zap.Error(err))
		if rerr := s.refundPayout(ctx, reference, err); rerr != nil {
			log.Error("payout refund failed", zap.Error(rerr))
			return nil, apperrors.Persistence("refund payout", rerr)
		}
		return nil, err
	}

	s.metrics.RecordProviderCall(platformFlutterwave, "transfer", "success", time.Since(callStart))
	s.metrics.RecordOperationResult(operationPayout, "accepted")

	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Transactions().LockByReference(ctx, reference)
		if err != nil {
			return err
		}
		if locked.Status == models.StatusPending {
			id := transfer.ID.String()
			locked.TransactionID = &id
			locked.ResponseMessage = messagePayoutQueued
			if transfer.CompleteMessage != "" {
				locked.ResponseMessage = transfer.CompleteMessage
			}
			if len(transfer.Raw) > 0 {
				locked.RawResponse = models.NewJSON(transfer.Raw)
			}
			if err := tx.Transactions().UpdateOutcome(ctx, locked, models.StatusProcessing); err != nil {
				return err
			}
		}
		row = locked
		return tx.Transactions().CreateTransfer(ctx, &models.TransferTransaction{
			UserID:        req.UserID,
			Reference:     reference,
			AccountName:   req.AccountName,
			AccountNumber: req.AccountNumber,
			AccountBank:   req.BankName,
			AccountCode:   req.AccountBank,
			Amount:        req.Amount,
		})
	})
	if err != nil {
		// the payout is already queued; the webhook settles the row
		log.Error("failed to record accepted payout", zap.Error(err))
		return nil, apperrors.Persistence("record payout", err)
	}

	log.Info("payout queued", zap.String("transfer_id", transfer.ID.String()))
	s.notifier.NotifyTransaction(ctx, row.UserID, row)
	return &BankTransferResult{Transaction: row, Balance: balance, Message: messagePayoutQueued}, nil
}

func (s *Service) refundPayout(ctx context.Context, reference string, cause error) error {
	var (
		row      *models.Transaction
		refunded bool
	)
	reason := "Transfer failed"
	var pe *apperrors.ProviderError
	if errors.As(cause, &pe) && pe.Message != "" {
		reason = pe.Message
	}

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Transactions().LockByReference(ctx, reference)
		if err != nil {
			return err
		}
		row = locked
		if row.Status != models.StatusPending {
			return nil
		}
		if pe != nil && len(pe.Body) > 0 {
			row.RawResponse = models.NewJSON(pe.Body)
		}
		if _, _, err := ledger.Refund(ctx, tx, row, models.StatusFailed, reason); err != nil {
			return err
		}
		refunded = true
		return nil
	})
	if err != nil {
		return err
	}
	if refunded {
		s.notifier.NotifyTransaction(ctx, row.UserID, row)
	}
	return nil
}
