package reconciler

import (
	"context"
	"encoding/json"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/repositories"
	"tekpay/internal/services/ledger"

	"go.uber.org/zap"
)

// HandleFlutterwave applies a virtual account deposit or a payout
// completion. Other events are ignored.
func (s *Service) HandleFlutterwave(ctx context.Context, event flutterwave.Event) (Result, error) {
	switch {
	case event.Event == flutterwave.EventChargeCompleted || event.EventType == flutterwave.TypeBankTransfer:
		var data flutterwave.ChargeData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return Result{}, apperrors.Validation("data", "invalid charge payload")
		}
		return s.deposit(ctx, &data)

	case event.Event == flutterwave.EventTransferCompleted || event.EventType == flutterwave.TypeTransfer:
		var data flutterwave.TransferData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return Result{}, apperrors.Validation("data", "invalid transfer payload")
		}
		return s.payout(ctx, &data)
	}

	s.logger.Warn("unhandled flutterwave event",
		zap.String("event", event.Event),
		zap.String("event_type", event.EventType))
	s.metrics.RecordReconciliation(sourceFlutterwave, StatusIgnored)
	return Result{Status: StatusIgnored, Message: "Unhandled webhook event"}, nil
}

// deposit credits a virtual account deposit. The ledger row is created on
// first sight, keyed by tx_ref, and settled under its lock.
func (s *Service) deposit(ctx context.Context, data *flutterwave.ChargeData) (Result, error) {
	if data.TxRef == "" {
		return Result{}, apperrors.Validation("tx_ref", "is required")
	}
	if !data.Amount.IsPositive() {
		s.logger.Warn("deposit with non-positive amount", zap.String("tx_ref", data.TxRef), zap.String("amount", data.Amount.String()))
		return Result{}, apperrors.Validation("amount", "must be greater than zero")
	}

	return s.apply(ctx, sourceFlutterwave, func(tx repositories.Store) (*outcome, error) {
		user, err := tx.Users().GetByEmail(ctx, data.Customer.Email)
		if err != nil {
			s.logger.Error("deposit for unknown customer",
				zap.String("email", data.Customer.Email),
				zap.String("tx_ref", data.TxRef))
			return nil, err
		}

		providerID := data.ID.String()
		total := data.ChargedAmount
		if total.IsZero() {
			total = data.Amount
		}
		row := &models.Transaction{
			UserID:          user.ID,
			RequestID:       depositRequestID(providerID, data.TxRef),
			TransactionID:   &providerID,
			Reference:       data.TxRef,
			Amount:          data.Amount,
			Commission:      data.AppFee,
			TotalAmount:     total,
			Type:            models.TransactionTypeDeposit,
			Category:        models.CategoryVirtualAccount,
			Status:          models.StatusPending,
			ServiceID:       "Deposit",
			ProductName:     "Deposit",
			Phone:           user.Phone,
			Platform:        sourceFlutterwave,
			Channel:         "virtual_account",
			Method:          "bank_transfer",
			ResponseMessage: data.ProcessorResponse,
		}
		if _, err := tx.Transactions().CreateIfAbsent(ctx, row); err != nil {
			return nil, err
		}

		locked, err := tx.Transactions().LockByReference(ctx, data.TxRef)
		if err != nil {
			return nil, err
		}
		if locked.Status != models.StatusPending {
			return &outcome{row: locked}, nil
		}

		if !data.Successful() {
			if err := tx.Transactions().UpdateOutcome(ctx, locked, models.StatusFailed); err != nil {
				return nil, err
			}
			return &outcome{row: locked, changed: true}, nil
		}
		if _, err := ledger.Credit(ctx, tx, locked, data.Amount); err != nil {
			return nil, err
		}
		return &outcome{row: locked, changed: true, message: "Virtual account webhook processed successfully"}, nil
	})
}

func depositRequestID(providerID, txRef string) string {
	if providerID != "" {
		return "FLW_" + providerID
	}
	return "FLW_" + txRef
}

// payout settles a bank transfer. A failure or reversal refunds the
// wallet whatever non-terminal or successful state the row was in.
func (s *Service) payout(ctx context.Context, data *flutterwave.TransferData) (Result, error) {
	if data.Reference == "" {
		return Result{}, apperrors.Validation("reference", "is required")
	}
	status := data.NormalizedStatus()

	return s.apply(ctx, sourceFlutterwave, func(tx repositories.Store) (*outcome, error) {
		row, err := tx.Transactions().LockByReference(ctx, data.Reference)
		if err != nil {
			s.logger.Error("payout webhook for unknown reference", zap.String("reference", data.Reference))
			return nil, err
		}
		if row.TransactionID == nil && data.ID != "" {
			id := data.ID.String()
			row.TransactionID = &id
		}
		if data.CompleteMessage != "" {
			row.ResponseMessage = data.CompleteMessage
		}

		switch status {
		case flutterwave.StatusSuccessful:
			switch row.Status {
			case models.StatusPending, models.StatusProcessing:
				if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusSuccess); err != nil {
					return nil, err
				}
				return &outcome{row: row, changed: true, message: "Transfer webhook processed successfully"}, nil
			case models.StatusFailed, models.StatusReversed:
				s.logger.Warn("success reported for a refunded payout", zap.String("reference", row.Reference))
			}
			return &outcome{row: row}, nil

		case flutterwave.StatusFailed, flutterwave.StatusReversed:
			if models.IsTerminal(row.Status) && row.Status != models.StatusSuccess {
				return &outcome{row: row}, nil
			}
			target := models.StatusFailed
			if status == flutterwave.StatusReversed && row.Status == models.StatusSuccess {
				target = models.StatusReversed
			}
			reason := data.CompleteMessage
			if reason == "" {
				reason = "Transfer failed - Amount refunded"
			}
			if _, _, err := ledger.Refund(ctx, tx, row, target, reason); err != nil {
				return nil, err
			}
			return &outcome{row: row, changed: true, message: "Transfer webhook processed successfully"}, nil
		}

		s.logger.Info("payout status not final", zap.String("reference", row.Reference), zap.String("status", status))
		return &outcome{message: "Transfer status not final"}, nil
	})
}
