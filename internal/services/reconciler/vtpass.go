package reconciler

import (
	"context"
	"errors"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/repositories"
	"tekpay/internal/services/ledger"

	"go.uber.org/zap"
)

// HandleVTpass applies a transaction-update callback. raw is the request
// body kept on the row for audit.
func (s *Service) HandleVTpass(ctx context.Context, event vtpass.Event, raw []byte) (Result, error) {
	if event.Type != vtpass.EventTransactionUpdate {
		s.metrics.RecordReconciliation(sourceVTpass, StatusIgnored)
		return Result{Status: StatusIgnored, Message: "Unhandled webhook event"}, nil
	}

	resp := event.Data.Response(raw)
	requestID := event.Data.RequestID
	if requestID == "" && resp.ProviderTxnID == "" {
		return Result{}, apperrors.Validation("requestId", "is required")
	}
	reversal := resp.Code == vtpass.CodeReversed || resp.Status == vtpass.TxnReversed

	return s.apply(ctx, sourceVTpass, func(tx repositories.Store) (*outcome, error) {
		row, err := lockPurchase(ctx, tx, requestID, resp.ProviderTxnID)
		if err != nil {
			s.logger.Error("vtpass callback for unknown transaction",
				zap.String("request_id", requestID),
				zap.String("transaction_id", resp.ProviderTxnID))
			return nil, err
		}

		switch {
		case row.Status == models.StatusSuccess && reversal:
			ledger.ApplyResponse(row, resp)
			if _, _, err := ledger.Refund(ctx, tx, row, models.StatusReversed, vtpass.Message(vtpass.CodeReversed)); err != nil {
				return nil, err
			}
			return &outcome{row: row, changed: true}, nil

		case row.Status != models.StatusPending:
			return &outcome{row: row}, nil

		case resp.Outcome == providers.OutcomeSuccess:
			ledger.ApplyResponse(row, resp)
			if _, lost, err := ledger.DebitSuccess(ctx, tx, row); err != nil {
				return nil, err
			} else if lost {
				s.logger.Warn("delivered purchase no longer covered by wallet", zap.String("reference", row.Reference))
			}
			return &outcome{row: row, changed: true}, nil

		case resp.Outcome == providers.OutcomeFailure:
			ledger.ApplyResponse(row, resp)
			if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusFailed); err != nil {
				return nil, err
			}
			return &outcome{row: row, changed: true}, nil
		}

		// still processing at the biller
		return &outcome{row: row}, nil
	})
}

func lockPurchase(ctx context.Context, tx repositories.Store, requestID, providerTxnID string) (*models.Transaction, error) {
	if requestID != "" {
		row, err := tx.Transactions().LockByRequestID(ctx, requestID)
		if err == nil || !errors.Is(err, apperrors.ErrTransactionNotFound) || providerTxnID == "" {
			return row, err
		}
	}
	return tx.Transactions().LockByTransactionID(ctx, providerTxnID)
}
