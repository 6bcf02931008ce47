package reconciler

import (
	"context"

	"tekpay/internal/models"
	"tekpay/internal/providers/stripe"
	"tekpay/internal/repositories"
	"tekpay/internal/services/ledger"

	"go.uber.org/zap"
)

// HandleStripe verifies a Stripe delivery and settles the card funding
// row created when the payment intent was opened.
func (s *Service) HandleStripe(ctx context.Context, payload []byte, signature string) (Result, error) {
	if s.stripe == nil {
		return Result{}, ErrStripeDisabled
	}
	event, err := s.stripe.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Warn("rejected stripe webhook", zap.Error(err))
		return Result{}, ErrInvalidSignature
	}

	if event.Type != stripe.EventPaymentSucceeded && event.Type != stripe.EventPaymentFailed {
		s.metrics.RecordReconciliation(sourceStripe, StatusIgnored)
		return Result{Status: StatusIgnored, Message: "Unhandled webhook event"}, nil
	}
	if event.Reference == "" {
		s.logger.Warn("stripe intent without reference", zap.String("intent_id", event.IntentID))
		s.metrics.RecordReconciliation(sourceStripe, StatusIgnored)
		return Result{Status: StatusIgnored, Message: "Payment intent has no reference"}, nil
	}

	return s.apply(ctx, sourceStripe, func(tx repositories.Store) (*outcome, error) {
		row, err := tx.Transactions().LockByReference(ctx, event.Reference)
		if err != nil {
			s.logger.Error("stripe webhook for unknown reference", zap.String("reference", event.Reference))
			return nil, err
		}
		if row.Status != models.StatusPending {
			return &outcome{row: row}, nil
		}

		if row.TransactionID == nil && event.IntentID != "" {
			id := event.IntentID
			row.TransactionID = &id
		}
		if len(event.Raw) > 0 {
			row.RawResponse = models.NewJSON(event.Raw)
		}

		if event.Type == stripe.EventPaymentFailed {
			row.ResponseMessage = event.FailureMessage
			if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusFailed); err != nil {
				return nil, err
			}
			return &outcome{row: row, changed: true}, nil
		}

		row.ResponseMessage = "Card payment successful"
		if _, err := ledger.Credit(ctx, tx, row, event.Amount); err != nil {
			return nil, err
		}
		return &outcome{row: row, changed: true}, nil
	})
}
