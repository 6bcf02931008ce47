// Package reconciler applies provider webhooks to the ledger. Each event
// is handled in one database transaction holding the ledger row lock, and
// the status check inside that transaction makes redeliveries no-ops.
package reconciler

import (
	"context"
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/metrics"
	"tekpay/internal/models"
	"tekpay/internal/providers/stripe"
	"tekpay/internal/repositories"

	"go.uber.org/zap"
)

// Result statuses reported back to the provider.
const (
	StatusProcessed = "success"
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
)

const (
	sourceFlutterwave = "flutterwave"
	sourceVTpass      = "vtpass"
	sourceStripe      = "stripe"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStripeDisabled   = errors.New("stripe webhooks are not configured")
)

type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Notifier is told about every committed status change.
type Notifier interface {
	NotifyTransaction(ctx context.Context, userID uint, txn *models.Transaction)
}

// StripeEvents verifies and decodes Stripe deliveries.
type StripeEvents interface {
	ParseEvent(payload []byte, signature string) (*stripe.Event, error)
}

type Service struct {
	store    repositories.Store
	notifier Notifier
	stripe   StripeEvents
	logger   *zap.Logger
	metrics  metrics.Recorder
}

func NewService(store repositories.Store, notifier Notifier, stripeEvents StripeEvents, logger *zap.Logger, recorder metrics.Recorder) *Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		stripe:   stripeEvents,
		logger:   logger,
		metrics:  recorder,
	}
}

// outcome is what a handler decided inside its transaction.
type outcome struct {
	row     *models.Transaction
	changed bool
	message string
}

// apply runs fn in a transaction and, once it commits with a change,
// sends exactly one notification for the affected row.
func (s *Service) apply(ctx context.Context, source string, fn func(tx repositories.Store) (*outcome, error)) (Result, error) {
	start := time.Now()
	var out *outcome
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		out, err = fn(tx)
		return err
	})
	s.metrics.RecordOperationDuration("webhook_"+source, time.Since(start))

	if err != nil {
		s.metrics.RecordReconciliation(source, resultLabel(err))
		return Result{}, apperrors.Persistence("reconcile "+source+" event", err)
	}
	if out == nil || out.row == nil {
		s.metrics.RecordReconciliation(source, StatusIgnored)
		msg := "Event ignored"
		if out != nil && out.message != "" {
			msg = out.message
		}
		return Result{Status: StatusIgnored, Message: msg}, nil
	}
	if !out.changed {
		s.metrics.RecordReconciliation(source, StatusDuplicate)
		s.logger.Info("webhook already applied",
			zap.String("source", source),
			zap.String("reference", out.row.Reference),
			zap.String("status", out.row.Status))
		return Result{Status: StatusDuplicate, Message: "Event already processed"}, nil
	}

	s.metrics.RecordReconciliation(source, "applied")
	s.logger.Info("webhook applied",
		zap.String("source", source),
		zap.String("reference", out.row.Reference),
		zap.String("status", out.row.Status))
	if s.notifier != nil {
		s.notifier.NotifyTransaction(ctx, out.row.UserID, out.row)
	}
	msg := out.message
	if msg == "" {
		msg = "Webhook processed successfully"
	}
	return Result{Status: StatusProcessed, Message: msg}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrUserNotFound):
		return "unknown_user"
	default:
		return "error"
	}
}
