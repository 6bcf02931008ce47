// Package funding opens card payments that top up a wallet. The wallet is
// credited later, when the reconciler receives the payment webhook.
package funding

import (
	"context"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers/stripe"
	"tekpay/internal/repositories"
	"tekpay/internal/utils"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cards creates card payment intents.
type Cards interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, reference, email string) (*stripe.PaymentIntent, error)
}

type Result struct {
	Reference    string              `json:"reference"`
	IntentID     string              `json:"payment_intent_id"`
	ClientSecret string              `json:"client_secret"`
	Transaction  *models.Transaction `json:"transaction"`
}

type Service struct {
	store  repositories.Store
	cards  Cards
	logger *zap.Logger
}

func NewService(store repositories.Store, cards Cards, logger *zap.Logger) *Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cards: cards, logger: logger}
}

// ErrCardsDisabled is returned when no card provider is configured.
var ErrCardsDisabled = apperrors.Validation("card", "card funding is not available")

// FundWithCard records a pending card deposit and opens the payment intent
// the client completes. The row is written before the intent exists so a
// paid intent always has a row for the webhook to settle.
func (s *Service) FundWithCard(ctx context.Context, userID uint, amount decimal.Decimal) (*Result, error) {
	if s.cards == nil {
		return nil, ErrCardsDisabled
	}
	v := validation.New()
	v.Amount("amount", amount)
	v.Range("amount", amount, validation.MinFundingAmount, validation.MaxFundingAmount)
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence("load user", err)
	}

	reference := utils.CardReference()
	log := s.logger.With(zap.Uint("user_id", userID), zap.String("reference", reference))

	row := &models.Transaction{
		UserID:          userID,
		RequestID:       "STRIPE_" + reference,
		Reference:       reference,
		Amount:          amount,
		TotalAmount:     amount,
		Type:            models.TransactionTypeDeposit,
		Category:        models.CategoryCard,
		Status:          models.StatusPending,
		ServiceID:       "card-funding",
		ProductName:     "Card funding",
		Phone:           user.Phone,
		Platform:        "stripe",
		Channel:         "app",
		Method:          "card",
		ResponseMessage: "Awaiting card payment",
	}
	if err := s.store.Transactions().Create(ctx, row); err != nil {
		log.Error("failed to record card deposit", zap.Error(err))
		return nil, apperrors.Persistence("record card deposit", err)
	}

	intent, err := s.cards.CreatePaymentIntent(ctx, amount, models.DefaultCurrency, reference, user.Email)
	if err != nil {
		log.Error("payment intent failed", zap.Error(err))
		row.ResponseMessage = "Card payment could not be started"
		if uerr := s.store.Transactions().UpdateOutcome(ctx, row, models.StatusFailed); uerr != nil {
			log.Error("failed to close card deposit", zap.Error(uerr))
		}
		return nil, err
	}

	if err := s.store.Transactions().SetTransactionID(ctx, row, intent.ID); err != nil {
		// the webhook fills the id in from the intent metadata
		log.Warn("failed to store payment intent id", zap.String("intent_id", intent.ID), zap.Error(err))
	}

	log.Info("card funding started", zap.String("intent_id", intent.ID))
	return &Result{
		Reference:    reference,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Transaction:  row,
	}, nil
}
