package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/metrics"
	"tekpay/internal/models"
	"tekpay/internal/repositories"
	"tekpay/internal/utils"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	operationTransfer = "wallet_transfer"

	platformWallet = "tekpay"
	walletBank     = "Tekpay Wallet"
)

// service implements the transfer Service interface.
type service struct {
	store    repositories.Store
	notifier Notifier
	logger   *zap.Logger
	metrics  metrics.Recorder
}

// NewService creates a new transfer service instance.
func NewService(store repositories.Store, notifier Notifier, logger *zap.Logger, recorder metrics.Recorder) Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  recorder,
	}
}

// Transfer moves funds between two user wallets. Both wallets are locked
// in ascending user id order, and the debit, the credit and both ledger
// rows commit together.
func (s *service) Transfer(ctx context.Context, senderID, recipientID uint, amount decimal.Decimal, narration string) (*Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(operationTransfer, time.Since(start))
	}()

	if err := validation.ValidateWalletTransfer(senderID, recipientID, amount, narration); err != nil {
		return nil, err
	}

	senderReq, senderRef, recipientReq, recipientRef := utils.InAppTransferIDs()
	transferID := utils.NewULID()
	log := s.logger.With(
		zap.Uint("sender_id", senderID),
		zap.Uint("recipient_id", recipientID),
		zap.String("reference", senderRef),
	)

	var result Result
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		sender, err := tx.Users().GetByID(ctx, senderID)
		if err != nil {
			return err
		}
		recipient, err := tx.Users().GetByID(ctx, recipientID)
		if err != nil {
			return err
		}

		senderWallet, err := lockPair(ctx, tx, senderID, recipientID)
		if err != nil {
			return err
		}
		if !senderWallet.CanSpend(amount) {
			return apperrors.ErrInsufficientFunds
		}

		debited, err := tx.Wallets().Debit(ctx, senderID, amount)
		if err != nil {
			return err
		}
		if _, err := tx.Wallets().Credit(ctx, recipientID, amount); err != nil {
			return err
		}

		now := time.Now()
		debit := &models.Transaction{
			UserID:          senderID,
			RequestID:       senderReq,
			TransactionID:   &transferID,
			Reference:       senderRef,
			Amount:          amount,
			TotalAmount:     amount,
			Type:            models.TransactionTypeTransfer,
			Category:        models.CategoryWalletTransfer,
			Status:          models.StatusSuccess,
			ServiceID:       "wallet-transfer",
			Phone:           recipient.Phone,
			ProductName:     fmt.Sprintf("Transfer to %s", recipient.FullName()),
			Platform:        platformWallet,
			Channel:         "app",
			Method:          "wallet",
			ResponseMessage: narrationOr(narration, "Transfer successful"),
			TransactionDate: &now,
		}
		credit := &models.Transaction{
			UserID:          recipientID,
			RequestID:       recipientReq,
			TransactionID:   &transferID,
			Reference:       recipientRef,
			Amount:          amount,
			TotalAmount:     amount,
			Type:            models.TransactionTypeCredit,
			Category:        models.CategoryWalletTransfer,
			Status:          models.StatusSuccess,
			ServiceID:       "wallet-transfer",
			Phone:           sender.Phone,
			ProductName:     fmt.Sprintf("Transfer from %s", sender.FullName()),
			Platform:        platformWallet,
			Channel:         "app",
			Method:          "wallet",
			ResponseMessage: narrationOr(narration, "Transfer received"),
			TransactionDate: &now,
		}
		if err := tx.Transactions().Create(ctx, debit); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, credit); err != nil {
			return err
		}

		if err := tx.Transactions().CreateTransfer(ctx, &models.TransferTransaction{
			UserID:        senderID,
			Reference:     senderRef,
			AccountName:   recipient.FullName(),
			AccountNumber: recipient.Phone,
			AccountBank:   walletBank,
			AccountCode:   platformWallet,
			Amount:        amount,
		}); err != nil {
			return err
		}

		result = Result{Debit: debit, Credit: credit, Balance: debited.Balance}
		return nil
	})
	if err != nil {
		s.metrics.RecordOperationResult(operationTransfer, resultLabel(err))
		log.Warn("wallet transfer failed", zap.Error(err))
		return nil, apperrors.Persistence("wallet transfer", err)
	}

	s.metrics.RecordOperationResult(operationTransfer, "success")
	log.Info("wallet transfer completed", zap.String("amount", amount.StringFixed(2)))

	if s.notifier != nil {
		s.notifier.NotifyTransaction(ctx, senderID, result.Debit)
		s.notifier.NotifyTransaction(ctx, recipientID, result.Credit)
	}
	return &result, nil
}

// lockPair locks both wallets, lower user id first, and returns the
// sender's wallet.
func lockPair(ctx context.Context, tx repositories.Store, senderID, recipientID uint) (*models.Wallet, error) {
	first, second := senderID, recipientID
	if second < first {
		first, second = second, first
	}
	a, err := tx.Wallets().LockByUserID(ctx, first)
	if err != nil {
		return nil, err
	}
	b, err := tx.Wallets().LockByUserID(ctx, second)
	if err != nil {
		return nil, err
	}
	if a.UserID == senderID {
		return a, nil
	}
	return b, nil
}

func narrationOr(narration, fallback string) string {
	if narration == "" {
		return fallback
	}
	return narration
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, apperrors.ErrUserNotFound):
		return "unknown_recipient"
	default:
		return "error"
	}
}
