package wallet

import (
	"context"
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/metrics"
	"tekpay/internal/models"
	"tekpay/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var validTypes = map[string]bool{
	models.TransactionTypePurchase:      true,
	models.TransactionTypeTransfer:      true,
	models.TransactionTypeDeposit:       true,
	models.TransactionTypeRefund:        true,
	models.TransactionTypeReferralBonus: true,
	models.TransactionTypeCredit:        true,
}

var validStatuses = map[string]bool{
	models.StatusPending:    true,
	models.StatusProcessing: true,
	models.StatusSuccess:    true,
	models.StatusFailed:     true,
	models.StatusReversed:   true,
}

type service struct {
	store   repositories.Store
	logger  *zap.Logger
	metrics metrics.Recorder
}

// NewService creates a new wallet service
func NewService(store repositories.Store, logger *zap.Logger, recorder metrics.Recorder) Service {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &service{
		store:   store,
		logger:  logger,
		metrics: recorder,
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration("get_wallet", time.Since(start))
	}()

	w, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrWalletNotFound) {
			s.logger.Error("failed to load wallet", zap.Uint("user_id", userID), zap.Error(err))
		}
		return nil, apperrors.Persistence("load wallet", err)
	}
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// History lists the user's ledger rows, newest first.
func (s *service) History(ctx context.Context, userID uint, q HistoryQuery) (*Page[models.Transaction], error) {
	if q.Type != "" && !validTypes[q.Type] {
		return nil, apperrors.Validation("type", ErrInvalidType.Error())
	}
	if q.Status != "" && !validStatuses[q.Status] {
		return nil, apperrors.Validation("status", ErrInvalidStatus.Error())
	}
	page, limit := normalize(q.Page, q.Limit)

	items, total, err := s.store.Transactions().ListByUser(ctx, userID, repositories.TransactionFilter{
		Type:   q.Type,
		Status: q.Status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list transactions", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("list transactions", err)
	}
	return newPage(items, page, limit, total), nil
}

// Transfers lists the beneficiaries the user has sent money to.
func (s *service) Transfers(ctx context.Context, userID uint, page, limit int) (*Page[models.TransferTransaction], error) {
	page, limit = normalize(page, limit)
	items, total, err := s.store.Transactions().ListTransfers(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list transfers", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperrors.Persistence("list transfers", err)
	}
	return newPage(items, page, limit, total), nil
}

// Transaction returns the row with reference when it belongs to userID.
func (s *service) Transaction(ctx context.Context, userID uint, reference string) (*models.Transaction, error) {
	row, err := s.store.Transactions().GetByReference(ctx, reference)
	if err != nil {
		return nil, apperrors.Persistence("load transaction", err)
	}
	if row.UserID != userID {
		return nil, apperrors.ErrTransactionNotFound
	}
	return row, nil
}

func normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func newPage[T any](items []T, page, limit int, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:    items,
		Page:     page,
		Limit:    limit,
		Total:    total,
		LastPage: int((total + int64(limit) - 1) / int64(limit)),
	}
}
