package repositories

import (
	"context"
	"errors"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	if wallet.Currency == "" {
		wallet.Currency = models.DefaultCurrency
	}
	if wallet.Status == "" {
		wallet.Status = models.WalletStatusActive
	}
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return wrap("create wallet", err)
	}
	return nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, wrap("get wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) LockByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, wrap("lock wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) Credit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	wallet, err := r.LockByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet.Balance = wallet.Balance.Add(amount)
	if err := r.saveBalance(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *walletRepository) Debit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	wallet, err := r.LockByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !wallet.CanSpend(amount) {
		return nil, apperrors.ErrInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	if err := r.saveBalance(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *walletRepository) saveBalance(ctx context.Context, wallet *models.Wallet) error {
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("balance", wallet.Balance).Error
	if err != nil {
		return wrap("update wallet balance", err)
	}
	return nil
}
