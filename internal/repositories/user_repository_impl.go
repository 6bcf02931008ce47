package repositories

import (
	"context"
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return wrap("create user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.first(ctx, "referral_code = ?", code)
}

func (r *userRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, wrap("get user", err)
	}
	return &user, nil
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, userID uint) error {
	return r.update(ctx, userID, map[string]interface{}{
		"token_version": gorm.Expr("token_version + 1"),
	})
}

func (r *userRepository) UpdatePin(ctx context.Context, userID uint, pinHash string) error {
	return r.update(ctx, userID, map[string]interface{}{"transaction_pin": pinHash})
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID uint) error {
	return r.update(ctx, userID, map[string]interface{}{"last_login_at": time.Now()})
}

func (r *userRepository) SetVirtualAccount(ctx context.Context, userID uint, accountNumber, bankName string) error {
	return r.update(ctx, userID, map[string]interface{}{
		"virtual_account": accountNumber,
		"virtual_bank":    bankName,
	})
}

func (r *userRepository) AddReferralEarnings(ctx context.Context, userID uint, amount decimal.Decimal) error {
	return r.update(ctx, userID, map[string]interface{}{
		"referral_count":    gorm.Expr("referral_count + 1"),
		"referral_earnings": gorm.Expr("referral_earnings + ?", amount),
	})
}

func (r *userRepository) update(ctx context.Context, userID uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return wrap("update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
