package repositories

import (
	"context"

	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user; a taken email or phone yields ErrDuplicate
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)

	// IncrementTokenVersion invalidates every issued token of the user
	IncrementTokenVersion(ctx context.Context, userID uint) error

	UpdatePin(ctx context.Context, userID uint, pinHash string) error
	UpdateLastLogin(ctx context.Context, userID uint) error
	SetVirtualAccount(ctx context.Context, userID uint, accountNumber, bankName string) error

	// AddReferralEarnings bumps referral_count by one and earnings by amount
	AddReferralEarnings(ctx context.Context, userID uint, amount decimal.Decimal) error
}
