package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers/monnify"
	"tekpay/internal/repositories"
	"tekpay/internal/utils"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const roleUser = "user"

// Accounts provisions virtual bank accounts.
type Accounts interface {
	CreateReservedAccount(ctx context.Context, req monnify.ReservedAccountRequest) (*monnify.ReservedAccount, error)
}

// ReferralNotifier tells a referrer about a credited bonus.
type ReferralNotifier interface {
	NotifyReferral(ctx context.Context, userID uint, amount decimal.Decimal, reference string)
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	FindRecipient(ctx context.Context, identifier string) (*models.User, error)
	ReferralStats(ctx context.Context, userID uint) (*ReferralStats, error)
	CreateVirtualAccount(ctx context.Context, userID uint) (*models.User, error)
}

// RegisterInput is the sign up body.
type RegisterInput struct {
	FirstName    string `json:"first_name" validate:"required,max=50"`
	LastName     string `json:"last_name" validate:"required,max=50"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,ngphone"`
	Password     string `json:"password" validate:"required"`
	ReferralCode string `json:"referral_code" validate:"omitempty,len=8"`
}

type ReferralStats struct {
	ReferralCode     string          `json:"referral_code"`
	ReferralCount    int             `json:"referral_count"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	Bonus            decimal.Decimal `json:"bonus_per_referral"`
}

type service struct {
	store    repositories.Store
	accounts Accounts
	notifier ReferralNotifier
	bonus    decimal.Decimal
	logger   *zap.Logger
}

// NewService builds the user service. accounts may be nil when no virtual
// account provider is configured.
func NewService(store repositories.Store, accounts Accounts, notifier ReferralNotifier, bonus decimal.Decimal, logger *zap.Logger) Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:    store,
		accounts: accounts,
		notifier: notifier,
		bonus:    bonus,
		logger:   logger,
	}
}

// Register creates the user and its wallet. A valid referral code credits
// the referrer's bonus in the same transaction.
func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.ReferralCode = strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Password("password", input.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Email:        input.Email,
		Password:     string(hashed),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         roleUser,
		Status:       "active",
		ReferralCode: utils.ReferralCode(),
	}

	var bonusRow *models.Transaction
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var referrer *models.User
		if input.ReferralCode != "" {
			r, err := tx.Users().GetByReferralCode(ctx, input.ReferralCode)
			if err != nil {
				if errors.Is(err, apperrors.ErrUserNotFound) {
					return apperrors.Validation("referral_code", "is not valid")
				}
				return err
			}
			referrer = r
			user.ReferredBy = &r.ID
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if err := tx.Wallets().Create(ctx, &models.Wallet{UserID: user.ID, Currency: models.DefaultCurrency}); err != nil {
			return err
		}

		if referrer == nil || !s.bonus.IsPositive() {
			return nil
		}
		row, err := creditReferral(ctx, tx, referrer, user, s.bonus)
		if err != nil {
			return err
		}
		bonusRow = row
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.Validation("email", "email or phone is already registered")
		}
		s.logger.Error("registration failed", zap.String("email", input.Email), zap.Error(err))
		return nil, apperrors.Persistence("register user", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.Bool("referred", user.ReferredBy != nil))
	if bonusRow != nil && s.notifier != nil {
		s.notifier.NotifyReferral(ctx, bonusRow.UserID, bonusRow.Amount, bonusRow.Reference)
	}

	if s.accounts != nil {
		if _, err := s.CreateVirtualAccount(ctx, user.ID); err != nil {
			// the user can retry from the profile screen
			s.logger.Warn("virtual account not created", zap.Uint("user_id", user.ID), zap.Error(err))
		} else if fresh, err := s.store.Users().GetByID(ctx, user.ID); err == nil {
			user = fresh
		}
	}
	return user, nil
}

func creditReferral(ctx context.Context, tx repositories.Store, referrer, referred *models.User, bonus decimal.Decimal) (*models.Transaction, error) {
	if _, err := tx.Wallets().LockByUserID(ctx, referrer.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Wallets().Credit(ctx, referrer.ID, bonus); err != nil {
		return nil, err
	}
	id := utils.NewULID()
	row := &models.Transaction{
		UserID:          referrer.ID,
		RequestID:       "REF_REQ_" + id,
		Reference:       "REF_" + id,
		Amount:          bonus,
		TotalAmount:     bonus,
		Type:            models.TransactionTypeReferralBonus,
		Category:        models.CategoryReferral,
		Status:          models.StatusSuccess,
		ServiceID:       "referral",
		ProductName:     fmt.Sprintf("Referral bonus for %s", referred.FirstName),
		Platform:        "tekpay",
		Channel:         "app",
		Method:          "wallet",
		ResponseMessage: "Referral bonus credited",
	}
	if err := tx.Transactions().Create(ctx, row); err != nil {
		return nil, err
	}
	if err := tx.Users().AddReferralEarnings(ctx, referrer.ID, bonus); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load user", err)
	}
	return u, nil
}

// FindRecipient resolves a transfer recipient by email or phone.
func (s *service) FindRecipient(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		u   *models.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.store.Users().GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.store.Users().GetByPhone(ctx, identifier)
	}
	if err != nil {
		return nil, apperrors.Persistence("find recipient", err)
	}
	return u, nil
}

func (s *service) ReferralStats(ctx context.Context, userID uint) (*ReferralStats, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReferralStats{
		ReferralCode:     u.ReferralCode,
		ReferralCount:    u.ReferralCount,
		ReferralEarnings: u.ReferralEarnings,
		Bonus:            s.bonus,
	}, nil
}

// CreateVirtualAccount reserves a deposit account for the user unless one
// already exists.
func (s *service) CreateVirtualAccount(ctx context.Context, userID uint) (*models.User, error) {
	if s.accounts == nil {
		return nil, errors.New("virtual accounts are not configured")
	}
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.VirtualAccount != "" {
		return u, nil
	}

	account, err := s.accounts.CreateReservedAccount(ctx, monnify.ReservedAccountRequest{
		AccountReference: fmt.Sprintf("TEKPAY_%d", u.ID),
		AccountName:      u.FullName(),
		CustomerEmail:    u.Email,
		CustomerName:     u.FullName(),
	})
	if err != nil {
		return nil, err
	}
	if len(account.Accounts) == 0 {
		return nil, &apperrors.ProviderError{Provider: "monnify", Message: "no account returned"}
	}

	first := account.Accounts[0]
	if err := s.store.Users().SetVirtualAccount(ctx, u.ID, first.AccountNumber, first.BankName); err != nil {
		return nil, apperrors.Persistence("save virtual account", err)
	}
	u.VirtualAccount = first.AccountNumber
	u.VirtualBank = first.BankName
	s.logger.Info("virtual account created", zap.Uint("user_id", u.ID), zap.String("bank", first.BankName))
	return u, nil
}
