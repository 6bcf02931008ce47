package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/repositories"
	"tekpay/internal/repositories/cache"
	"tekpay/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MaxPinAttempts = 5
	PinLockout     = 15 * time.Minute
)

// Tokens issues and verifies JWT pairs.
type Tokens interface {
	GenerateTokens(claims *models.UserClaims) (string, string, error)
	ParseToken(token string) (*models.UserClaims, error)
	ParseRefreshToken(token string) (*models.UserClaims, error)
}

type Service interface {
	Login(ctx context.Context, identifier, password string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
	Logout(ctx context.Context, userID uint) error

	SetPin(ctx context.Context, userID uint, password, pin string) error
	VerifyPin(ctx context.Context, userID uint, pin string) error
}

type service struct {
	users  repositories.UserRepository
	tokens Tokens
	keys   cache.KeyedStore
	logger *zap.Logger
}

func NewService(users repositories.UserRepository, tokens Tokens, keys cache.KeyedStore, logger *zap.Logger) Service {
	if users == nil || tokens == nil || keys == nil {
		panic("auth service dependencies cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		users:  users,
		tokens: tokens,
		keys:   keys,
		logger: logger,
	}
}

// Login accepts an email or a phone number as identifier.
func (s *service) Login(ctx context.Context, identifier, password string) (*models.User, string, string, error) {
	user, err := s.userByIdentifier(ctx, identifier)
	if err != nil {
		s.logger.Info("login failed: unknown identifier")
		return nil, "", "", apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Info("login failed: incorrect password", zap.Uint("user_id", user.ID))
		return nil, "", "", apperrors.ErrInvalidCredentials
	}
	if user.Status != "" && user.Status != "active" {
		return nil, "", "", apperrors.ErrUnauthorized
	}

	access, refresh, err := s.tokens.GenerateTokens(claimsFor(user))
	if err != nil {
		s.logger.Error("error generating tokens", zap.Error(err))
		return nil, "", "", errors.New("error generating tokens")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return user, access, refresh, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", apperrors.ErrUnauthorized
	}
	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return "", "", err
	}
	return s.tokens.GenerateTokens(claimsFor(user))
}

// Authenticate verifies an access token and rejects tokens issued before
// the user's last logout.
func (s *service) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	claims, err := s.tokens.ParseToken(accessToken)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if _, err := s.currentUser(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *service) Logout(ctx context.Context, userID uint) error {
	return s.users.IncrementTokenVersion(ctx, userID)
}

// SetPin stores a bcrypt hash of a four digit PIN after checking the
// account password.
func (s *service) SetPin(ctx context.Context, userID uint, password, pin string) error {
	v := validation.New()
	v.Pin("pin", pin)
	if err := v.Err(); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash pin")
	}
	if err := s.users.UpdatePin(ctx, userID, string(hashed)); err != nil {
		return apperrors.Persistence("update pin", err)
	}
	return s.keys.Delete(ctx, pinAttemptsKey(userID))
}

// VerifyPin checks the transaction PIN. Five wrong attempts lock spending
// for fifteen minutes.
func (s *service) VerifyPin(ctx context.Context, userID uint, pin string) error {
	key := pinAttemptsKey(userID)

	var attempts int64
	if _, err := s.keys.Get(ctx, key, &attempts); err != nil {
		s.logger.Warn("pin attempt counter unavailable", zap.Error(err))
	}
	if attempts >= MaxPinAttempts {
		return apperrors.ErrTransactionLocked
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPin() {
		return apperrors.ErrPinNotSet
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.TransactionPin), []byte(pin)); err != nil {
		n, incrErr := s.keys.Incr(ctx, key, PinLockout)
		if incrErr != nil {
			s.logger.Warn("failed to count pin attempt", zap.Error(incrErr))
		}
		if n >= MaxPinAttempts {
			s.logger.Warn("transaction pin locked", zap.Uint("user_id", userID))
			return apperrors.ErrTransactionLocked
		}
		return apperrors.ErrInvalidPin
	}

	if attempts > 0 {
		_ = s.keys.Delete(ctx, key)
	}
	return nil
}

func (s *service) currentUser(ctx context.Context, claims *models.UserClaims) (*models.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

func (s *service) userByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.users.GetByPhone(ctx, identifier)
}

func claimsFor(user *models.User) *models.UserClaims {
	return &models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	}
}

func pinAttemptsKey(userID uint) string {
	return fmt.Sprintf("pin_attempts:%d", userID)
}
