package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"tekpay/internal/config"
	apperrors "tekpay/internal/errors"
	"tekpay/internal/logger"
	"tekpay/internal/models"
	"tekpay/internal/repositories"
	"tekpay/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	adminEmail := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")

	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		zlog.Fatal("ADMIN_EMAIL, ADMIN_PASSWORD, and ADMIN_PHONE must be set in environment")
	}

	db, err := repositories.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			zlog.Warn("failed to get SQL DB instance", zap.Error(err))
			return
		}
		if err := sqlDB.Close(); err != nil {
			zlog.Warn("failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	ctx := context.Background()
	store := repositories.NewStore(db)

	if _, err := store.Users().GetByEmail(ctx, adminEmail); err == nil {
		zlog.Info("admin user already exists", zap.String("email", adminEmail))
		return
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		zlog.Fatal("failed to look up admin", zap.Error(err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		zlog.Fatal("failed to hash password", zap.Error(err))
	}

	admin := &models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		FirstName:    "Tekpay",
		LastName:     "Admin",
		Phone:        adminPhone,
		Role:         "admin",
		Status:       "active",
		TokenVersion: 1,
		ReferralCode: utils.ReferralCode(),
	}

	err = store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Users().Create(ctx, admin); err != nil {
			return err
		}
		return tx.Wallets().Create(ctx, &models.Wallet{
			UserID:   admin.ID,
			Balance:  decimal.Zero,
			Currency: models.DefaultCurrency,
			Status:   models.WalletStatusActive,
		})
	})
	if err != nil {
		zlog.Fatal("failed to create admin user", zap.Error(err))
	}

	zlog.Info("admin account created", zap.String("email", adminEmail), zap.Uint("user_id", admin.ID))
}
