package repositories

import (
	"context"
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return wrap("create transaction", err)
	}
	return nil
}

func (r *transactionRepository) CreateIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(txn)
	if result.Error != nil {
		return false, wrap("create transaction", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.first(r.db.WithContext(ctx), "reference = ?", reference)
}

func (r *transactionRepository) GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	return r.first(r.db.WithContext(ctx), "request_id = ?", requestID)
}

func (r *transactionRepository) LockByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.first(r.locked(ctx), "reference = ?", reference)
}

func (r *transactionRepository) LockByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	return r.first(r.locked(ctx), "request_id = ?", requestID)
}

func (r *transactionRepository) LockByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.first(r.locked(ctx), "transaction_id = ?", transactionID)
}

func (r *transactionRepository) locked(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *transactionRepository) first(db *gorm.DB, query string, arg interface{}) (*models.Transaction, error) {
	var txn models.Transaction
	if err := db.Where(query, arg).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, wrap("get transaction", err)
	}
	return &txn, nil
}

func (r *transactionRepository) UpdateOutcome(ctx context.Context, txn *models.Transaction, status string) error {
	if !models.CanTransition(txn.Status, status) {
		return apperrors.ErrInvalidTransition
	}
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]interface{}{
			"status":           status,
			"transaction_id":   txn.TransactionID,
			"response_code":    txn.ResponseCode,
			"response_message": txn.ResponseMessage,
			"purchased_code":   txn.PurchasedCode,
			"commission":       txn.Commission,
			"total_amount":     txn.TotalAmount,
			"transaction_date": txn.TransactionDate,
			"raw_response":     txn.RawResponse,
		}).Error
	if err != nil {
		return wrap("update transaction outcome", err)
	}
	txn.Status = status
	return nil
}

func (r *transactionRepository) SetTransactionID(ctx context.Context, txn *models.Transaction, transactionID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Update("transaction_id", transactionID).Error
	if err != nil {
		return wrap("set provider transaction id", err)
	}
	txn.TransactionID = &transactionID
	return nil
}

func (r *transactionRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND type = ? AND created_at < ?", models.StatusPending, models.TransactionTypePurchase, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, wrap("list pending transactions", err)
	}
	return txns, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uint, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrap("count transactions", err)
	}

	var txns []models.Transaction
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&txns).Error
	if err != nil {
		return nil, 0, wrap("list transactions", err)
	}
	return txns, total, nil
}

func (r *transactionRepository) CreateTransfer(ctx context.Context, transfer *models.TransferTransaction) error {
	if err := r.db.WithContext(ctx).Create(transfer).Error; err != nil {
		return wrap("create transfer record", err)
	}
	return nil
}

func (r *transactionRepository) ListTransfers(ctx context.Context, userID uint, limit, offset int) ([]models.TransferTransaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.TransferTransaction{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrap("count transfers", err)
	}

	var transfers []models.TransferTransaction
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&transfers).Error; err != nil {
		return nil, 0, wrap("list transfers", err)
	}
	return transfers, total, nil
}
