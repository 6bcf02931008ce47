package repositories

import (
	"context"
	"time"

	"tekpay/internal/models"
)

// TransactionFilter narrows a user's history listing.
type TransactionFilter struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// TransactionRepository is the ledger store. Rows are keyed by the unique
// request_id and reference; Lock* variants read with FOR UPDATE.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	// CreateIfAbsent inserts txn unless a row with the same reference
	// exists. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error)

	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error)
	LockByReference(ctx context.Context, reference string) (*models.Transaction, error)
	LockByRequestID(ctx context.Context, requestID string) (*models.Transaction, error)
	LockByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)

	// UpdateOutcome moves txn to status and persists its mutable outcome
	// fields. It fails with ErrInvalidTransition when the move is not allowed.
	UpdateOutcome(ctx context.Context, txn *models.Transaction, status string) error
	// SetTransactionID records the provider id of a row without moving it.
	SetTransactionID(ctx context.Context, txn *models.Transaction, transactionID string) error

	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error)
	ListByUser(ctx context.Context, userID uint, filter TransactionFilter) ([]models.Transaction, int64, error)

	CreateTransfer(ctx context.Context, transfer *models.TransferTransaction) error
	ListTransfers(ctx context.Context, userID uint, limit, offset int) ([]models.TransferTransaction, int64, error)
}
