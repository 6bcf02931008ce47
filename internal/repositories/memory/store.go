// Package memory implements the repository interfaces in process. A
// transaction holds a store-wide mutex and works on a copy of the state,
// which is swapped in on commit, so concurrent callers observe the same
// serialization a row lock gives them in PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/repositories"

	"github.com/shopspring/decimal"
)

type state struct {
	nextID    uint
	wallets   map[uint]models.Wallet
	txns      map[uint]models.Transaction
	users     map[uint]models.User
	transfers []models.TransferTransaction
}

func newState() *state {
	return &state{
		wallets: make(map[uint]models.Wallet),
		txns:    make(map[uint]models.Transaction),
		users:   make(map[uint]models.User),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextID:    s.nextID,
		wallets:   make(map[uint]models.Wallet, len(s.wallets)),
		txns:      make(map[uint]models.Transaction, len(s.txns)),
		users:     make(map[uint]models.User, len(s.users)),
		transfers: append([]models.TransferTransaction(nil), s.transfers...),
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// Store is an in-memory repositories.Store.
type Store struct {
	mu   *sync.Mutex
	root **state
	tx   *state
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, root: &st}
}

func (s *Store) Wallets() repositories.WalletRepository { return &walletRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository { return &txnRepo{s} }
func (s *Store) Users() repositories.UserRepository { return &userRepo{s} }

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := (*s.root).clone()
	if err := fn(&Store{mu: s.mu, root: s.root, tx: work}); err != nil {
		return err
	}
	*s.root = work
	return nil
}

// do runs fn against the visible state, taking the store lock when called
// outside a transaction.
func (s *Store) do(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.root)
}

// SeedUser stores user with a wallet holding balance and returns its id.
func (s *Store) SeedUser(user models.User, balance decimal.Decimal) uint {
	_ = s.do(func(st *state) error {
		if user.ID == 0 {
			user.ID = st.id()
		} else if user.ID > st.nextID {
			st.nextID = user.ID
		}
		st.users[user.ID] = user
		st.wallets[user.ID] = models.Wallet{
			ID:       st.id(),
			UserID:   user.ID,
			Balance:  balance,
			Currency: models.DefaultCurrency,
			Status:   models.WalletStatusActive,
		}
		return nil
	})
	return user.ID
}

// Balance returns the stored balance of userID's wallet.
func (s *Store) Balance(userID uint) decimal.Decimal {
	var b decimal.Decimal
	_ = s.do(func(st *state) error {
		b = st.wallets[userID].Balance
		return nil
	})
	return b
}

// AllTransactions returns every ledger row ordered by id.
func (s *Store) AllTransactions() []models.Transaction {
	var out []models.Transaction
	_ = s.do(func(st *state) error {
		for _, t := range st.txns {
			out = append(out, t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllTransfers returns every stored beneficiary record.
func (s *Store) AllTransfers() []models.TransferTransaction {
	var out []models.TransferTransaction
	_ = s.do(func(st *state) error {
		out = append(out, st.transfers...)
		return nil
	})
	return out
}

type walletRepo struct{ s *Store }

func (r *walletRepo) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.wallets[wallet.UserID]; ok {
			return apperrors.ErrDuplicate
		}
		wallet.ID = st.id()
		if wallet.Currency == "" {
			wallet.Currency = models.DefaultCurrency
		}
		if wallet.Status == "" {
			wallet.Status = models.WalletStatusActive
		}
		wallet.CreatedAt = time.Now()
		wallet.UpdatedAt = wallet.CreatedAt
		st.wallets[wallet.UserID] = *wallet
		return nil
	})
}

func (r *walletRepo) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.do(func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return apperrors.ErrWalletNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *walletRepo) LockByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *walletRepo) Credit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	return r.adjust(userID, amount)
}

func (r *walletRepo) Debit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	return r.adjust(userID, amount.Neg())
}

func (r *walletRepo) adjust(userID uint, delta decimal.Decimal) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.s.do(func(st *state) error {
		w, ok := st.wallets[userID]
		if !ok {
			return apperrors.ErrWalletNotFound
		}
		next := w.Balance.Add(delta)
		if next.IsNegative() {
			return apperrors.ErrInsufficientFunds
		}
		w.Balance = next
		w.UpdatedAt = time.Now()
		st.wallets[userID] = w
		out = &w
		return nil
	})
	return out, err
}

type txnRepo struct{ s *Store }

func (r *txnRepo) Create(ctx context.Context, txn *models.Transaction) error {
	return r.s.do(func(st *state) error {
		for _, t := range st.txns {
			if t.RequestID == txn.RequestID || t.Reference == txn.Reference {
				return apperrors.ErrDuplicate
			}
		}
		insertTxn(st, txn)
		return nil
	})
}

func (r *txnRepo) CreateIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	created := false
	err := r.s.do(func(st *state) error {
		for _, t := range st.txns {
			if t.RequestID == txn.RequestID || t.Reference == txn.Reference {
				return nil
			}
		}
		insertTxn(st, txn)
		created = true
		return nil
	})
	return created, err
}

func insertTxn(st *state, txn *models.Transaction) {
	txn.ID = st.id()
	if txn.Status == "" {
		txn.Status = models.StatusPending
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	txn.UpdatedAt = txn.CreatedAt
	st.txns[txn.ID] = *txn
}

func (r *txnRepo) find(match func(models.Transaction) bool) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.s.do(func(st *state) error {
		for _, t := range st.txns {
			if match(t) {
				t := t
				out = &t
				return nil
			}
		}
		return apperrors.ErrTransactionNotFound
	})
	return out, err
}

func (r *txnRepo) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.find(func(t models.Transaction) bool { return t.Reference == reference })
}

func (r *txnRepo) GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	return r.find(func(t models.Transaction) bool { return t.RequestID == requestID })
}

func (r *txnRepo) LockByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r *txnRepo) LockByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	return r.GetByRequestID(ctx, requestID)
}

func (r *txnRepo) LockByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.find(func(t models.Transaction) bool { return t.ProviderTxnID() == transactionID })
}

func (r *txnRepo) UpdateOutcome(ctx context.Context, txn *models.Transaction, status string) error {
	if !models.CanTransition(txn.Status, status) {
		return apperrors.ErrInvalidTransition
	}
	err := r.s.do(func(st *state) error {
		stored, ok := st.txns[txn.ID]
		if !ok {
			return apperrors.ErrTransactionNotFound
		}
		stored.Status = status
		stored.TransactionID = txn.TransactionID
		stored.ResponseCode = txn.ResponseCode
		stored.ResponseMessage = txn.ResponseMessage
		stored.PurchasedCode = txn.PurchasedCode
		stored.Commission = txn.Commission
		stored.TotalAmount = txn.TotalAmount
		stored.TransactionDate = txn.TransactionDate
		stored.RawResponse = txn.RawResponse
		stored.UpdatedAt = time.Now()
		st.txns[txn.ID] = stored
		return nil
	})
	if err != nil {
		return err
	}
	txn.Status = status
	return nil
}

func (r *txnRepo) SetTransactionID(ctx context.Context, txn *models.Transaction, transactionID string) error {
	err := r.s.do(func(st *state) error {
		stored, ok := st.txns[txn.ID]
		if !ok {
			return apperrors.ErrTransactionNotFound
		}
		id := transactionID
		stored.TransactionID = &id
		stored.UpdatedAt = time.Now()
		st.txns[txn.ID] = stored
		return nil
	})
	if err != nil {
		return err
	}
	txn.TransactionID = &transactionID
	return nil
}

func (r *txnRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	_ = r.s.do(func(st *state) error {
		for _, t := range st.txns {
			if t.Status == models.StatusPending && t.Type == models.TransactionTypePurchase && t.CreatedAt.Before(createdBefore) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *txnRepo) ListByUser(ctx context.Context, userID uint, filter repositories.TransactionFilter) ([]models.Transaction, int64, error) {
	var all []models.Transaction
	_ = r.s.do(func(st *state) error {
		for _, t := range st.txns {
			if t.UserID != userID {
				continue
			}
			if filter.Type != "" && t.Type != filter.Type {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			all = append(all, t)
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, filter.Limit, filter.Offset), int64(len(all)), nil
}

func (r *txnRepo) CreateTransfer(ctx context.Context, transfer *models.TransferTransaction) error {
	return r.s.do(func(st *state) error {
		transfer.ID = st.id()
		transfer.CreatedAt = time.Now()
		st.transfers = append(st.transfers, *transfer)
		return nil
	})
}

func (r *txnRepo) ListTransfers(ctx context.Context, userID uint, limit, offset int) ([]models.TransferTransaction, int64, error) {
	var all []models.TransferTransaction
	_ = r.s.do(func(st *state) error {
		for i := len(st.transfers) - 1; i >= 0; i-- {
			if st.transfers[i].UserID == userID {
				all = append(all, st.transfers[i])
			}
		}
		return nil
	})
	return page(all, limit, offset), int64(len(all)), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.s.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == user.Email || u.Phone == user.Phone ||
				(user.ReferralCode != "" && u.ReferralCode == user.ReferralCode) {
				return apperrors.ErrDuplicate
			}
		}
		user.ID = st.id()
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
		if user.TokenVersion == 0 {
			user.TokenVersion = 1
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) find(match func(models.User) bool) (*models.User, error) {
	var out *models.User
	err := r.s.do(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				out = &u
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return out, err
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Phone == phone })
}

func (r *userRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ReferralCode == code })
}

func (r *userRepo) update(userID uint, fn func(u *models.User)) error {
	return r.s.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		fn(&u)
		u.UpdatedAt = time.Now()
		st.users[userID] = u
		return nil
	})
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, userID uint) error {
	return r.update(userID, func(u *models.User) { u.TokenVersion++ })
}

func (r *userRepo) UpdatePin(ctx context.Context, userID uint, pinHash string) error {
	return r.update(userID, func(u *models.User) { u.TransactionPin = pinHash })
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.update(userID, func(u *models.User) { u.LastLoginAt = &now })
}

func (r *userRepo) SetVirtualAccount(ctx context.Context, userID uint, accountNumber, bankName string) error {
	return r.update(userID, func(u *models.User) {
		u.VirtualAccount = accountNumber
		u.VirtualBank = bankName
	})
}

func (r *userRepo) AddReferralEarnings(ctx context.Context, userID uint, amount decimal.Decimal) error {
	return r.update(userID, func(u *models.User) {
		u.ReferralCount++
		u.ReferralEarnings = u.ReferralEarnings.Add(amount)
	})
}
