package settlement

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockBiller struct {
	mock.Mock
}

func (m *MockBiller) Pay(ctx context.Context, req vtpass.PayRequest) (*providers.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*providers.Response)
	return resp, args.Error(1)
}

func (m *MockBiller) Requery(ctx context.Context, requestID string) (*providers.Response, error) {
	args := m.Called(ctx, requestID)
	resp, _ := args.Get(0).(*providers.Response)
	return resp, args.Error(1)
}

type MockPayouts struct {
	mock.Mock
}

func (m *MockPayouts) InitiateTransfer(ctx context.Context, req flutterwave.TransferRequest) (*flutterwave.Transfer, error) {
	args := m.Called(ctx, req)
	tr, _ := args.Get(0).(*flutterwave.Transfer)
	return tr, args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Transaction
}

func (n *recordingNotifier) NotifyTransaction(_ context.Context, _ uint, txn *models.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, *txn)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func response(code string, outcome providers.Outcome) *providers.Response {
	return &providers.Response{
		Code:          code,
		Outcome:       outcome,
		Message:       vtpass.Message(code),
		ProviderTxnID: "17400000001",
		Raw:           []byte(`{"code":"` + code + `"}`),
	}
}

func airtime(userID uint, amount int64) PurchaseRequest {
	return PurchaseRequest{
		UserID:    userID,
		Category:  models.CategoryAirtime,
		ServiceID: "mtn",
		Amount:    decimal.NewFromInt(amount),
		Phone:     "08031234567",
	}
}

type fixture struct {
	store    *memory.Store
	biller   *MockBiller
	payouts  *MockPayouts
	notifier *recordingNotifier
	svc      *Service
	userID   uint
}

func newFixture(balance int64) *fixture {
	f := &fixture{
		store:    memory.NewStore(),
		biller:   new(MockBiller),
		payouts:  new(MockPayouts),
		notifier: &recordingNotifier{},
	}
	f.userID = f.store.SeedUser(models.User{Email: "ada@example.com", FirstName: "Ada"}, decimal.NewFromInt(balance))
	f.svc = NewService(f.store, f.biller, f.payouts, f.notifier, zap.NewNop(), nil)
	return f
}

func (f *fixture) balance() decimal.Decimal {
	return f.store.Balance(f.userID)
}

func TestExecutePurchase(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		setupMock    func(*MockBiller)
		wantErr      func(*testing.T, error)
		wantBalance  int64
		wantRows     int
		wantStatus   string
		wantRequery  bool
		wantNotifies int
	}{
		{
			name:   "success debits the wallet",
			amount: 2000,
			setupMock: func(b *MockBiller) {
				b.On("Pay", mock.Anything, mock.MatchedBy(func(r vtpass.PayRequest) bool {
					return r.ServiceID == "mtn" && r.Amount.Equal(decimal.NewFromInt(2000))
				})).Return(response("000", providers.OutcomeSuccess), nil).Once()
			},
			wantBalance:  3000,
			wantRows:     1,
			wantStatus:   models.StatusSuccess,
			wantNotifies: 1,
		},
		{
			name:   "processing records a pending row",
			amount: 2000,
			setupMock: func(b *MockBiller) {
				b.On("Pay", mock.Anything, mock.Anything).Return(response("099", providers.OutcomeProcessing), nil).Once()
			},
			wantBalance:  5000,
			wantRows:     1,
			wantStatus:   models.StatusPending,
			wantRequery:  true,
			wantNotifies: 1,
		},
		{
			name:   "classified failure records a failed row",
			amount: 2000,
			setupMock: func(b *MockBiller) {
				b.On("Pay", mock.Anything, mock.Anything).Return(response("016", providers.OutcomeFailure), nil).Once()
			},
			wantErr: func(t *testing.T, err error) {
				var pe *apperrors.ProviderError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "016", pe.Code)
				assert.Equal(t, "Transaction failed", pe.Message)
				assert.Equal(t, 400, apperrors.StatusCode(err))
			},
			wantBalance: 5000,
			wantRows:    1,
			wantStatus:  models.StatusFailed,
		},
		{
			name:   "provider unreachable records nothing",
			amount: 2000,
			setupMock: func(b *MockBiller) {
				b.On("Pay", mock.Anything, mock.Anything).Return(nil, &apperrors.ProviderError{
					Provider:   "vtpass",
					Message:    "unexpected status 503",
					StatusCode: 503,
					Body:       []byte("upstream down"),
				}).Once()
			},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, 502, apperrors.StatusCode(err))
			},
			wantBalance: 5000,
		},
		{
			name:      "insufficient funds never calls the biller",
			amount:    6000,
			setupMock: func(b *MockBiller) {},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
			},
			wantBalance: 5000,
		},
		{
			name:      "invalid amount never calls the biller",
			amount:    10,
			setupMock: func(b *MockBiller) {},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, 422, apperrors.StatusCode(err))
			},
			wantBalance: 5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5000)
			tt.setupMock(f.biller)

			result, err := f.svc.ExecutePurchase(context.Background(), airtime(f.userID, tt.amount))
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRequery, result.ShouldRequery)
				assert.Equal(t, tt.wantStatus, result.Transaction.Status)
			}

			assert.True(t, f.balance().Equal(decimal.NewFromInt(tt.wantBalance)), "balance %s", f.balance())
			rows := f.store.AllTransactions()
			require.Len(t, rows, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Equal(t, tt.wantStatus, rows[0].Status)
			}
			assert.Equal(t, tt.wantNotifies, f.notifier.count())
			f.biller.AssertExpectations(t)
		})
	}
}

func TestExecutePurchase_SuccessBalance(t *testing.T) {
	f := newFixture(5000)
	f.biller.On("Pay", mock.Anything, mock.Anything).Return(response("000", providers.OutcomeSuccess), nil)

	result, err := f.svc.ExecutePurchase(context.Background(), airtime(f.userID, 2000))
	require.NoError(t, err)
	require.NotNil(t, result.Balance)
	assert.True(t, result.Balance.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, "17400000001", result.Transaction.ProviderTxnID())
	assert.Regexp(t, `^TRX\d{14}[A-Za-z0-9]{6}$`, result.Transaction.Reference)
	assert.Equal(t, "MTN Airtime", result.Transaction.ProductName)
}

func TestExecutePurchase_ConcurrentFullBalance(t *testing.T) {
	f := newFixture(5000)
	f.biller.On("Pay", mock.Anything, mock.Anything).Return(response("000", providers.OutcomeSuccess), nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ExecutePurchase(context.Background(), airtime(f.userID, 5000))
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.True(t, f.balance().IsZero())

	debited := 0
	for _, row := range f.store.AllTransactions() {
		if row.Status == models.StatusSuccess {
			debited++
		}
	}
	assert.Equal(t, 1, debited)
}

func TestRequeryStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(5000)
	f.biller.On("Pay", mock.Anything, mock.Anything).Return(response("099", providers.OutcomeProcessing), nil).Once()

	pending, err := f.svc.ExecutePurchase(ctx, airtime(f.userID, 2000))
	require.NoError(t, err)
	require.True(t, pending.ShouldRequery)
	requestID := pending.Transaction.RequestID

	f.biller.On("Requery", mock.Anything, requestID).Return(response("000", providers.OutcomeSuccess), nil).Once()

	settled, err := f.svc.RequeryStatus(ctx, f.userID, requestID)
	require.NoError(t, err)
	assert.False(t, settled.ShouldRequery)
	assert.Equal(t, models.StatusSuccess, settled.Transaction.Status)
	assert.True(t, f.balance().Equal(decimal.NewFromInt(3000)))

	// terminal rows are returned as stored, without a second debit
	again, err := f.svc.RequeryStatus(ctx, f.userID, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, again.Transaction.Status)
	assert.True(t, f.balance().Equal(decimal.NewFromInt(3000)))

	_, err = f.svc.RequeryStatus(ctx, f.userID+100, requestID)
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)

	f.biller.AssertExpectations(t)
	assert.Equal(t, 2, f.notifier.count())
}

func TestRequeryStatus_Failed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(5000)
	f.biller.On("Pay", mock.Anything, mock.Anything).Return(response("099", providers.OutcomeProcessing), nil).Once()

	pending, err := f.svc.ExecutePurchase(ctx, airtime(f.userID, 2000))
	require.NoError(t, err)

	f.biller.On("Requery", mock.Anything, pending.Transaction.RequestID).
		Return(response("016", providers.OutcomeFailure), nil).Once()

	result, err := f.svc.RequeryStatus(ctx, f.userID, pending.Transaction.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, result.Transaction.Status)
	assert.Equal(t, "016", result.Transaction.ResponseCode)
	assert.True(t, f.balance().Equal(decimal.NewFromInt(5000)))
}

func TestRequeryStatus_DeliveredAfterWalletDrained(t *testing.T) {
	ctx := context.Background()
	f := newFixture(5000)
	f.biller.On("Pay", mock.Anything, mock.Anything).Return(response("099", providers.OutcomeProcessing), nil).Once()

	pending, err := f.svc.ExecutePurchase(ctx, airtime(f.userID, 2000))
	require.NoError(t, err)
	requestID := pending.Transaction.RequestID

	_, err = f.store.Wallets().Debit(ctx, f.userID, decimal.NewFromInt(4000))
	require.NoError(t, err)

	f.biller.On("Requery", mock.Anything, requestID).Return(response("000", providers.OutcomeSuccess), nil).Once()

	result, err := f.svc.RequeryStatus(ctx, f.userID, requestID)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.True(t, f.balance().Equal(decimal.NewFromInt(1000)))

	row, err := f.store.Transactions().GetByRequestID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, row.Status)
	assert.Equal(t, "Insufficient balance", row.ResponseMessage)
}

func TestExecutePurchase_UnreadableBillerAnswer(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":"000","content":{"transac`))
			},
		},
		{
			name: "html error page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			store := memory.NewStore()
			userID := store.SeedUser(models.User{Email: "ada@example.com"}, decimal.NewFromInt(5000))
			client := vtpass.NewClient(vtpass.Config{BaseURL: srv.URL, APIKey: "key", SecretKey: "secret"}, nil)
			svc := NewService(store, client, nil, nil, zap.NewNop(), nil)

			result, err := svc.ExecutePurchase(ctx, airtime(userID, 2000))
			require.NoError(t, err)
			assert.True(t, result.ShouldRequery)
			assert.Equal(t, models.StatusPending, result.Transaction.Status)
			assert.True(t, store.Balance(userID).Equal(decimal.NewFromInt(5000)))

			row, err := store.Transactions().GetByRequestID(ctx, result.Transaction.RequestID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusPending, row.Status)
		})
	}
}

func TestSweepPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(5000)
	old := time.Now().Add(-10 * time.Minute)

	seed := func(requestID string, createdAt time.Time) {
		require.NoError(t, f.store.Transactions().Create(ctx, &models.Transaction{
			UserID:      f.userID,
			RequestID:   requestID,
			Reference:   "TRX_" + requestID,
			Amount:      decimal.NewFromInt(1000),
			TotalAmount: decimal.NewFromInt(1000),
			Type:        models.TransactionTypePurchase,
			Category:    models.CategoryAirtime,
			Status:      models.StatusPending,
			CreatedAt:   createdAt,
		}))
	}
	seed("req-delivered", old)
	seed("req-failed", old)
	seed("req-still-pending", old)
	seed("req-unreachable", old)
	seed("req-fresh", time.Now())

	f.biller.On("Requery", mock.Anything, "req-delivered").Return(response("000", providers.OutcomeSuccess), nil).Once()
	f.biller.On("Requery", mock.Anything, "req-failed").Return(response("016", providers.OutcomeFailure), nil).Once()
	f.biller.On("Requery", mock.Anything, "req-still-pending").Return(response("099", providers.OutcomeProcessing), nil).Once()
	f.biller.On("Requery", mock.Anything, "req-unreachable").Return(nil, &apperrors.ProviderError{Provider: "vtpass", Message: "request failed"}).Once()

	result, err := f.svc.SweepPending(ctx, 2*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Checked: 4, Settled: 2, Errors: 1}, result)
	assert.True(t, f.balance().Equal(decimal.NewFromInt(4000)))

	f.biller.AssertExpectations(t)
	f.biller.AssertNotCalled(t, "Requery", mock.Anything, "req-fresh")
}

func TestBankTransfer(t *testing.T) {
	request := func(userID uint) BankTransferRequest {
		return BankTransferRequest{
			UserID:        userID,
			AccountBank:   "044",
			BankName:      "Access Bank",
			AccountNumber: "0690000031",
			AccountName:   "Ada Obi",
			Amount:        decimal.NewFromInt(1500),
			Narration:     "rent",
		}
	}

	tests := []struct {
		name        string
		balance     int64
		setupMock   func(*MockPayouts)
		wantErr     func(*testing.T, error)
		wantStatus  string
		wantBalance int64
		wantRows    int
		wantBenef   int
	}{
		{
			name:    "accepted payout is processing",
			balance: 5000,
			setupMock: func(p *MockPayouts) {
				p.On("InitiateTransfer", mock.Anything, mock.MatchedBy(func(r flutterwave.TransferRequest) bool {
					return r.AccountNumber == "0690000031" && r.Currency == "NGN"
				})).Return(&flutterwave.Transfer{ID: "190626", Status: "NEW"}, nil).Once()
			},
			wantStatus:  models.StatusProcessing,
			wantBalance: 3500,
			wantRows:    1,
			wantBenef:   1,
		},
		{
			name:    "rejected payout is refunded",
			balance: 5000,
			setupMock: func(p *MockPayouts) {
				p.On("InitiateTransfer", mock.Anything, mock.Anything).Return(nil, &apperrors.ProviderError{
					Provider:   "flutterwave",
					Message:    "Insufficient funds in customer balance",
					StatusCode: 400,
					Body:       []byte(`{"status":"error"}`),
				}).Once()
			},
			wantErr: func(t *testing.T, err error) {
				assert.Equal(t, 502, apperrors.StatusCode(err))
			},
			wantStatus:  models.StatusFailed,
			wantBalance: 5000,
			wantRows:    2,
		},
		{
			name:    "timeout stays pending",
			balance: 5000,
			setupMock: func(p *MockPayouts) {
				p.On("InitiateTransfer", mock.Anything, mock.Anything).Return(nil, &apperrors.ProviderError{
					Provider: "flutterwave",
					Message:  "request failed",
					Err:      context.DeadlineExceeded,
				}).Once()
			},
			wantStatus:  models.StatusPending,
			wantBalance: 3500,
			wantRows:    1,
		},
		{
			name:      "insufficient funds",
			balance:   1000,
			setupMock: func(p *MockPayouts) {},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
			},
			wantBalance: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.balance)
			tt.setupMock(f.payouts)

			result, err := f.svc.BankTransfer(context.Background(), request(f.userID))
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, result.Transaction.Status)
				assert.Regexp(t, `^TRF_\d+_[A-Za-z0-9]{8}$`, result.Transaction.Reference)
			}

			assert.True(t, f.balance().Equal(decimal.NewFromInt(tt.wantBalance)), "balance %s", f.balance())
			rows := f.store.AllTransactions()
			require.Len(t, rows, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Equal(t, tt.wantStatus, rows[0].Status)
			}
			if tt.wantRows == 2 {
				assert.Equal(t, models.TransactionTypeRefund, rows[1].Type)
				assert.Equal(t, rows[0].Reference+"_refund", rows[1].Reference)
			}
			assert.Len(t, f.store.AllTransfers(), tt.wantBenef)
			f.payouts.AssertExpectations(t)
		})
	}
}

func TestBankTransfer_AcceptedStoresProviderID(t *testing.T) {
	f := newFixture(5000)
	f.payouts.On("InitiateTransfer", mock.Anything, mock.Anything).
		Return(&flutterwave.Transfer{ID: "190626", Status: "NEW"}, nil).Once()

	result, err := f.svc.BankTransfer(context.Background(), BankTransferRequest{
		UserID:        f.userID,
		AccountBank:   "044",
		BankName:      "Access Bank",
		AccountNumber: "0690000031",
		AccountName:   "Ada Obi",
		Amount:        decimal.NewFromInt(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, "190626", result.Transaction.ProviderTxnID())
	assert.True(t, result.Balance.Equal(decimal.NewFromInt(3500)))

	benef := f.store.AllTransfers()
	require.Len(t, benef, 1)
	assert.Equal(t, "Ada Obi", benef[0].AccountName)
	assert.Equal(t, result.Transaction.Reference, benef[0].Reference)
}
