package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/providers/stripe"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Transaction
}

func (n *recordingNotifier) NotifyTransaction(_ context.Context, _ uint, txn *models.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, *txn)
}

type MockStripe struct {
	mock.Mock
}

func (m *MockStripe) ParseEvent(payload []byte, signature string) (*stripe.Event, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*stripe.Event)
	return ev, args.Error(1)
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	stripe   *MockStripe
	svc      *Service
	userID   uint
}

func newFixture(balance int64) *fixture {
	f := &fixture{
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		stripe:   new(MockStripe),
	}
	f.userID = f.store.SeedUser(models.User{Email: "ada@example.com", Phone: "08031234567"}, decimal.NewFromInt(balance))
	f.svc = NewService(f.store, f.notifier, f.stripe, zap.NewNop(), nil)
	return f
}

func (f *fixture) seed(t *testing.T, row models.Transaction) {
	t.Helper()
	row.UserID = f.userID
	if row.RequestID == "" {
		row.RequestID = "REQ_" + row.Reference
	}
	require.NoError(t, f.store.Transactions().Create(context.Background(), &row))
}

func (f *fixture) row(t *testing.T, reference string) *models.Transaction {
	t.Helper()
	row, err := f.store.Transactions().GetByReference(context.Background(), reference)
	require.NoError(t, err)
	return row
}

func (f *fixture) assertBalance(t *testing.T, want int64) {
	t.Helper()
	got := f.store.Balance(f.userID)
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "balance %s, want %d", got, want)
}

func flutterwaveEvent(t *testing.T, body string) flutterwave.Event {
	t.Helper()
	var ev flutterwave.Event
	require.NoError(t, json.Unmarshal([]byte(body), &ev))
	return ev
}

func vtpassEvent(t *testing.T, body string) (vtpass.Event, []byte) {
	t.Helper()
	var ev vtpass.Event
	require.NoError(t, json.Unmarshal([]byte(body), &ev))
	return ev, []byte(body)
}

func payoutRow(reference, status string, amount int64) models.Transaction {
	return models.Transaction{
		Reference:   reference,
		Amount:      decimal.NewFromInt(amount),
		TotalAmount: decimal.NewFromInt(amount),
		Type:        models.TransactionTypeTransfer,
		Category:    models.CategoryBankTransfer,
		Status:      status,
		Platform:    "flutterwave",
	}
}

const transferFailed = `{
	"event": "transfer.completed",
	"event.type": "Transfer",
	"data": {"id": 190626, "reference": "TRF_123", "amount": 1500, "status": "FAILED", "complete_message": "DISBURSE FAILED: Insufficient funds"}
}`

func TestHandleFlutterwave_PayoutFailedAfterSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(3500)
	f.seed(t, payoutRow("TRF_123", models.StatusSuccess, 1500))

	result, err := f.svc.HandleFlutterwave(ctx, flutterwaveEvent(t, transferFailed))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, result.Status)

	f.assertBalance(t, 5000)
	assert.Equal(t, models.StatusFailed, f.row(t, "TRF_123").Status)
	refund := f.row(t, "TRF_123_refund")
	assert.Equal(t, models.TransactionTypeRefund, refund.Type)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(1500)))

	// redelivery changes nothing
	result, err = f.svc.HandleFlutterwave(ctx, flutterwaveEvent(t, transferFailed))
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, result.Status)
	f.assertBalance(t, 5000)
	assert.Len(t, f.store.AllTransactions(), 2)
	assert.Len(t, f.notifier.sent, 1)
}

func TestHandleFlutterwave_Payout(t *testing.T) {
	tests := []struct {
		name        string
		rowStatus   string
		eventStatus string
		wantResult  string
		wantStatus  string
		wantBalance int64
		wantRows    int
	}{
		{name: "success completes processing", rowStatus: models.StatusProcessing, eventStatus: "SUCCESSFUL", wantResult: StatusProcessed, wantStatus: models.StatusSuccess, wantBalance: 3500, wantRows: 1},
		{name: "success completes pending", rowStatus: models.StatusPending, eventStatus: "successful", wantResult: StatusProcessed, wantStatus: models.StatusSuccess, wantBalance: 3500, wantRows: 1},
		{name: "success is idempotent", rowStatus: models.StatusSuccess, eventStatus: "SUCCESSFUL", wantResult: StatusDuplicate, wantStatus: models.StatusSuccess, wantBalance: 3500, wantRows: 1},
		{name: "failed refunds processing", rowStatus: models.StatusProcessing, eventStatus: "FAILED", wantResult: StatusProcessed, wantStatus: models.StatusFailed, wantBalance: 5000, wantRows: 2},
		{name: "reversed refunds processing as failed", rowStatus: models.StatusProcessing, eventStatus: "REVERSED", wantResult: StatusProcessed, wantStatus: models.StatusFailed, wantBalance: 5000, wantRows: 2},
		{name: "reversed after success", rowStatus: models.StatusSuccess, eventStatus: "REVERSED", wantResult: StatusProcessed, wantStatus: models.StatusReversed, wantBalance: 5000, wantRows: 2},
		{name: "failed row stays failed", rowStatus: models.StatusFailed, eventStatus: "FAILED", wantResult: StatusDuplicate, wantStatus: models.StatusFailed, wantBalance: 3500, wantRows: 1},
		{name: "late success after refund is ignored", rowStatus: models.StatusFailed, eventStatus: "SUCCESSFUL", wantResult: StatusDuplicate, wantStatus: models.StatusFailed, wantBalance: 3500, wantRows: 1},
		{name: "non final status", rowStatus: models.StatusProcessing, eventStatus: "PENDING", wantResult: StatusIgnored, wantStatus: models.StatusProcessing, wantBalance: 3500, wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(3500)
			f.seed(t, payoutRow("TRF_9", tt.rowStatus, 1500))

			body := `{"event":"transfer.completed","event.type":"Transfer","data":{"id":"77","reference":"TRF_9","amount":1500,"status":"` + tt.eventStatus + `"}}`
			result, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, body))
			require.NoError(t, err)

			assert.Equal(t, tt.wantResult, result.Status)
			assert.Equal(t, tt.wantStatus, f.row(t, "TRF_9").Status)
			f.assertBalance(t, tt.wantBalance)
			assert.Len(t, f.store.AllTransactions(), tt.wantRows)
		})
	}
}

func TestHandleFlutterwave_UnknownReference(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, transferFailed))
	assert.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
	assert.Empty(t, f.notifier.sent)
}

func TestHandleFlutterwave_Deposit(t *testing.T) {
	deposit := func(email, status string) string {
		return `{
			"event": "charge.completed",
			"event.type": "BANK_TRANSFER_TRANSACTION",
			"data": {
				"id": 4975363,
				"tx_ref": "FLW-MOCK-7f3e",
				"amount": 5000,
				"charged_amount": 5000,
				"app_fee": 70,
				"status": "` + status + `",
				"processor_response": "success",
				"customer": {"email": "` + email + `"}
			}
		}`
	}

	t.Run("successful deposit credits once", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(1000)

		result, err := f.svc.HandleFlutterwave(ctx, flutterwaveEvent(t, deposit("ada@example.com", "successful")))
		require.NoError(t, err)
		assert.Equal(t, StatusProcessed, result.Status)
		f.assertBalance(t, 6000)

		row := f.row(t, "FLW-MOCK-7f3e")
		assert.Equal(t, models.StatusSuccess, row.Status)
		assert.Equal(t, models.TransactionTypeDeposit, row.Type)
		assert.Equal(t, "4975363", row.ProviderTxnID())
		assert.True(t, row.Commission.Equal(decimal.NewFromInt(70)))

		result, err = f.svc.HandleFlutterwave(ctx, flutterwaveEvent(t, deposit("ada@example.com", "successful")))
		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, result.Status)
		f.assertBalance(t, 6000)
		assert.Len(t, f.store.AllTransactions(), 1)
		assert.Len(t, f.notifier.sent, 1)
	})

	t.Run("failed deposit is recorded without credit", func(t *testing.T) {
		f := newFixture(1000)
		_, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, deposit("ada@example.com", "failed")))
		require.NoError(t, err)
		f.assertBalance(t, 1000)
		assert.Equal(t, models.StatusFailed, f.row(t, "FLW-MOCK-7f3e").Status)
	})

	for _, amount := range []string{"-7000", "0"} {
		t.Run("amount "+amount+" is rejected", func(t *testing.T) {
			f := newFixture(10000)
			body := strings.Replace(deposit("ada@example.com", "successful"), `"amount": 5000`, `"amount": `+amount, 1)

			result, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, body))
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "amount", verr.Field)
			assert.Empty(t, result.Status)
			f.assertBalance(t, 10000)
			assert.Empty(t, f.store.AllTransactions())
			assert.Empty(t, f.notifier.sent)
		})
	}

	t.Run("unknown customer is dropped", func(t *testing.T) {
		f := newFixture(1000)
		_, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, deposit("ghost@example.com", "successful")))
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		assert.Empty(t, f.store.AllTransactions())
	})
}

func TestHandleFlutterwave_Ignored(t *testing.T) {
	f := newFixture(0)
	result, err := f.svc.HandleFlutterwave(context.Background(), flutterwaveEvent(t, `{"event":"subscription.cancelled","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, result.Status)
}

func TestHandleVTpass(t *testing.T) {
	purchase := func(status string) models.Transaction {
		return models.Transaction{
			RequestID:   "202502281230_abc",
			Reference:   "TRX20250228123005abcdef",
			Amount:      decimal.NewFromInt(2000),
			TotalAmount: decimal.NewFromInt(2000),
			Type:        models.TransactionTypePurchase,
			Category:    models.CategoryAirtime,
			Status:      status,
		}
	}
	callback := func(code, status string) string {
		return `{"type":"transaction-update","data":{"code":"` + code + `","requestId":"202502281230_abc",` +
			`"content":{"transactions":{"status":"` + status + `","transactionId":"17409"}}}}`
	}

	tests := []struct {
		name        string
		rowStatus   string
		body        string
		wantResult  string
		wantStatus  string
		wantBalance int64
		wantRows    int
	}{
		{name: "delivered debits pending", rowStatus: models.StatusPending, body: callback("000", "delivered"), wantResult: StatusProcessed, wantStatus: models.StatusSuccess, wantBalance: 3000, wantRows: 1},
		{name: "delivered is idempotent", rowStatus: models.StatusSuccess, body: callback("000", "delivered"), wantResult: StatusDuplicate, wantStatus: models.StatusSuccess, wantBalance: 5000, wantRows: 1},
		{name: "failed closes pending", rowStatus: models.StatusPending, body: callback("016", "failed"), wantResult: StatusProcessed, wantStatus: models.StatusFailed, wantBalance: 5000, wantRows: 1},
		{name: "reversal refunds success", rowStatus: models.StatusSuccess, body: callback("040", "reversed"), wantResult: StatusProcessed, wantStatus: models.StatusReversed, wantBalance: 7000, wantRows: 2},
		{name: "reversal of pending only fails it", rowStatus: models.StatusPending, body: callback("040", "reversed"), wantResult: StatusProcessed, wantStatus: models.StatusFailed, wantBalance: 5000, wantRows: 1},
		{name: "still processing", rowStatus: models.StatusPending, body: callback("099", "pending"), wantResult: StatusDuplicate, wantStatus: models.StatusPending, wantBalance: 5000, wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5000)
			f.seed(t, purchase(tt.rowStatus))

			ev, raw := vtpassEvent(t, tt.body)
			result, err := f.svc.HandleVTpass(context.Background(), ev, raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantResult, result.Status)
			assert.Equal(t, tt.wantStatus, f.row(t, "TRX20250228123005abcdef").Status)
			f.assertBalance(t, tt.wantBalance)
			assert.Len(t, f.store.AllTransactions(), tt.wantRows)
		})
	}
}

func TestHandleVTpass_LookupByTransactionID(t *testing.T) {
	f := newFixture(5000)
	txnID := "17409"
	f.seed(t, models.Transaction{
		RequestID:     "other",
		TransactionID: &txnID,
		Reference:     "TRX1",
		Amount:        decimal.NewFromInt(500),
		TotalAmount:   decimal.NewFromInt(500),
		Type:          models.TransactionTypePurchase,
		Status:        models.StatusPending,
	})

	ev, raw := vtpassEvent(t, `{"type":"transaction-update","data":{"code":"000","requestId":"unknown",`+
		`"content":{"transactions":{"status":"delivered","transactionId":17409}}}}`)
	_, err := f.svc.HandleVTpass(context.Background(), ev, raw)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, f.row(t, "TRX1").Status)
	f.assertBalance(t, 4500)
}

func TestHandleVTpass_IgnoresOtherTypes(t *testing.T) {
	f := newFixture(0)
	ev, raw := vtpassEvent(t, `{"type":"balance-update","data":{}}`)
	result, err := f.svc.HandleVTpass(context.Background(), ev, raw)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, result.Status)
}

func TestHandleStripe(t *testing.T) {
	cardRow := models.Transaction{
		Reference:   "CARD_ABCDEF123456",
		Amount:      decimal.NewFromInt(2500),
		TotalAmount: decimal.NewFromInt(2500),
		Type:        models.TransactionTypeDeposit,
		Category:    models.CategoryCard,
		Status:      models.StatusPending,
	}

	tests := []struct {
		name        string
		setupMock   func(*MockStripe)
		wantErr     error
		wantResult  string
		wantStatus  string
		wantBalance int64
	}{
		{
			name: "succeeded credits the wallet",
			setupMock: func(m *MockStripe) {
				m.On("ParseEvent", mock.Anything, "sig").Return(&stripe.Event{
					Type:      stripe.EventPaymentSucceeded,
					IntentID:  "pi_123",
					Reference: "CARD_ABCDEF123456",
					Amount:    decimal.NewFromInt(2500),
				}, nil)
			},
			wantResult:  StatusProcessed,
			wantStatus:  models.StatusSuccess,
			wantBalance: 2500,
		},
		{
			name: "failed payment",
			setupMock: func(m *MockStripe) {
				m.On("ParseEvent", mock.Anything, "sig").Return(&stripe.Event{
					Type:           stripe.EventPaymentFailed,
					Reference:      "CARD_ABCDEF123456",
					FailureMessage: "Your card was declined.",
				}, nil)
			},
			wantResult: StatusProcessed,
			wantStatus: models.StatusFailed,
		},
		{
			name: "bad signature",
			setupMock: func(m *MockStripe) {
				m.On("ParseEvent", mock.Anything, "sig").Return(nil, errors.New("no signatures found matching"))
			},
			wantErr:    ErrInvalidSignature,
			wantStatus: models.StatusPending,
		},
		{
			name: "other event types",
			setupMock: func(m *MockStripe) {
				m.On("ParseEvent", mock.Anything, "sig").Return(&stripe.Event{Type: "charge.refunded"}, nil)
			},
			wantResult: StatusIgnored,
			wantStatus: models.StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(0)
			f.seed(t, cardRow)
			tt.setupMock(f.stripe)

			result, err := f.svc.HandleStripe(context.Background(), []byte(`{}`), "sig")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, result.Status)
			}
			assert.Equal(t, tt.wantStatus, f.row(t, "CARD_ABCDEF123456").Status)
			f.assertBalance(t, tt.wantBalance)
			f.stripe.AssertExpectations(t)
		})
	}
}
