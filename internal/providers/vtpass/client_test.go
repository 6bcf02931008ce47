package vtpass

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deliveredBody = `{
	"code": "000",
	"response_description": "TRANSACTION SUCCESSFUL",
	"requestId": "202502281200_abc",
	"amount": "2000.00",
	"transaction_date": {"date": "2025-02-28 12:00:05.000000", "timezone_type": 3, "timezone": "Africa/Lagos"},
	"purchased_code": "",
	"content": {"transactions": {
		"status": "delivered",
		"product_name": "MTN Airtime VTU",
		"amount": 2000,
		"commission": 60,
		"total_amount": 1940,
		"transactionId": 17407384044297
	}}
}`

func TestClassify(t *testing.T) {
	tests := []struct {
		code, status string
		want         providers.Outcome
	}{
		{"000", "delivered", providers.OutcomeSuccess},
		{"001", "", providers.OutcomeSuccess},
		{"044", "delivered", providers.OutcomeSuccess},
		{"040", "", providers.OutcomeSuccess},
		{"000", "pending", providers.OutcomeProcessing},
		{"000", "initiated", providers.OutcomeProcessing},
		{"000", "failed", providers.OutcomeFailure},
		{"040", "reversed", providers.OutcomeFailure},
		{"099", "", providers.OutcomeProcessing},
		{"016", "failed", providers.OutcomeFailure},
		{"018", "", providers.OutcomeFailure},
		{"999", "", providers.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code, tt.status))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Transaction failed", Message("016"))
	assert.Equal(t, "Insufficient wallet balance", Message("018"))
	assert.Equal(t, "Transaction reversed to wallet", Message("040"))
	assert.Equal(t, "Unknown response code", Message("777"))
	assert.Equal(t, "Transaction initiated", StatusText("initiated"))
}

func TestClient_Pay(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		check   func(t *testing.T, resp *providers.Response, err error)
	}{
		{
			name: "delivered",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/pay", r.URL.Path)
				assert.Equal(t, "key", r.Header.Get("api-key"))
				assert.Equal(t, "secret", r.Header.Get("secret-key"))

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "mtn", body["serviceID"])
				assert.Equal(t, "08011111111", body["phone"])

				_, _ = w.Write([]byte(deliveredBody))
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, providers.OutcomeSuccess, resp.Outcome)
				assert.Equal(t, "17407384044297", resp.ProviderTxnID)
				assert.True(t, resp.Amount.Equal(decimal.NewFromInt(2000)))
				assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(1940)))
				assert.Equal(t, "MTN Airtime VTU", resp.ProductName)
				require.NotNil(t, resp.TransactionDate)
				assert.Equal(t, 2025, resp.TransactionDate.Year())
			},
		},
		{
			name: "failure code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":"016","response_description":"TRANSACTION FAILED"}`))
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, providers.OutcomeFailure, resp.Outcome)
				assert.Equal(t, "Transaction failed", resp.Message)
			},
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("bad request"))
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				assert.Nil(t, resp)
				var pe *apperrors.ProviderError
				require.True(t, errors.As(err, &pe))
				assert.False(t, pe.Classified())
				assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
				assert.Equal(t, "bad request", string(pe.Body))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, providers.OutcomeProcessing, resp.Outcome)
				assert.Equal(t, CodeProcessing, resp.Code)
				assert.False(t, resp.TimedOut)
				assert.Nil(t, resp.Raw)
			},
		},
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":"000","content":{"transac`))
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, providers.OutcomeProcessing, resp.Outcome)
				assert.False(t, resp.TimedOut)
			},
		},
		{
			name:    "timeout",
			timeout: 20 * time.Millisecond,
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			check: func(t *testing.T, resp *providers.Response, err error) {
				require.NoError(t, err)
				assert.True(t, resp.TimedOut)
				assert.Equal(t, providers.OutcomeProcessing, resp.Outcome)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(Config{
				BaseURL:   srv.URL,
				APIKey:    "key",
				SecretKey: "secret",
				Timeout:   tt.timeout,
			}, nil)

			resp, err := client.Pay(context.Background(), PayRequest{
				RequestID: "202502281200_abc",
				ServiceID: "mtn",
				Amount:    decimal.NewFromInt(2000),
				Phone:     "08011111111",
			})
			tt.check(t, resp, err)
		})
	}
}

func TestEvent_Decode(t *testing.T) {
	body := `{"type":"transaction-update","data":` + deliveredBody + `}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(body), &ev))
	assert.Equal(t, EventTransactionUpdate, ev.Type)
	assert.Equal(t, "202502281200_abc", ev.Data.RequestID)
	assert.Equal(t, TxnDelivered, ev.Data.Content.Transactions.Status)
}
