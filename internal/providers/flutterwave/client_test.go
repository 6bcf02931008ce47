package flutterwave

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
	"tekpay/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_InitiateTransfer(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		check   func(t *testing.T, tr *Transfer, err error)
	}{
		{
			name: "queued",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v3/transfers", r.URL.Path)
				assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "TRF_1_abcdefgh", body["reference"])
				assert.Equal(t, "NGN", body["currency"])

				_, _ = w.Write([]byte(`{"status":"success","message":"Transfer Queued Successfully","data":{"id":190626,"reference":"TRF_1_abcdefgh","status":"NEW","bank_name":"ACCESS BANK NIGERIA"}}`))
			},
			check: func(t *testing.T, tr *Transfer, err error) {
				require.NoError(t, err)
				assert.Equal(t, "190626", tr.ID.String())
				assert.Equal(t, "NEW", tr.Status)
				assert.NotEmpty(t, tr.Raw)
			},
		},
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient balance","data":null}`))
			},
			check: func(t *testing.T, tr *Transfer, err error) {
				assert.Nil(t, tr)
				var pe *apperrors.ProviderError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "Insufficient balance", pe.Message)
				assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
				assert.False(t, providers.IsTimeout(err))
			},
		},
		{
			name:    "timeout",
			timeout: 20 * time.Millisecond,
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			check: func(t *testing.T, tr *Transfer, err error) {
				require.Error(t, err)
				assert.True(t, providers.IsTimeout(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test", Timeout: tt.timeout}, nil, nil)
			tr, err := client.InitiateTransfer(context.Background(), TransferRequest{
				AccountBank:   "044",
				AccountNumber: "0690000031",
				Amount:        decimal.NewFromInt(1500),
				Narration:     "rent",
				Reference:     "TRF_1_abcdefgh",
			})
			tt.check(t, tr, err)
		})
	}
}

func TestClient_BanksCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"status":"success","message":"Banks fetched successfully","data":[{"id":1,"code":"044","name":"Access Bank"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil, memory.NewKeyedStore())

	for i := 0; i < 3; i++ {
		banks, err := client.Banks(context.Background())
		require.NoError(t, err)
		require.Len(t, banks, 1)
		assert.Equal(t, "044", banks[0].Code)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestVerifyHash(t *testing.T) {
	assert.True(t, VerifyHash("", "anything"))
	assert.True(t, VerifyHash("s3cret", "s3cret"))
	assert.False(t, VerifyHash("s3cret", "other"))
}

func TestEvent_Decode(t *testing.T) {
	body := `{"event":"transfer.completed","event.type":"Transfer","data":{"id":42,"reference":"TRF_123","amount":1500,"status":"FAILED","complete_message":"DISBURSE FAILED"}}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(body), &ev))
	assert.Equal(t, EventTransferCompleted, ev.Event)
	assert.Equal(t, TypeTransfer, ev.EventType)

	var data TransferData
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, StatusFailed, data.NormalizedStatus())
	assert.True(t, data.Amount.Equal(decimal.NewFromInt(1500)))
}
