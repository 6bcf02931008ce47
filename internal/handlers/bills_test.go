package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPurchases struct {
	mock.Mock
}

func (m *MockPurchases) ExecutePurchase(ctx context.Context, req settlement.PurchaseRequest) (*settlement.PurchaseResult, error) {
	args := m.Called(req)
	result, _ := args.Get(0).(*settlement.PurchaseResult)
	return result, args.Error(1)
}

func (m *MockPurchases) RequeryStatus(ctx context.Context, userID uint, requestID string) (*settlement.PurchaseResult, error) {
	args := m.Called(userID, requestID)
	result, _ := args.Get(0).(*settlement.PurchaseResult)
	return result, args.Error(1)
}

type MockCatalogue struct {
	mock.Mock
}

func (m *MockCatalogue) ServiceVariations(ctx context.Context, serviceID string) (json.RawMessage, error) {
	args := m.Called(serviceID)
	body, _ := args.Get(0).(json.RawMessage)
	return body, args.Error(1)
}

func (m *MockCatalogue) MerchantVerify(ctx context.Context, serviceID, billersCode, kind string) (json.RawMessage, error) {
	args := m.Called(serviceID, billersCode, kind)
	body, _ := args.Get(0).(json.RawMessage)
	return body, args.Error(1)
}

func matchPurchase(want settlement.PurchaseRequest) interface{} {
	return mock.MatchedBy(func(got settlement.PurchaseRequest) bool {
		amount := got.Amount
		got.Amount = want.Amount
		return got == want && amount.Equal(want.Amount)
	})
}

func billApp(p *MockPurchases, cat *MockCatalogue) *fiber.App {
	app := fiber.New()
	withClaims := func(c *fiber.Ctx) error {
		c.Locals("claims", &models.UserClaims{UserID: 3, Role: "user"})
		return c.Next()
	}
	h := NewBillHandler(p, cat)
	app.Post("/bills/:category", withClaims, h.Purchase)
	app.Get("/bills/requery/:requestId", withClaims, h.Requery)
	app.Get("/bills/variations", h.Variations)
	return app
}

func TestBillHandler_Purchase(t *testing.T) {
	balance := decimal.NewFromInt(3000)
	airtime := settlement.PurchaseRequest{
		UserID:    3,
		Category:  models.CategoryAirtime,
		ServiceID: "mtn",
		Amount:    decimal.NewFromInt(2000),
		Phone:     "08031234567",
	}

	tests := []struct {
		name        string
		category    string
		body        string
		setupMock   func(*MockPurchases)
		wantStatus  int
		wantRequery bool
		wantField   string
	}{
		{
			name:     "delivered",
			category: "airtime",
			body:     `{"service_id":"mtn","amount":"2000","phone":"08031234567"}`,
			setupMock: func(m *MockPurchases) {
				m.On("ExecutePurchase", matchPurchase(airtime)).Return(&settlement.PurchaseResult{
					Transaction: &models.Transaction{Reference: "REF_1", Status: models.StatusSuccess},
					Balance:     &balance,
					Message:     "Transaction processed successfully",
				}, nil)
			},
			wantStatus: fiber.StatusOK,
		},
		{
			name:     "still processing",
			category: "airtime",
			body:     `{"service_id":"mtn","amount":2000,"phone":"08031234567"}`,
			setupMock: func(m *MockPurchases) {
				m.On("ExecutePurchase", matchPurchase(airtime)).Return(&settlement.PurchaseResult{
					Transaction:   &models.Transaction{Reference: "REF_1", Status: models.StatusPending},
					ShouldRequery: true,
					Message:       "Transaction is processing",
				}, nil)
			},
			wantStatus:  fiber.StatusOK,
			wantRequery: true,
		},
		{
			name:     "insufficient funds",
			category: "airtime",
			body:     `{"service_id":"mtn","amount":"2000","phone":"08031234567"}`,
			setupMock: func(m *MockPurchases) {
				m.On("ExecutePurchase", matchPurchase(airtime)).Return(nil, apperrors.ErrInsufficientFunds)
			},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:     "provider unreachable",
			category: "airtime",
			body:     `{"service_id":"mtn","amount":"2000","phone":"08031234567"}`,
			setupMock: func(m *MockPurchases) {
				m.On("ExecutePurchase", matchPurchase(airtime)).Return(nil, &apperrors.ProviderError{Provider: "vtpass", Message: "bad gateway", StatusCode: 502})
			},
			wantStatus: fiber.StatusBadGateway,
		},
		{
			name:       "malformed body",
			category:   "airtime",
			body:       `{"service_id":"mtn","amount":`,
			setupMock:  func(m *MockPurchases) {},
			wantStatus: fiber.StatusUnprocessableEntity,
			wantField:  "body",
		},
		{
			name:       "unknown category",
			category:   "lottery",
			body:       `{"service_id":"mtn","amount":"2000"}`,
			setupMock:  func(m *MockPurchases) {},
			wantStatus: fiber.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPurchases)
			tt.setupMock(p)
			app := billApp(p, new(MockCatalogue))

			req := httptest.NewRequest("POST", "/bills/"+tt.category, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				body := decodeBody(t, resp.Body)
				data := body["data"].(map[string]interface{})
				assert.Equal(t, tt.wantRequery, data["should_requery"])
			}
			if tt.wantField != "" {
				body := decodeBody(t, resp.Body)
				assert.Equal(t, false, body["status"])
				detail := body["error"].(map[string]interface{})
				assert.Equal(t, tt.wantField, detail["field"])
			}
			p.AssertExpectations(t)
		})
	}
}

func TestBillHandler_Requery(t *testing.T) {
	p := new(MockPurchases)
	p.On("RequeryStatus", uint(3), "REQ_9").Return(nil, apperrors.ErrTransactionNotFound)
	app := billApp(p, new(MockCatalogue))

	resp, err := app.Test(httptest.NewRequest("GET", "/bills/requery/REQ_9", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	p.AssertExpectations(t)
}

func TestBillHandler_Variations(t *testing.T) {
	cat := new(MockCatalogue)
	cat.On("ServiceVariations", "dstv").Return(json.RawMessage(`{"variations":[]}`), nil)
	app := billApp(new(MockPurchases), cat)

	resp, err := app.Test(httptest.NewRequest("GET", "/bills/variations?serviceID=dstv", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/bills/variations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	cat.AssertExpectations(t)
}
