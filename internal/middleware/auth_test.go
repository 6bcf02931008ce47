package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) Authenticate(ctx context.Context, token string) (*models.UserClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*models.UserClaims)
	return claims, args.Error(1)
}

func (m *MockAuth) VerifyPin(ctx context.Context, userID uint, pin string) error {
	return m.Called(userID, pin).Error(0)
}

func newApp(m *MockAuth) *fiber.App {
	app := fiber.New()
	mw := NewAuthMiddleware(m, nil)
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/wallet", mw.Handler, HasPermission(models.PermissionWalletRead), ok)
	app.Get("/admin", mw.Handler, AdminAuthMiddleware, ok)
	app.Post("/pay", mw.Handler, RequirePin(m), ok)
	return app
}

func userClaims(role string) *models.UserClaims {
	return &models.UserClaims{UserID: 7, Role: role, Permissions: models.GetDefaultPermissions(role)}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		pinHeader  string
		body       string
		setupMock  func(*MockAuth)
		wantStatus int
	}{
		{name: "missing header", method: "GET", path: "/wallet", setupMock: func(m *MockAuth) {}, wantStatus: 401},
		{name: "not bearer", method: "GET", path: "/wallet", header: "Token abc", setupMock: func(m *MockAuth) {}, wantStatus: 401},
		{
			name: "revoked token", method: "GET", path: "/wallet", header: "Bearer old",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "old").Return(nil, apperrors.ErrUnauthorized)
			},
			wantStatus: 401,
		},
		{
			name: "valid token", method: "GET", path: "/wallet", header: "Bearer good",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
			},
			wantStatus: 200,
		},
		{
			name: "user on admin route", method: "GET", path: "/admin", header: "Bearer good",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
			},
			wantStatus: 403,
		},
		{
			name: "admin route", method: "GET", path: "/admin", header: "Bearer root",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "root").Return(userClaims("admin"), nil)
			},
			wantStatus: 200,
		},
		{
			name: "pin from header", method: "POST", path: "/pay", header: "Bearer good", pinHeader: "1234",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
				m.On("VerifyPin", uint(7), "1234").Return(nil)
			},
			wantStatus: 200,
		},
		{
			name: "pin from body", method: "POST", path: "/pay", header: "Bearer good", body: `{"amount":"100","pin":"4321"}`,
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
				m.On("VerifyPin", uint(7), "4321").Return(nil)
			},
			wantStatus: 200,
		},
		{
			name: "missing pin", method: "POST", path: "/pay", header: "Bearer good", body: `{"amount":"100"}`,
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
			},
			wantStatus: 422,
		},
		{
			name: "wrong pin", method: "POST", path: "/pay", header: "Bearer good", pinHeader: "0000",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
				m.On("VerifyPin", uint(7), "0000").Return(apperrors.ErrInvalidPin)
			},
			wantStatus: 401,
		},
		{
			name: "locked", method: "POST", path: "/pay", header: "Bearer good", pinHeader: "1234",
			setupMock: func(m *MockAuth) {
				m.On("Authenticate", "good").Return(userClaims("user"), nil)
				m.On("VerifyPin", uint(7), "1234").Return(apperrors.ErrTransactionLocked)
			},
			wantStatus: 429,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockAuth)
			tt.setupMock(m)
			app := newApp(m)

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.pinHeader != "" {
				req.Header.Set(PinHeader, tt.pinHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			m.AssertExpectations(t)
		})
	}
}
