package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantRedis  string
	}{
		{name: "all up", checks: map[string]Check{"database": up, "redis": up}, wantStatus: fiber.StatusOK, wantRedis: "connected"},
		{name: "redis down", checks: map[string]Check{"database": up, "redis": down}, wantStatus: fiber.StatusServiceUnavailable, wantRedis: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler("1.0.0", tt.checks).HealthCheck)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeBody(t, resp.Body)
			services := body["services"].(map[string]interface{})
			assert.Equal(t, tt.wantRedis, services["redis"])
		})
	}
}
