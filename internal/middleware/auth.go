// Package middleware provides HTTP middleware components for the application.
// It includes authentication, authorization and transaction PIN checks
// used with the fiber web framework.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PinHeader carries the transaction PIN on spend endpoints.
const PinHeader = "X-Transaction-Pin"

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
}

// PinVerifier checks transaction PINs.
type PinVerifier interface {
	VerifyPin(ctx context.Context, userID uint, pin string) error
}

// AuthMiddleware handles JWT token validation and user authentication.
// It extracts the JWT token from the Authorization header, validates it,
// and adds the user claims to the request context.
type AuthMiddleware struct {
	auth   Authenticator
	logger *zap.Logger
}

func NewAuthMiddleware(auth Authenticator, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{auth: auth, logger: logger}
}

// Handler validates JWT tokens and adds claims to the request context.
// It checks for:
// - Presence of Authorization header with Bearer token
// - Valid JWT signature and expiry
// - Token version matches current user version
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Fail(c, fiber.StatusUnauthorized, "Missing authorization header", nil)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Fail(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
	}

	claims, err := m.auth.Authenticate(c.UserContext(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.logger.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
		return response.Fail(c, fiber.StatusUnauthorized, "Session expired or invalid token", nil)
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return response.Unauthorized(c)
	}
	if claims.Role != "admin" || !claims.HasPermission(models.PermissionAdmin) {
		return response.Fail(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c)
		}
		if claims.Role == "admin" || claims.HasPermission(permission) {
			return c.Next()
		}
		return response.Fail(c, fiber.StatusForbidden, "Insufficient permissions", nil)
	}
}

// RequirePin checks the transaction PIN sent in the X-Transaction-Pin
// header or the "pin" field of a JSON body.
func RequirePin(pins PinVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return response.Unauthorized(c)
		}

		pin := c.Get(PinHeader)
		if pin == "" {
			var body struct {
				Pin string `json:"pin"`
			}
			if len(c.Body()) > 0 {
				_ = json.Unmarshal(c.Body(), &body)
			}
			pin = body.Pin
		}
		if pin == "" {
			return response.Error(c, apperrors.Validation("pin", "is required"))
		}

		if err := pins.VerifyPin(c.UserContext(), claims.UserID, pin); err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTransactionLocked):
				return response.Fail(c, fiber.StatusTooManyRequests, "Too many wrong PIN attempts. Try again in 15 minutes", nil)
			case errors.Is(err, apperrors.ErrInvalidPin):
				return response.Fail(c, fiber.StatusUnauthorized, "Incorrect transaction PIN", nil)
			case errors.Is(err, apperrors.ErrPinNotSet):
				return response.Fail(c, fiber.StatusBadRequest, "Set a transaction PIN first", nil)
			}
			return response.Error(c, err)
		}
		return c.Next()
	}
}
