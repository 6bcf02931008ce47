package handlers

import (
	"errors"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/services/auth"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  auth.Service
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthHandler(authService auth.Service, secureCookie bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// LoginUser authenticates with email or phone and returns a JWT pair.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}

	identifier := input.Email
	if identifier == "" {
		identifier = input.Phone
	}
	if identifier == "" || input.Password == "" {
		return response.Error(c, apperrors.Validation("identifier", "email or phone and password are required"))
	}

	user, accessToken, refreshToken, err := h.authService.Login(c.UserContext(), identifier, input.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			return response.Fail(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
		}
		h.logger.Error("login failed", zap.Error(err))
		return response.Error(c, err)
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return response.Success(c, "Login successful", fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
			"has_pin":    user.HasPin(),
		},
	})
}

// RefreshToken handles token refresh requests
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	// First try to get token from cookies
	refreshToken := c.Cookies("refresh_token")

	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err != nil {
			return response.Fail(c, fiber.StatusUnauthorized, "Refresh token not provided", nil)
		}
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return response.Fail(c, fiber.StatusUnauthorized, "Refresh token not provided", nil)
	}

	newAccessToken, newRefreshToken, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		h.logger.Debug("token refresh failed", zap.Error(err))
		return response.Fail(c, fiber.StatusUnauthorized, "Invalid refresh token", nil)
	}

	h.setAuthCookies(c, newAccessToken, newRefreshToken)

	return response.Success(c, "Token refreshed", fiber.Map{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

// LogoutUser bumps the token version so every issued token stops working.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.authService.Logout(c.UserContext(), claims.UserID); err != nil {
		h.logger.Error("logout failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return response.Error(c, err)
	}

	expired := time.Now().Add(-time.Hour)
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  expired,
			HTTPOnly: true,
			Secure:   h.secureCookie,
			Path:     "/",
		})
	}

	return response.Success(c, "Successfully logged out", nil)
}

// SetPin sets or replaces the transaction PIN after a password check.
func (h *AuthHandler) SetPin(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Password string `json:"password"`
		Pin      string `json:"pin"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}

	if err := h.authService.SetPin(c.UserContext(), claims.UserID, input.Password, input.Pin); err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			return response.Fail(c, fiber.StatusUnauthorized, "Incorrect password", nil)
		}
		return response.Error(c, err)
	}

	return response.Success(c, "Transaction PIN set successfully", nil)
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Expires:  time.Now().Add(utils.AccessTokenTTL),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Strict",
		Path:     "/",
	})

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Expires:  time.Now().Add(utils.RefreshTokenTTL),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Strict",
		Path:     "/api/auth/refresh",
	})
}
