package handlers

import (
	"strings"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/services/user"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService user.Service
	logger      *zap.Logger
}

func NewUserHandler(userService user.Service, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{userService: userService, logger: logger}
}

// RegisterUser creates the account, its wallet and, when a code is given,
// credits the referrer.
func (h *UserHandler) RegisterUser(c *fiber.Ctx) error {
	var input user.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}

	created, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, "Registration successful", created)
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	u, err := h.userService.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, "Profile retrieved", fiber.Map{
		"user":    u,
		"has_pin": u.HasPin(),
	})
}

func (h *UserHandler) ReferralStats(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	stats, err := h.userService.ReferralStats(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Referral stats retrieved", stats)
}

// CreateVirtualAccount provisions the user's funding account if missing.
func (h *UserHandler) CreateVirtualAccount(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	u, err := h.userService.CreateVirtualAccount(c.UserContext(), claims.UserID)
	if err != nil {
		h.logger.Error("virtual account creation failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return response.Error(c, err)
	}

	return response.Success(c, "Virtual account ready", fiber.Map{
		"account_number": u.VirtualAccount,
		"bank_name":      u.VirtualBank,
		"account_name":   u.FullName(),
	})
}

// LookupRecipient resolves a transfer recipient by email or phone and
// returns only public fields.
func (h *UserHandler) LookupRecipient(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Query("identifier"))
	if identifier == "" {
		return response.Error(c, apperrors.Validation("identifier", "is required"))
	}

	u, err := h.userService.FindRecipient(c.UserContext(), identifier)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, "Recipient found", fiber.Map{
		"id":         u.ID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"phone":      u.Phone,
	})
}
