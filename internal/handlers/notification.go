package handlers

import (
	"context"
	"strconv"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// Inbox reads and updates stored notifications and push devices.
type Inbox interface {
	List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) error
	RegisterDevice(ctx context.Context, userID uint, token, platform string) error
	RemoveDevice(ctx context.Context, userID uint, token string) error
}

type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := utils.GetPagination(c, 1, 20)
	items, total, err := h.inbox.List(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	p.SetTotal(total)

	return response.Success(c, "Notifications retrieved", utils.NewPaginatedResponse(items, p))
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	count, err := h.inbox.UnreadCount(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Unread count retrieved", fiber.Map{"count": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.Error(c, apperrors.Validation("id", "must be a number"))
	}

	if err := h.inbox.MarkRead(c.UserContext(), claims.UserID, uint(id)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.inbox.MarkAllRead(c.UserContext(), claims.UserID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "All notifications marked as read", nil)
}

type deviceInput struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterDevice(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input deviceInput
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}
	if input.Token == "" {
		return response.Error(c, apperrors.Validation("token", "is required"))
	}

	if err := h.inbox.RegisterDevice(c.UserContext(), claims.UserID, input.Token, input.Platform); err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Device registered", nil)
}

func (h *NotificationHandler) RemoveDevice(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input deviceInput
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}
	if input.Token == "" {
		return response.Error(c, apperrors.Validation("token", "is required"))
	}

	if err := h.inbox.RemoveDevice(c.UserContext(), claims.UserID, input.Token); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Device removed", nil)
}
