// Package response writes the JSON envelope every endpoint answers with:
// {status, message, data?, error?}.
package response

import (
	"errors"

	apperrors "tekpay/internal/errors"

	"github.com/gofiber/fiber/v2"
)

type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Status: true, Message: message, Data: data})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Status: true, Message: message, Data: data})
}

// Fail answers status false with an explicit HTTP status.
func Fail(c *fiber.Ctx, status int, message string, detail interface{}) error {
	return c.Status(status).JSON(Envelope{Status: false, Message: message, Error: detail})
}

// InvalidBody answers a request body that could not be decoded.
func InvalidBody(c *fiber.Ctx) error {
	return Error(c, apperrors.Validation("body", "invalid request body"))
}

func Unauthorized(c *fiber.Ctx) error {
	return Fail(c, fiber.StatusUnauthorized, "Unauthorized", nil)
}

// Error maps err to its HTTP status. Provider bodies are echoed in the
// error field, internal failures are not.
func Error(c *fiber.Ctx, err error) error {
	status := apperrors.StatusCode(err)

	var ve *apperrors.ValidationError
	var pe *apperrors.ProviderError
	switch {
	case errors.As(err, &ve):
		return Fail(c, status, ve.Error(), fiber.Map{"field": ve.Field})
	case errors.As(err, &pe):
		return Fail(c, status, pe.Message, providerDetail(pe))
	case status == fiber.StatusInternalServerError:
		return Fail(c, status, "Internal server error", nil)
	default:
		return Fail(c, status, err.Error(), nil)
	}
}

func providerDetail(pe *apperrors.ProviderError) interface{} {
	detail := fiber.Map{"provider": pe.Provider}
	if pe.Code != "" {
		detail["code"] = pe.Code
	}
	if pe.StatusCode != 0 {
		detail["status_code"] = pe.StatusCode
	}
	if len(pe.Body) > 0 {
		detail["body"] = string(pe.Body)
	}
	return detail
}
