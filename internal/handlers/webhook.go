package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/services/reconciler"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	flutterwaveHashHeader = "verif-hash"
	stripeSignatureHeader = "Stripe-Signature"
)

// Reconciler applies provider callbacks to the ledger.
type Reconciler interface {
	HandleFlutterwave(ctx context.Context, event flutterwave.Event) (reconciler.Result, error)
	HandleVTpass(ctx context.Context, event vtpass.Event, raw []byte) (reconciler.Result, error)
	HandleStripe(ctx context.Context, payload []byte, signature string) (reconciler.Result, error)
}

// WebhookHandler answers 200 to every delivery it could parse, so
// providers only retry transport failures. Failures are logged.
type WebhookHandler struct {
	reconciler      Reconciler
	flutterwaveHash string
	logger          *zap.Logger
}

func NewWebhookHandler(r Reconciler, flutterwaveHash string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		reconciler:      r,
		flutterwaveHash: flutterwaveHash,
		logger:          logger.Named("webhooks"),
	}
}

func (h *WebhookHandler) Flutterwave(c *fiber.Ctx) error {
	if !flutterwave.VerifyHash(h.flutterwaveHash, c.Get(flutterwaveHashHeader)) {
		h.logger.Warn("flutterwave webhook with bad verif-hash", zap.String("ip", c.IP()))
		return response.Fail(c, fiber.StatusUnauthorized, "Invalid signature", nil)
	}

	var event flutterwave.Event
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		h.logger.Warn("unparseable flutterwave webhook", zap.Error(err))
		return acknowledge(c, "Invalid payload")
	}

	result, err := h.reconciler.HandleFlutterwave(c.UserContext(), event)
	return h.reply(c, "flutterwave", result, err)
}

func (h *WebhookHandler) VTpass(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)

	var event vtpass.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		h.logger.Warn("unparseable vtpass webhook", zap.Error(err))
		return acknowledge(c, "Invalid payload")
	}

	result, err := h.reconciler.HandleVTpass(c.UserContext(), event, raw)
	if err == nil {
		// VTpass expects this exact acknowledgement.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"response": "success",
			"status":   result.Status,
			"message":  result.Message,
		})
	}
	return h.reply(c, "vtpass", result, err)
}

func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	result, err := h.reconciler.HandleStripe(c.UserContext(), payload, c.Get(stripeSignatureHeader))
	if errors.Is(err, reconciler.ErrInvalidSignature) {
		return response.Fail(c, fiber.StatusUnauthorized, "Invalid signature", nil)
	}
	return h.reply(c, "stripe", result, err)
}

func (h *WebhookHandler) reply(c *fiber.Ctx, source string, result reconciler.Result, err error) error {
	if err != nil {
		h.logger.Error("webhook not applied", zap.String("source", source), zap.Error(err))
		return acknowledge(c, "Webhook received but not processed")
	}
	return response.Success(c, result.Message, result)
}

func acknowledge(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(response.Envelope{Status: false, Message: message})
}
