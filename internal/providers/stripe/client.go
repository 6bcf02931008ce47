// Package stripe wraps the Stripe payment intents used for card funding.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "tekpay/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

const name = "stripe"

// Event types handled by the reconciler
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient returns a client. backends may be nil to use Stripe's servers.
func NewClient(secretKey, webhookSecret string, backends *stripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{api: api, webhookSecret: webhookSecret}
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
	Reference    string
}

// CreatePaymentIntent starts a card charge of amount (in naira) tagged
// with the ledger reference.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, reference, email string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinor(amount)),
		Currency:           stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ReceiptEmail:       stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("reference", reference)
	params.SetIdempotencyKey(reference)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, providerError(err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       fromMinor(pi.Amount),
		Reference:    reference,
	}, nil
}

// Event is a verified payment intent webhook.
type Event struct {
	ID             string
	Type           string
	IntentID       string
	Reference      string
	Amount         decimal.Decimal
	Status         string
	FailureMessage string
	Raw            []byte
}

// ParseEvent verifies the Stripe-Signature header and decodes the intent.
func (c *Client) ParseEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid stripe signature: %w", err)
	}

	out := &Event{ID: ev.ID, Type: ev.Type, Raw: payload}
	if !strings.HasPrefix(ev.Type, "payment_intent.") || ev.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("invalid payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.Reference = pi.Metadata["reference"]
	out.Amount = fromMinor(pi.Amount)
	out.Status = string(pi.Status)
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func providerError(err error) error {
	pe := &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	if se, ok := err.(*stripe.Error); ok {
		pe.Message = se.Msg
		pe.StatusCode = se.HTTPStatusCode
		pe.Code = string(se.Code)
	}
	return pe
}
