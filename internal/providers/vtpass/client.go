// Package vtpass is the client for the VTpass bill payment API.
package vtpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
)

const name = "vtpass"

type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	PublicKey string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a VTpass client. A nil httpClient gets one with
// cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// Pay submits a purchase. A timeout, a 5xx or an unreadable 2xx body is
// reported as a Processing response rather than an error.
func (c *Client) Pay(ctx context.Context, req PayRequest) (*providers.Response, error) {
	return c.transaction(ctx, "/pay", req)
}

// Requery asks for the current state of a purchase by request id.
func (c *Client) Requery(ctx context.Context, requestID string) (*providers.Response, error) {
	return c.transaction(ctx, "/requery", map[string]string{"request_id": requestID})
}

func (c *Client) transaction(ctx context.Context, path string, payload interface{}) (*providers.Response, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, payload, true)
	if err != nil {
		if providers.IsTimeout(err) {
			return processing(status, body, true), nil
		}
		return nil, &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	}
	if status >= http.StatusInternalServerError {
		// the purchase may still have gone through
		return processing(status, body, false), nil
	}
	if !providers.Success(status) {
		return nil, &apperrors.ProviderError{
			Provider:   name,
			Message:    fmt.Sprintf("unexpected status %d", status),
			StatusCode: status,
			Body:       body,
		}
	}

	var decoded Payload
	if err := json.Unmarshal(body, &decoded); err != nil {
		return processing(status, body, false), nil
	}
	return decoded.Response(body), nil
}

// processing is the answer for a call whose outcome at the biller is
// unknown. The row stays pending until a requery or callback settles it.
func processing(status int, body []byte, timedOut bool) *providers.Response {
	msg := Message(CodeProcessing)
	if !timedOut && status != 0 {
		msg = fmt.Sprintf("%s (provider status %d)", msg, status)
	}
	return &providers.Response{
		Code:     CodeProcessing,
		Outcome:  providers.OutcomeProcessing,
		Message:  msg,
		TimedOut: timedOut,
		Raw:      rawIfJSON(body),
	}
}

func rawIfJSON(body []byte) []byte {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return body
}

// ServiceVariations returns the raw variation list of a service.
func (c *Client) ServiceVariations(ctx context.Context, serviceID string) (json.RawMessage, error) {
	path := "/service-variations?serviceID=" + url.QueryEscape(serviceID)
	return c.passthrough(ctx, http.MethodGet, path, nil)
}

// MerchantVerify validates a smartcard, meter or profile id.
func (c *Client) MerchantVerify(ctx context.Context, serviceID, billersCode, kind string) (json.RawMessage, error) {
	payload := map[string]string{"serviceID": serviceID, "billersCode": billersCode}
	if kind != "" {
		payload["type"] = kind
	}
	return c.passthrough(ctx, http.MethodPost, "/merchant-verify", payload)
}

func (c *Client) passthrough(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	status, body, err := c.do(ctx, method, path, payload, method != http.MethodGet)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	}
	if !providers.Success(status) || !json.Valid(body) {
		return nil, &apperrors.ProviderError{
			Provider:   name,
			Message:    fmt.Sprintf("unexpected status %d", status),
			StatusCode: status,
			Body:       body,
		}
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, secret bool) (int, []byte, error) {
	req, err := providers.NewRequest(ctx, method, c.cfg.BaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	if secret {
		req.Header.Set("secret-key", c.cfg.SecretKey)
	} else {
		req.Header.Set("public-key", c.cfg.PublicKey)
	}
	return providers.Do(c.http, req)
}
