// Package flutterwave is the client for Flutterwave transfers, bank
// lookups and webhook payloads.
package flutterwave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
	"tekpay/internal/repositories/cache"

	"github.com/shopspring/decimal"
)

const (
	name     = "flutterwave"
	banksKey = "flutterwave:banks:NG"
	banksTTL = 24 * time.Hour
)

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	cfg   Config
	http  *http.Client
	cache cache.KeyedStore
}

// NewClient returns a Flutterwave client. store may be nil, in which case
// the bank list is fetched on every call.
func NewClient(cfg Config, httpClient *http.Client, store cache.KeyedStore) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, cache: store}
}

type TransferRequest struct {
	AccountBank   string          `json:"account_bank"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Narration     string          `json:"narration"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
	DebitCurrency string          `json:"debit_currency"`
}

// Transfer is the data part of an accepted transfer.
type Transfer struct {
	ID              providers.FlexString `json:"id"`
	Reference       string               `json:"reference"`
	Status          string               `json:"status"`
	BankName        string               `json:"bank_name"`
	FullName        string               `json:"full_name"`
	CompleteMessage string               `json:"complete_message"`
	Raw             []byte               `json:"-"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitiateTransfer queues a payout. Errors are *errors.ProviderError; a
// timeout can be told apart with providers.IsTimeout.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if req.Currency == "" {
		req.Currency = "NGN"
	}
	if req.DebitCurrency == "" {
		req.DebitCurrency = req.Currency
	}

	var transfer Transfer
	body, err := c.call(ctx, http.MethodPost, "/v3/transfers", req, &transfer)
	if err != nil {
		return nil, err
	}
	transfer.Raw = body
	return &transfer, nil
}

type Bank struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Banks lists Nigerian banks, cached for a day.
func (c *Client) Banks(ctx context.Context) ([]Bank, error) {
	var banks []Bank
	if c.cache != nil {
		if found, err := c.cache.Get(ctx, banksKey, &banks); err == nil && found {
			return banks, nil
		}
	}

	if _, err := c.call(ctx, http.MethodGet, "/v3/banks/NG", nil, &banks); err != nil {
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.SetWithTTL(ctx, banksKey, banks, banksTTL)
	}
	return banks, nil
}

type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount looks up the holder name of a bank account.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, accountBank string) (*ResolvedAccount, error) {
	var out ResolvedAccount
	payload := map[string]string{"account_number": accountNumber, "account_bank": accountBank}
	if _, err := c.call(ctx, http.MethodPost, "/v3/accounts/resolve", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload, dest interface{}) ([]byte, error) {
	req, err := providers.NewRequest(ctx, method, c.cfg.BaseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	status, body, err := providers.Do(c.http, req)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	}

	var env envelope
	if jsonErr := json.Unmarshal(body, &env); jsonErr != nil || !providers.Success(status) || env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", status)
		}
		return nil, &apperrors.ProviderError{
			Provider:   name,
			Message:    msg,
			StatusCode: status,
			Body:       body,
			Err:        jsonErr,
		}
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return nil, &apperrors.ProviderError{Provider: name, Message: "invalid response data", StatusCode: status, Body: body, Err: err}
		}
	}
	return body, nil
}
