package monnify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
)

// Tokens hands out bearer tokens.
type Tokens interface {
	GetValidToken(ctx context.Context) (string, error)
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens Tokens
}

func NewClient(cfg Config, httpClient *http.Client, tokens Tokens) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, tokens: tokens}
}

type ReservedAccountRequest struct {
	AccountReference string `json:"accountReference"`
	AccountName      string `json:"accountName"`
	CurrencyCode     string `json:"currencyCode"`
	ContractCode     string `json:"contractCode"`
	CustomerEmail    string `json:"customerEmail"`
	CustomerName     string `json:"customerName"`
	GetAllBanks      bool   `json:"getAllAvailableBanks"`
}

type ReservedAccount struct {
	AccountReference string        `json:"accountReference"`
	AccountName      string        `json:"accountName"`
	Accounts         []BankAccount `json:"accounts"`
}

type BankAccount struct {
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

// CreateReservedAccount provisions a virtual account for a customer.
func (c *Client) CreateReservedAccount(ctx context.Context, req ReservedAccountRequest) (*ReservedAccount, error) {
	if req.CurrencyCode == "" {
		req.CurrencyCode = "NGN"
	}
	if req.ContractCode == "" {
		req.ContractCode = c.cfg.ContractCode
	}
	req.GetAllBanks = true

	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := providers.NewRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v2/bank-transfer/reserved-accounts", req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	status, body, err := providers.Do(c.http, httpReq)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	}

	var resp struct {
		RequestSuccessful bool            `json:"requestSuccessful"`
		ResponseMessage   string          `json:"responseMessage"`
		ResponseBody      ReservedAccount `json:"responseBody"`
	}
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil || !providers.Success(status) || !resp.RequestSuccessful {
		msg := resp.ResponseMessage
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", status)
		}
		return nil, &apperrors.ProviderError{Provider: name, Message: msg, StatusCode: status, Body: body, Err: jsonErr}
	}
	return &resp.ResponseBody, nil
}
