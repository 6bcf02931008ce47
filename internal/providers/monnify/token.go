// Package monnify talks to the Monnify API: it keeps a short-lived access
// token and creates reserved (virtual) bank accounts.
package monnify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
	"tekpay/internal/repositories/cache"
)

const (
	name     = "monnify"
	tokenKey = "monnify:access_token"
	// tokens are refreshed this long before Monnify expires them
	expirySkew = 60 * time.Second
)

type Config struct {
	BaseURL      string
	APIKey       string
	SecretKey    string
	ContractCode string
	Timeout      time.Duration
}

// Credential is an access token with the instant it stops being usable.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c *Credential) valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// TokenSource hands out a valid access token, logging in again when the
// cached one expired. Concurrent refreshes are serialized.
type TokenSource struct {
	cfg   Config
	http  *http.Client
	store cache.KeyedStore
	now   func() time.Time

	mu      sync.Mutex
	current *Credential
}

func NewTokenSource(cfg Config, httpClient *http.Client, store cache.KeyedStore) *TokenSource {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TokenSource{cfg: cfg, http: httpClient, store: store, now: time.Now}
}

// GetValidToken returns a token valid for at least the next minute.
func (s *TokenSource) GetValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.current.valid(now) {
		return s.current.AccessToken, nil
	}
	if s.store != nil {
		var cached Credential
		if found, err := s.store.Get(ctx, tokenKey, &cached); err == nil && found && cached.valid(now) {
			s.current = &cached
			return cached.AccessToken, nil
		}
	}

	cred, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.current = cred
	if s.store != nil {
		_ = s.store.SetWithTTL(ctx, tokenKey, cred, cred.ExpiresAt.Sub(now))
	}
	return cred.AccessToken, nil
}

type loginResponse struct {
	RequestSuccessful bool   `json:"requestSuccessful"`
	ResponseMessage   string `json:"responseMessage"`
	ResponseCode      string `json:"responseCode"`
	ResponseBody      struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	} `json:"responseBody"`
}

func (s *TokenSource) login(ctx context.Context) (*Credential, error) {
	req, err := providers.NewRequest(ctx, http.MethodPost, s.cfg.BaseURL+"/api/v1/auth/login", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.APIKey, s.cfg.SecretKey)

	status, body, err := providers.Do(s.http, req)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: name, Message: "auth request failed", Err: err}
	}

	var resp loginResponse
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil || !providers.Success(status) || !resp.RequestSuccessful {
		msg := resp.ResponseMessage
		if msg == "" {
			msg = fmt.Sprintf("auth failed with status %d", status)
		}
		return nil, &apperrors.ProviderError{Provider: name, Message: msg, StatusCode: status, Body: body, Err: jsonErr}
	}

	return &Credential{
		AccessToken: resp.ResponseBody.AccessToken,
		ExpiresAt:   s.now().Add(time.Duration(resp.ResponseBody.ExpiresIn)*time.Second - expirySkew),
	}, nil
}
