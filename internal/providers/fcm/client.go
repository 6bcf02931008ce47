// Package fcm sends push notifications through the Firebase Cloud
// Messaging HTTP v1 API.
package fcm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/providers"
)

const (
	name           = "fcm"
	defaultBaseURL = "https://fcm.googleapis.com"
)

type Config struct {
	BaseURL     string
	ProjectID   string
	AccessToken string
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// Enabled reports whether a project is configured.
func (c *Client) Enabled() bool {
	return c.cfg.ProjectID != "" && c.cfg.AccessToken != ""
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Send pushes one message to a device token.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.cfg.BaseURL, c.cfg.ProjectID)
	payload := map[string]message{
		"message": {
			Token:        token,
			Notification: notification{Title: title, Body: body},
			Data:         data,
		},
	}

	req, err := providers.NewRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	status, respBody, err := providers.Do(c.http, req)
	if err != nil {
		return &apperrors.ProviderError{Provider: name, Message: "request failed", Err: err}
	}
	if !providers.Success(status) {
		return &apperrors.ProviderError{
			Provider:   name,
			Message:    fmt.Sprintf("unexpected status %d", status),
			StatusCode: status,
			Body:       respBody,
		}
	}
	return nil
}
