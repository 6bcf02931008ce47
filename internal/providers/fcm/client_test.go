package fcm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/tekpay-app/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))

		var body struct {
			Message struct {
				Token        string            `json:"token"`
				Notification map[string]string `json:"notification"`
				Data         map[string]string `json:"data"`
			} `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "device-1", body.Message.Token)
		assert.Equal(t, "transfer success", body.Message.Notification["title"])
		assert.Equal(t, "TRF_123", body.Message.Data["reference"])

		_, _ = w.Write([]byte(`{"name":"projects/tekpay-app/messages/1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ProjectID: "tekpay-app", AccessToken: "ya29.token"}, nil)
	require.True(t, c.Enabled())

	err := c.Send(context.Background(), "device-1", "transfer success", "Your transfer of NGN 1500 was success",
		map[string]string{"reference": "TRF_123"})
	assert.NoError(t, err)
}

func TestClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ProjectID: "p", AccessToken: "t"}, nil)
	err := c.Send(context.Background(), "stale", "t", "b", nil)
	assert.Error(t, err)
}
