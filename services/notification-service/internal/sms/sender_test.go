package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSenderPostsJSON(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "tok")
	require.NoError(t, s.Send(context.Background(), "+15550100", "See you at 13:00"))
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, map[string]string{"to": "+15550100", "body": "See you at 13:00"}, got)
}

func TestWebhookSenderFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, "").Send(context.Background(), "+15550100", "hi")
	assert.ErrorContains(t, err, "502")
	assert.Error(t, NewWebhookSender("", "").Send(context.Background(), "+15550100", "hi"))
}

func TestNewPicksProvider(t *testing.T) {
	assert.Equal(t, "sms-webhook", New("webhook", "http://sms.local", "").ProviderID())
	assert.Equal(t, "sms-noop", New("", "", "").ProviderID())
	assert.Equal(t, "sms-noop", New("carrier-pigeon", "", "").ProviderID())
}
