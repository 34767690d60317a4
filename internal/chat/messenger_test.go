package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMessenger_PostsJSON(t *testing.T) {
	var got outboundRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewWebhookMessenger(srv.URL, "tok", time.Second)
	err := m.SendMedia(context.Background(), 42, "photo-9", Message{Text: "hi", HTML: true})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "sendMedia", got.Method)
	assert.Equal(t, int64(42), got.RecipientID)
	assert.Equal(t, "photo-9", got.MediaRef)
	assert.True(t, got.Message.HTML)
}

func TestWebhookMessenger_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked by user", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhookMessenger(srv.URL, "", time.Second).SendAlert(context.Background(), 1, "x")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Status)
}
