package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "SB-Mid-server-key", user)
		assert.Empty(t, pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer server.Close()

	status, body, err := SendRequest(context.Background(), HttpRequest{
		URL:       server.URL,
		Method:    http.MethodPost,
		Body:      []byte(`{"a":1}`),
		Headers:   map[string]string{"Content-Type": "application/json"},
		BasicUser: "SB-Mid-server-key",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"token":"abc"}`, string(body))
}

func TestSendRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, _, err := SendRequest(context.Background(), HttpRequest{
		URL:     server.URL,
		Method:  http.MethodGet,
		Timeout: 20 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
