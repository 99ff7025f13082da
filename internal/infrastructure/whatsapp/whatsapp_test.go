package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send-message", r.URL.Path)
		assert.Equal(t, "wa-token", r.Header.Get("Authorization"))

		var msg textMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "6281234567890", msg.Phone)
		assert.Equal(t, "halo", msg.Message)
	}))
	defer server.Close()

	client := CreateWhatsAppClient(config.WhatsAppConfig{BaseURL: server.URL + "/", Token: "wa-token", Timeout: time.Second})

	assert.NoError(t, client.Send(context.Background(), "081234567890", "halo"))
}

func TestSendDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice-TRX-1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send-document", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "6281234567890", r.FormValue("phone"))
		assert.Equal(t, "Invoice TRX-1", r.FormValue("caption"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "invoice-TRX-1.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.3", string(content))
	}))
	defer server.Close()

	client := CreateWhatsAppClient(config.WhatsAppConfig{BaseURL: server.URL, Timeout: time.Second})

	assert.NoError(t, client.SendDocument(context.Background(), "6281234567890", path, "Invoice TRX-1"))
}

func TestSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := CreateWhatsAppClient(config.WhatsAppConfig{BaseURL: server.URL, Timeout: time.Second})

	assert.ErrorContains(t, client.Send(context.Background(), "081234567890", "halo"), "502")
}

func TestSendWithoutGateway(t *testing.T) {
	client := CreateWhatsAppClient(config.WhatsAppConfig{})

	assert.NoError(t, client.Send(context.Background(), "081234567890", "halo"))
	assert.NoError(t, client.SendDocument(context.Background(), "081234567890", "/does/not/exist.pdf", ""))
}
