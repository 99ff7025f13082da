package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/pkg/httpclient"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/rs/zerolog/log"
)

type textMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Client talks to the WhatsApp HTTP gateway. With no base URL configured
// every send is logged and dropped.
type Client struct {
	config config.WhatsAppConfig
}

func CreateWhatsAppClient(conf config.WhatsAppConfig) *Client {
	conf.BaseURL = strings.TrimRight(conf.BaseURL, "/")
	return &Client{config: conf}
}

func (c *Client) Send(ctx context.Context, phone, text string) error {
	phone = utils.NormalizePhoneNumber(phone)
	if c.config.BaseURL == "" {
		log.Ctx(ctx).Info().Str("component", "WhatsAppSend").Str("phone", phone).Msg("whatsapp gateway not configured, message skipped")
		return nil
	}

	body, err := json.Marshal(textMessage{Phone: phone, Message: text})
	if err != nil {
		return err
	}

	return c.post(ctx, "/send-message", body, "application/json")
}

func (c *Client) SendDocument(ctx context.Context, phone, filePath, caption string) error {
	phone = utils.NormalizePhoneNumber(phone)
	if c.config.BaseURL == "" {
		log.Ctx(ctx).Info().Str("component", "WhatsAppSendDocument").Str("phone", phone).Str("file", filePath).Msg("whatsapp gateway not configured, document skipped")
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("phone", phone); err != nil {
		return err
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("document", filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return c.post(ctx, "/send-document", buf.Bytes(), writer.FormDataContentType())
}

func (c *Client) post(ctx context.Context, path string, body []byte, contentType string) error {
	statusCode, respBody, err := httpclient.SendRequest(ctx, httpclient.HttpRequest{
		URL:    c.config.BaseURL + path,
		Method: http.MethodPost,
		Body:   body,
		Headers: map[string]string{
			"Content-Type":  contentType,
			"Authorization": c.config.Token,
		},
		Timeout: c.config.Timeout,
	})
	if err != nil {
		return fmt.Errorf("whatsapp gateway: %w", err)
	}
	if statusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("whatsapp gateway returned %d: %s", statusCode, string(respBody))
	}

	return nil
}
