package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimikegami/marketplace/payment-service/pkg/httpclient"
	"github.com/midtrans/midtrans-go"
)

// sdkTransport is the midtrans.HttpClient the SDK clients call through. It
// carries the caller's context and timeout into pkg/httpclient, and swaps
// the SDK's host for baseURL when one is configured.
type sdkTransport struct {
	ctx     context.Context
	baseURL string
	timeout time.Duration
}

type apiErrorBody struct {
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}

func (t *sdkTransport) Call(method string, target string, apiKey *string, options *midtrans.ConfigOptions, body io.Reader, result interface{}) *midtrans.Error {
	target, err := t.resolve(target)
	if err != nil {
		return &midtrans.Error{Message: "invalid midtrans url", RawError: err}
	}

	req := httpclient.HttpRequest{
		URL:    target,
		Method: method,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Timeout: t.timeout,
	}
	if apiKey != nil {
		req.BasicUser = *apiKey
	}
	if body != nil {
		req.Body, err = io.ReadAll(body)
		if err != nil {
			return &midtrans.Error{Message: "unreadable request body", RawError: err}
		}
	}

	statusCode, respBody, err := httpclient.SendRequest(t.ctx, req)
	if err != nil {
		return &midtrans.Error{Message: "midtrans is unreachable", RawError: err}
	}

	if statusCode >= http.StatusMultipleChoices {
		return &midtrans.Error{
			Message:    apiErrorMessage(statusCode, respBody),
			StatusCode: statusCode,
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &midtrans.Error{
				Message:    fmt.Sprintf("unreadable midtrans response: %v", err),
				StatusCode: statusCode,
				RawError:   err,
			}
		}
	}

	return nil
}

func (t *sdkTransport) resolve(target string) (string, error) {
	if t.baseURL == "" {
		return target, nil
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(t.baseURL, "/") + parsed.EscapedPath(), nil
}

func apiErrorMessage(statusCode int, body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.ErrorMessages) > 0 {
			return strings.Join(parsed.ErrorMessages, "; ")
		}
		if parsed.StatusMessage != "" {
			return parsed.StatusMessage
		}
	}
	return fmt.Sprintf("midtrans returned %d", statusCode)
}
