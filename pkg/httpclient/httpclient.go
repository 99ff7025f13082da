package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// HttpRequest holds the parameters of one outbound call.
type HttpRequest struct {
	URL       string
	Method    string
	Body      []byte
	Headers   map[string]string
	BasicUser string
	Timeout   time.Duration
}

var transport = otelhttp.NewTransport(http.DefaultTransport)

// SendRequest sends the request and returns the status code with the full
// body. A non-2xx status is not an error; transport failures are.
func SendRequest(ctx context.Context, req HttpRequest) (int, []byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewBuffer(req.Body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		request.Header.Set(key, value)
	}
	if req.BasicUser != "" {
		request.SetBasicAuth(req.BasicUser, "")
	}

	client := &http.Client{Transport: transport}

	response, err := client.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return response.StatusCode, body, nil
}
