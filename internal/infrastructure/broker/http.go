package broker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	RequestTimeout = 10 * time.Second
	DefaultLimit   = 100
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

type rawResponse struct {
	status int
	body   []byte
}

// doGet sends a signed GET and returns the raw body. Only transport-level
// failures are returned as errors; status handling is left to the caller.
func doGet(ctx context.Context, client *http.Client, url string, headers http.Header) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
