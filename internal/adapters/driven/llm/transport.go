package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept in messages.
const maxErrorBody = 512

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin JSON-over-HTTP client bound to one base URL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Headers    map[string]string
}

// NewClient creates a client. A nil httpClient uses one with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client, headers map[string]string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		Headers:    headers,
	}
}

// PostJSON sends body as JSON and decodes the answer into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetJSON issues a GET and decodes the answer into out. A nil out discards the body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Classify wraps err in a *domain.BackendError unless it already is one.
//
//   - deadline exceeded: ErrBackendTimeout
//   - transport failures, 502/503/504: ErrBackendUnavailable
//   - 401/403: ErrMissingCredential
//   - any other status: ErrBackendRejected
func Classify(modelID, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *domain.BackendError
	if errors.As(err, &be) {
		return err
	}

	out := &domain.BackendError{ModelID: modelID, Operation: op, Err: err}

	var status *StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = domain.ErrBackendTimeout
	case errors.Is(err, context.Canceled):
		out.Kind = domain.ErrBackendUnavailable
	case errors.As(err, &status):
		out.StatusCode = status.StatusCode
		switch status.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			out.Kind = domain.ErrBackendUnavailable
		case http.StatusUnauthorized, http.StatusForbidden:
			out.Kind = domain.ErrMissingCredential
		default:
			out.Kind = domain.ErrBackendRejected
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		out.Kind = domain.ErrBackendTimeout
	case errors.As(err, &netErr):
		out.Kind = domain.ErrBackendUnavailable
	default:
		out.Kind = domain.ErrBackendRejected
	}
	return out
}

// Rejected reports an in-band error returned with a 2xx status.
func Rejected(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrBackendRejected, msg)
}
