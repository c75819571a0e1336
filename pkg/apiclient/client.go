// Package apiclient is the JSON-over-HTTP plumbing shared by the payment
// service's clients.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNetwork marks transport failures: the request may or may not have reached the service.
var ErrNetwork = errors.New("network error")

// Client sends JSON requests with a fixed set of identity headers.
type Client struct {
	baseURL string
	service string
	headers map[string]string
	http    *http.Client
}

// New builds a client for baseURL. service names the remote side in error
// messages; headers are set on every request.
func New(baseURL, service string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		service: service,
		headers: headers,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Do sends body as JSON and decodes the answer into out, which may be nil.
// Error answers carrying a known code come back wrapping the domain sentinel.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}
	return nil
}

// decodeError turns the service's error body back into the matching domain
// sentinel. A 5xx without one is treated like a transport failure.
func (c *Client) decodeError(resp *http.Response) error {
	var body d.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
		}
		return fmt.Errorf("%s returned status %d", c.service, resp.StatusCode)
	}

	detail := body.Details
	if detail == "" {
		detail = body.Error
	}
	if sentinel := d.ErrorForCode(body.Code); sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, detail)
	}
	return fmt.Errorf("%s: %s (%s)", c.service, detail, body.Code)
}
