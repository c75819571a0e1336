package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/apiclient"
)

// ErrNetwork marks transport failures: the request may or may not have reached the service.
var ErrNetwork = apiclient.ErrNetwork

// Client talks to the payment service on behalf of one customer.
type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL, userID string, timeout time.Duration) *Client {
	return &Client{
		api: apiclient.New(baseURL, "payment service", timeout, map[string]string{"X-User-ID": userID}),
	}
}

func (c *Client) CreateIntent(ctx context.Context, idempotencyKey string, req *d.CreateIntentRequest) (*d.IntentResponse, error) {
	var resp d.IntentResponse
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	if err := c.api.Do(ctx, http.MethodPost, "/api/v1/payment-intents", headers, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BeginCheckout(ctx context.Context, intentID string) (*d.IntentResponse, error) {
	var resp d.IntentResponse
	if err := c.api.Do(ctx, http.MethodPost, "/api/v1/payment-intents/"+url.PathEscape(intentID)+"/checkout", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetIntent(ctx context.Context, intentID string) (*d.IntentResponse, error) {
	var resp d.IntentResponse
	if err := c.api.Do(ctx, http.MethodGet, "/api/v1/payment-intents/"+url.PathEscape(intentID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Finalize(ctx context.Context, req *d.FinalizeRequest) (*d.FinalizeResponse, error) {
	var resp d.FinalizeResponse
	if err := c.api.Do(ctx, http.MethodPost, "/api/v1/payment-intents/finalize", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SimulatedPayment is returned by the service's simulator endpoint.
type SimulatedPayment struct {
	PaymentRef      string `json:"paymentRef"`
	GatewayOrderRef string `json:"gatewayOrderRef"`
	Signature       string `json:"signature"`
}

func (c *Client) SimulatePayment(ctx context.Context, gatewayOrderRef string) (*SimulatedPayment, error) {
	var resp SimulatedPayment
	body := map[string]string{"gatewayOrderRef": gatewayOrderRef}
	if err := c.api.Do(ctx, http.MethodPost, "/api/v1/simulator/pay", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
