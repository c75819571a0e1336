package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/apiclient"
)

var ErrNetwork = apiclient.ErrNetwork

// Client reads and writes one merchant's orders.
type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL, merchantID string, timeout time.Duration) *Client {
	return &Client{
		api: apiclient.New(baseURL, "order service", timeout, map[string]string{"X-Merchant-ID": merchantID}),
	}
}

func (c *Client) ListActive(ctx context.Context) ([]d.Order, error) {
	var orders []d.Order
	if err := c.api.Do(ctx, http.MethodGet, "/api/v1/orders?active=true", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderID string, status d.OrderStatus) (*d.Order, error) {
	var resp d.UpdateOrderStatusResponse
	path := "/api/v1/orders/" + url.PathEscape(orderID) + "/status"
	if err := c.api.Do(ctx, http.MethodPatch, path, nil, d.UpdateOrderStatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("status update for %s not acknowledged", orderID)
	}
	return resp.Order, nil
}
