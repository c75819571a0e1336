package gateway

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
	"github.com/fjod/canteen/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// errRejected marks 4xx answers; they do not count against the breaker.
var errRejected = errors.New("gateway rejected request")

type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	breaker   *circuitbreaker.Breaker[*Order]
	log       *zap.Logger
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration, log *zap.Logger) *RazorpayClient {
	breaker := circuitbreaker.New[*Order](circuitbreaker.DefaultSettings("razorpay-orders"), log,
		func(err error) bool { return err == nil || errors.Is(err, errRejected) })
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		log:     log,
	}
}

func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a gateway order. Any failure is reported as ErrGatewayUnavailable.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinorUnits < 1 {
		return nil, fmt.Errorf("%w: amount must be at least 1", d.ErrValidation)
	}

	order, err := c.breaker.Execute(func() (*Order, error) {
		return c.createOrder(ctx, req)
	})
	if err != nil {
		c.log.Warn("gateway order creation failed",
			zap.String("receipt", req.Receipt),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", d.ErrGatewayUnavailable, err)
	}
	return order, nil
}

func (c *RazorpayClient) createOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(createOrderBody{
		Amount:   req.AmountMinorUnits,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send order request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var ge gatewayError
		_ = json.Unmarshal(data, &ge)
		if resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %d %s %s", errRejected, resp.StatusCode, ge.Error.Code, ge.Error.Description)
		}
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned an order without id")
	}
	return &order, nil
}
