package adapter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
)

const (
	DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"
	bridgeName       = "canteenCheckout"
)

//go:embed checkout.html
var checkoutHTML string

var checkoutTemplate = template.Must(template.New("checkout").Parse(checkoutHTML))

// DocumentHost renders a checkout document and forwards every message the page sends
// through the named bridge function to deliver. The returned func tears the document down.
type DocumentHost interface {
	Available(ctx context.Context) bool
	Show(ctx context.Context, document, bridge string, deliver func(raw []byte)) (func() error, error)
}

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type EmbeddedMechanism struct {
	host      DocumentHost
	scriptURL string
}

func NewEmbeddedMechanism(host DocumentHost, scriptURL string) *EmbeddedMechanism {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	return &EmbeddedMechanism{host: host, scriptURL: scriptURL}
}

func (m *EmbeddedMechanism) Name() string { return "embedded" }

func (m *EmbeddedMechanism) Probe(ctx context.Context) bool {
	return m.host != nil && m.host.Available(ctx)
}

func (m *EmbeddedMechanism) Present(ctx context.Context, checkout Checkout) (Result, error) {
	doc, err := renderCheckout(checkout, m.scriptURL)
	if err != nil {
		return Result{}, err
	}

	messages := make(chan []byte, 4)
	closeDoc, err := m.host.Show(ctx, doc, bridgeName, func(raw []byte) {
		select {
		case messages <- raw:
		default:
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("show checkout document: %w", err)
	}
	defer func() { _ = closeDoc() }()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case raw := <-messages:
			result, err := parseMessage(raw)
			if errors.Is(err, errUnknownMessage) {
				continue
			}
			return result, err
		}
	}
}

func renderCheckout(checkout Checkout, scriptURL string) (string, error) {
	var buf bytes.Buffer
	err := checkoutTemplate.Execute(&buf, struct {
		MerchantName string
		ScriptURL    string
		Bridge       string
		Options      NativeOptions
	}{
		MerchantName: checkout.MerchantName,
		ScriptURL:    scriptURL,
		Bridge:       bridgeName,
		Options: NativeOptions{
			Key:         checkout.GatewayKeyID,
			Amount:      checkout.AmountMinorUnits,
			Currency:    checkout.Currency,
			Name:        checkout.MerchantName,
			Description: checkout.Description,
			OrderID:     checkout.GatewayOrderRef,
		},
	})
	if err != nil {
		return "", fmt.Errorf("render checkout document: %w", err)
	}
	return buf.String(), nil
}

var errUnknownMessage = errors.New("unknown checkout message")

func parseMessage(raw []byte) (Result, error) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Result{}, errUnknownMessage
	}

	switch msg.Type {
	case "PAYMENT_SUCCESS":
		var resp NativeResponse
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			return Failed("malformed payment response"), nil
		}
		return Success(resp.PaymentID, resp.OrderID, resp.Signature), nil
	case "PAYMENT_CANCELLED":
		var nerr NativeError
		_ = json.Unmarshal(msg.Payload, &nerr)
		return Cancelled(nerr.Description), nil
	case "PAYMENT_FAILED":
		var nerr NativeError
		_ = json.Unmarshal(msg.Payload, &nerr)
		return Failed(nerr.Description), nil
	case "CHECKOUT_ERROR":
		var nerr NativeError
		_ = json.Unmarshal(msg.Payload, &nerr)
		return Result{}, fmt.Errorf("checkout script: %s", nerr.Description)
	default:
		return Result{}, errUnknownMessage
	}
}
