package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.uber.org/zap"
)

const DefaultTimeout = 45 * time.Second

type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what every checkout mechanism reports back. Only a success carries the triple.
type Result struct {
	Outcome         Outcome
	PaymentRef      string
	GatewayOrderRef string
	Signature       string
	Reason          string
}

func Success(paymentRef, gatewayOrderRef, signature string) Result {
	return Result{Outcome: OutcomeSuccess, PaymentRef: paymentRef, GatewayOrderRef: gatewayOrderRef, Signature: signature}
}

func Cancelled(reason string) Result {
	return Result{Outcome: OutcomeCancelled, Reason: reason}
}

func Failed(reason string) Result {
	return Result{Outcome: OutcomeFailed, Reason: reason}
}

// Checkout is the input shown to the customer by a mechanism.
type Checkout struct {
	IntentID         string
	AmountMinorUnits int64
	Currency         string
	GatewayOrderRef  string
	GatewayKeyID     string
	MerchantName     string
	Description      string
}

// Mechanism delivers the gateway checkout surface.
// Present blocks until the customer finishes or ctx is done.
type Mechanism interface {
	Name() string
	Probe(ctx context.Context) bool
	Present(ctx context.Context, checkout Checkout) (Result, error)
}

// IntentStarter prepares an intent for checkout and returns its gateway reference.
type IntentStarter interface {
	BeginCheckout(ctx context.Context, intentID string) (*d.IntentResponse, error)
}

// Adapter picks one mechanism on first use and collects payments through it.
type Adapter struct {
	intents      IntentStarter
	mechanisms   []Mechanism
	timeout      time.Duration
	merchantName string
	log          *zap.Logger

	once     sync.Once
	selected Mechanism
}

func New(intents IntentStarter, log *zap.Logger, timeout time.Duration, mechanisms ...Mechanism) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		intents:      intents,
		mechanisms:   mechanisms,
		timeout:      timeout,
		merchantName: "Canteen",
		log:          log,
	}
}

// Selected returns the mechanism chosen by the capability probe, probing on first call.
func (a *Adapter) Selected(ctx context.Context) (Mechanism, error) {
	a.once.Do(func() {
		for _, m := range a.mechanisms {
			if m.Probe(ctx) {
				a.selected = m
				a.log.Info("checkout mechanism selected", zap.String("mechanism", m.Name()))
				return
			}
		}
		a.log.Warn("no checkout mechanism available")
	})
	if a.selected == nil {
		return nil, fmt.Errorf("%w: no checkout mechanism available", d.ErrGatewayUnavailable)
	}
	return a.selected, nil
}

// CollectPayment presents checkout for an intent. The gateway reference is fixed by the
// service before anything is shown. Cancelled and failed results leave the intent open.
func (a *Adapter) CollectPayment(ctx context.Context, intentID string) (Result, error) {
	mech, err := a.Selected(ctx)
	if err != nil {
		return Result{}, err
	}

	intent, err := a.intents.BeginCheckout(ctx, intentID)
	if err != nil {
		return Result{}, err
	}
	if intent.GatewayReference == "" {
		return Result{}, fmt.Errorf("%w: intent %s has no gateway reference", d.ErrGatewayUnavailable, intentID)
	}

	presentCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := mech.Present(presentCtx, Checkout{
		IntentID:         intent.IntentID,
		AmountMinorUnits: intent.AmountMinorUnits,
		Currency:         intent.Currency,
		GatewayOrderRef:  intent.GatewayReference,
		GatewayKeyID:     intent.GatewayKeyID,
		MerchantName:     a.merchantName,
		Description:      "Order " + intent.IntentID,
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return Cancelled("checkout dismissed"), nil
		case errors.Is(presentCtx.Err(), context.DeadlineExceeded):
			return Result{}, fmt.Errorf("%w after %s", d.ErrCheckoutTimeout, a.timeout)
		default:
			return Result{}, fmt.Errorf("%w: %s: %v", d.ErrGatewayUnavailable, mech.Name(), err)
		}
	}

	if result.Outcome == OutcomeSuccess {
		switch {
		case result.PaymentRef == "" || result.Signature == "":
			return Failed("incomplete payment response"), nil
		case result.GatewayOrderRef != intent.GatewayReference:
			a.log.Warn("gateway order reference mismatch",
				zap.String("intent_id", intentID),
				zap.String("expected", intent.GatewayReference),
				zap.String("got", result.GatewayOrderRef))
			return Failed("gateway order reference mismatch"), nil
		}
	}
	return result, nil
}
