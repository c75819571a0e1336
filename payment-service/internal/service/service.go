package service

import (
	"context"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	g "github.com/fjod/canteen/payment-service/internal/gateway"
	r "github.com/fjod/canteen/payment-service/internal/repository"
	"github.com/fjod/canteen/pkg/idempotency"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/fjod/canteen/payment-service/internal/service")

type PaymentService interface {
	CreateIntent(ctx context.Context, userID, idempotencyKey string, req *d.CreateIntentRequest) (*d.IntentResponse, error)
	BeginCheckout(ctx context.Context, userID, intentID string) (*d.IntentResponse, error)
	GetIntent(ctx context.Context, userID, intentID string) (*d.IntentResponse, error)
	Finalize(ctx context.Context, userID string, req *d.FinalizeRequest) (*d.FinalizeResponse, error)
}

type OrderService interface {
	UpdateOrderStatus(ctx context.Context, merchantID, orderID string, status d.OrderStatus) (*d.Order, error)
	ListActiveOrders(ctx context.Context, merchantID string) ([]*d.Order, error)
}

type SignatureVerifier interface {
	Verify(gatewayOrderRef, paymentRef, signature string) bool
}

type Options struct {
	IntentTTL               time.Duration
	MaxVerificationAttempts int
	GatewayTimeout          time.Duration
	Now                     func() time.Time
	NewID                   func() string
}

func (o *Options) withDefaults() {
	if o.IntentTTL <= 0 {
		o.IntentTTL = 30 * time.Minute
	}
	if o.MaxVerificationAttempts <= 0 {
		o.MaxVerificationAttempts = 5
	}
	if o.GatewayTimeout <= 0 {
		o.GatewayTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
}

type gatewayClient struct {
	client  g.OrderCreator
	timeout time.Duration
}

type PaymentServiceImpl struct {
	repo     r.RepoInterface
	cache    idempotency.Cache
	gateway  gatewayClient
	verifier SignatureVerifier
	opts     Options
	log      *zap.Logger
}

func NewPaymentService(
	repo r.RepoInterface,
	cache idempotency.Cache,
	gateway g.OrderCreator,
	verifier SignatureVerifier,
	log *zap.Logger,
	opts Options) *PaymentServiceImpl {

	opts.withDefaults()
	return &PaymentServiceImpl{
		repo:     repo,
		cache:    cache,
		gateway:  gatewayClient{client: gateway, timeout: opts.GatewayTimeout},
		verifier: verifier,
		opts:     opts,
		log:      log,
	}
}

func (s *PaymentServiceImpl) response(intent *d.PaymentIntent) *d.IntentResponse {
	return d.NewIntentResponse(intent, s.gateway.client.KeyID())
}

// idle reports whether the intent outlived the inactivity window.
func (s *PaymentServiceImpl) idle(intent *d.PaymentIntent) bool {
	return intent.State.IsOpen() && intent.IdleSince(s.opts.Now().Add(-s.opts.IntentTTL))
}
