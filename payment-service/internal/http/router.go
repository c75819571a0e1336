package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxRequestBodySize int64
	// Simulator is mounted only when the gateway is simulated.
	Simulator *SimulatorHandler
	// Limiter is shared with the caller so it can run the idle sweep.
	// When nil a limiter is built from RateLimitRPS and RateLimitBurst.
	Limiter *RateLimiter
}

// NewRouter mounts the payment and order endpoints under /api/v1.
func NewRouter(intents *IntentsHandler, orders *OrdersHandler, log *zap.Logger, cfg RouterConfig) http.Handler {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware)
		r.Use(limiter.Middleware)

		r.Route("/payment-intents", func(r chi.Router) {
			r.Post("/", intents.CreateIntent)
			r.Post("/finalize", intents.Finalize)
			r.Get("/{intent_id}", intents.GetIntent)
			r.Post("/{intent_id}/checkout", intents.BeginCheckout)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListActiveOrders)
			r.Patch("/{order_id}/status", orders.UpdateOrderStatus)
		})
		if cfg.Simulator != nil {
			r.Post("/simulator/pay", cfg.Simulator.Pay)
		}
	})

	return otelhttp.NewHandler(r, "payment-service")
}
