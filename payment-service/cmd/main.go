package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/payment-service/internal/config"
	g "github.com/fjod/canteen/payment-service/internal/gateway"
	h "github.com/fjod/canteen/payment-service/internal/http"
	"github.com/fjod/canteen/payment-service/internal/publisher"
	"github.com/fjod/canteen/payment-service/internal/repository"
	"github.com/fjod/canteen/payment-service/internal/service"
	"github.com/fjod/canteen/pkg/idempotency"
	"github.com/fjod/canteen/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env, "payment-service")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPass,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.Migration,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	if cfg.MenuSeed != "" {
		if err := seedMenu(context.Background(), repo, cfg.MenuSeed); err != nil {
			log.Fatal("failed to seed menu", zap.String("file", cfg.MenuSeed), zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	var cache idempotency.Cache = idempotency.NewRedisCache(redisClient, cfg.IdempotencyTTL)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// uniqueness still holds through the store
		log.Warn("redis unavailable, using in-process idempotency cache", zap.Error(err))
		memCache := idempotency.NewMemoryCache(cfg.IdempotencyTTL)
		defer memCache.Close()
		cache = memCache
	}

	signer := g.NewSigner(cfg.SignerSecret())
	var orderCreator g.OrderCreator
	var simulator *h.SimulatorHandler
	if cfg.Simulated() {
		sim := g.NewSimulatedGateway(signer)
		orderCreator = sim
		simulator = h.NewSimulatorHandler(sim)
		log.Warn("payment gateway is simulated")
	} else {
		orderCreator = g.NewRazorpayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout, log)
	}

	paymentService := service.NewPaymentService(repo, cache, orderCreator, signer, log, service.Options{
		IntentTTL:               cfg.IntentTTL,
		MaxVerificationAttempts: cfg.MaxVerificationAttempts,
		GatewayTimeout:          cfg.GatewayTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	poller := publisher.NewOutboxPoller(repo, paymentService, log, cfg.OutboxInterval, cfg.ExpirySweepInterval,
		strings.Split(cfg.KafkaBrokers, ",")...)
	defer poller.Close()
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	limiter := h.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	wg.Add(1)
	go func() {
		defer wg.Done()
		limiter.Run(ctx)
	}()

	router := h.NewRouter(
		h.NewIntentsHandler(paymentService, cfg.RequestTimeout, log),
		h.NewOrdersHandler(paymentService, cfg.RequestTimeout, log),
		log,
		h.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
			MaxRequestBodySize: 1 << 20,
			Simulator:          simulator,
			Limiter:            limiter,
		},
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("payment service starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down payment service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	cancel()
	wg.Wait()
	log.Info("payment service stopped")
}

// catalog is the seed file layout: merchants first, then their items.
type catalog struct {
	Merchants []domain.Merchant `json:"merchants"`
	Items     []domain.MenuItem `json:"items"`
}

func seedMenu(ctx context.Context, repo repository.MenuStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	for _, m := range c.Merchants {
		if err := repo.UpsertMerchant(ctx, m); err != nil {
			return err
		}
	}
	for _, item := range c.Items {
		if err := repo.UpsertMenuItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
