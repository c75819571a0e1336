package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/canteen/checkout-client/internal/adapter"
	"github.com/fjod/canteen/checkout-client/internal/api"
	"github.com/fjod/canteen/checkout-client/internal/cart"
	"github.com/fjod/canteen/checkout-client/internal/config"
	"github.com/fjod/canteen/checkout-client/internal/flow"
	"github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	cartFile := flag.String("cart", "", "path to a cart JSON file")
	resume := flag.String("resume", "", "intent id to resume instead of placing a new order")
	userID := flag.String("user", cfg.UserID, "customer id sent as X-User-ID")
	mechanism := flag.String("mechanism", cfg.Mechanism, "checkout mechanism: auto, embedded or simulated")
	flag.Parse()

	log, err := logger.New(cfg.Env, "checkout-client")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *userID == "" {
		log.Fatal("a user id is required (-user or CANTEEN_USER_ID)")
	}
	if (*cartFile == "") == (*resume == "") {
		log.Fatal("exactly one of -cart or -resume is required")
	}

	client := api.NewClient(cfg.ServiceURL, *userID, cfg.RequestTimeout)

	var mechanisms []adapter.Mechanism
	var host *adapter.RodHost
	switch *mechanism {
	case "simulated":
		mechanisms = append(mechanisms, adapter.NewSimulatedMechanism(client))
	case "embedded", "auto":
		host = adapter.NewRodHost(cfg.Headless)
		mechanisms = append(mechanisms, adapter.NewEmbeddedMechanism(host, cfg.ScriptURL))
	default:
		log.Fatal("unknown checkout mechanism", zap.String("mechanism", *mechanism))
	}
	if host != nil {
		defer func() { _ = host.Close() }()
	}

	checkout := adapter.New(client, log, cfg.CheckoutTimeout, mechanisms...)
	session := flow.NewSession(client, checkout, *userID, log,
		flow.WithVerifyAttempts(cfg.VerifyAttempts),
		flow.WithBackoff(cfg.VerifyBackoff))
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var receipt flow.Receipt
	if *resume != "" {
		receipt, err = session.Resume(ctx, *resume)
	} else {
		var order *domain.CreateIntentRequest
		order, err = cart.Load(*cartFile)
		if err != nil {
			log.Fatal("failed to read cart", zap.String("file", *cartFile), zap.Error(err))
		}
		receipt, err = session.PlaceOrder(ctx, order)
	}
	if err != nil {
		log.Error("checkout failed", zap.String("intent_id", receipt.IntentID), zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(receipt); err != nil {
		log.Fatal("failed to print receipt", zap.Error(err))
	}
}
