package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/fjod/canteen/pkg/logger"
	"github.com/fjod/canteen/vendor-terminal/internal/api"
	"github.com/fjod/canteen/vendor-terminal/internal/board"
	"github.com/fjod/canteen/vendor-terminal/internal/config"
	"github.com/fjod/canteen/vendor-terminal/internal/feed"
	"github.com/fjod/canteen/vendor-terminal/internal/terminal"
	"github.com/fjod/canteen/vendor-terminal/internal/tracker"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env, "vendor-terminal")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.MerchantID == "" {
		log.Fatal("MERCHANT_ID is required")
	}
	log = log.With(zap.String("merchant_id", cfg.MerchantID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board := tracker.New(tracker.WithNotifier(func(n tracker.Notification) {
		fmt.Printf("! %s could not be moved to %s, back to %s: %v\n", n.OrderID, n.Attempted, n.Restored, n.Err)
	}))
	client := api.NewClient(cfg.ServiceURL, cfg.MerchantID, cfg.RequestTimeout)
	term := terminal.New(client, board, cfg.RefreshInterval, cfg.WriteTimeout, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		term.Run(ctx)
	}()

	if len(cfg.KafkaBrokers) > 0 {
		consumer := feed.NewConsumer(cfg.MerchantID, cfg.TerminalID, term, log, cfg.KafkaBrokers...)
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Run(ctx)
		}()
		log.Info("listening for new orders", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	go readCommands(ctx, term, stop)

	<-ctx.Done()
	log.Info("shutting down terminal")
	term.Wait()
	wg.Wait()
}

// readCommands accepts "<orderId> <STATUS>", "list" and "quit" on stdin.
func readCommands(ctx context.Context, term *terminal.Terminal, stop func()) {
	scanner := bufio.NewScanner(os.Stdin)
	printBoard(term)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 0:
			continue
		case fields[0] == "quit":
			stop()
			return
		case fields[0] == "list":
			printBoard(term)
		case len(fields) == 2:
			status := d.OrderStatus(strings.ToUpper(fields[1]))
			if !status.Valid() {
				fmt.Printf("unknown status %q\n", fields[1])
				continue
			}
			if err := term.Act(ctx, fields[0], status); err != nil {
				fmt.Printf("%s: %v\n", fields[0], err)
				continue
			}
			printBoard(term)
		default:
			fmt.Println("usage: <orderId> <STATUS> | list | quit")
		}
	}
	stop()
}

func printBoard(term *terminal.Terminal) {
	if err := board.Render(os.Stdout, term); err != nil {
		fmt.Printf("render board: %v\n", err)
	}
}
