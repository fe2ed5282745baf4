// Command keuangan-feed consumes transaction events published by the
// dashboard and logs them with running totals per type.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"keuangan/internal/amqp"
	"keuangan/internal/cli"
	"keuangan/internal/log"
)

// totals accumulates amounts per transaction type across the feed's lifetime.
type totals struct {
	mu     sync.Mutex
	byType map[string]decimal.Decimal
	count  int
}

func (t *totals) add(msg *amqp.TransactionCreatedMessage) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", msg.Amount, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byType[msg.Type] = t.byType[msg.Type].Add(amount)
	t.count++
	return t.byType[msg.Type], nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.FeedEnabled() {
		logger.Error("AMQP_URL is required for the event feed")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	feedLogger := logger.WithComponent(log.ComponentFeed)
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	sums := &totals{byType: make(map[string]decimal.Decimal)}
	handler := func(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
		total, err := sums.add(msg)
		if err != nil {
			// Redelivery cannot fix a bad amount.
			feedLogger.WarnContext(ctx, "skipping event", log.FieldTxID, msg.ID, log.FieldError, err.Error())
			return nil
		}
		feedLogger.InfoContext(ctx, "transaction created",
			"session_ref", msg.SessionRef,
			log.FieldTxID, msg.ID,
			log.FieldTxType, msg.Type,
			log.FieldCategory, msg.Category,
			log.FieldAmount, msg.Amount,
			log.FieldHasPhoto, msg.HasPhoto,
			"type_total", total.StringFixed(2))
		return nil
	}

	feedLogger.Info("Starting keuangan-feed", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := client.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		feedLogger.Error("Consumer stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	feedLogger.Info("Feed stopped gracefully", log.FieldCount, sums.count)
}
