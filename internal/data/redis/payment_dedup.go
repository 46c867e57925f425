// Package redis keeps short-lived coordination state in Redis.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const paymentKeyPrefix = "settlement:payment:"

// PaymentDeduplicator claims incoming ledger payments so a payment redelivered by
// the broker is matched at most once
type PaymentDeduplicator struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewPaymentDeduplicator creates a deduplicator whose claims expire after ttl
func NewPaymentDeduplicator(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *PaymentDeduplicator {
	return &PaymentDeduplicator{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func paymentKey(paymentID string) string {
	return paymentKeyPrefix + paymentID
}

// Claim reports whether the caller is the first to see the payment
func (d *PaymentDeduplicator) Claim(ctx context.Context, paymentID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, paymentKey(paymentID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		d.logger.Debug("Payment already claimed", "payment_id", paymentID)
	}
	return ok, nil
}

// Release drops a claim so a redelivery of the payment is processed again
func (d *PaymentDeduplicator) Release(ctx context.Context, paymentID string) error {
	if err := d.client.Del(ctx, paymentKey(paymentID)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
