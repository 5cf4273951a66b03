// Package cache remembers provider webhook events that were already applied.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger hands out one claim per event id. A claim is released when the
// event could not be applied so the provider's retry gets processed.
type Ledger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
	Close() error
}

type redisLedger struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

func NewRedisLedger(addr, serviceName string, ttl time.Duration) Ledger {
	return &redisLedger{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
		ttl:         ttl,
	}
}

func (r *redisLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	return r.client.SetNX(ctx, r.key(eventID), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}

func (r *redisLedger) Release(ctx context.Context, eventID string) error {
	return r.client.Del(ctx, r.key(eventID)).Err()
}

func (r *redisLedger) Close() error { return r.client.Close() }

func (r *redisLedger) key(eventID string) string {
	return eventKey(r.serviceName, eventID)
}

func eventKey(serviceName, eventID string) string {
	return fmt.Sprintf("%s:webhook:%s", serviceName, eventID)
}

// NopLedger grants every claim. Store-level status checks still keep
// reconciliation idempotent without it.
type NopLedger struct{}

func (NopLedger) Claim(context.Context, string) (bool, error) { return true, nil }
func (NopLedger) Release(context.Context, string) error       { return nil }
func (NopLedger) Close() error                                { return nil }
