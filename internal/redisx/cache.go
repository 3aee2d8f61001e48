package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"github.com/redis/go-redis/v9"
)

var ErrInProgress = errors.New("request with this idempotency key is in progress")

// OrderCache holds read-through order summaries and reservation idempotency keys.
// Postgres stays the source of truth; every method may be skipped on error.
type OrderCache struct {
	RDB *redis.Client
}

func (c *OrderCache) GetSummary(ctx context.Context, orderID string) (reservation.OrderSummary, bool, error) {
	var sum reservation.OrderSummary
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderSummary, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return sum, false, nil
	}
	if err != nil {
		return sum, false, err
	}
	if err := json.Unmarshal([]byte(s), &sum); err != nil {
		return sum, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return sum, true, nil
}

func (c *OrderCache) PutSummary(ctx context.Context, sum reservation.OrderSummary) error {
	b, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderSummary, sum.OrderID), b, TTLStatusCache).Err()
}

// DropSummary removes the cached summary so the next read loads it again.
func (c *OrderCache) DropSummary(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderSummary, orderID)).Err()
}

// Claim reserves an idempotency key for one request. When the key is already
// taken it returns the order id stored under it, or ErrInProgress while the
// first request is still running.
func (c *OrderCache) Claim(ctx context.Context, customerID, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemReservation, customerID, key)
	ok, err := c.RDB.SetNX(ctx, k, idemPending, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := c.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return "", false, ErrInProgress
	}
	if err != nil {
		return "", false, err
	}
	if v == idemPending {
		return "", false, ErrInProgress
	}
	return v, false, nil
}

func (c *OrderCache) Remember(ctx context.Context, customerID, key, orderID string) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyIdemReservation, customerID, key), orderID, TTLIdempotency).Err()
}

// Forget drops a claim after a failed reservation so the client can retry.
func (c *OrderCache) Forget(ctx context.Context, customerID, key string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyIdemReservation, customerID, key)).Err()
}

// Dedup remembers processed event ids per consumer service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen atomically marks id as seen and reports whether it was new.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Forget clears a mark so a failed event can be processed again.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
