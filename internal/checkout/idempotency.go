package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// IdempotencyCache is an advisory Redis map from idempotency keys to order
// ids. It only short-circuits database lookups; the unique constraint on
// orders stays the source of truth.
type IdempotencyCache struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Get returns the cached order id for the key, if any.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (uuid.UUID, bool) {
	if c == nil || c.R == nil {
		return uuid.Nil, false
	}
	raw, err := c.R.Get(ctx, hashKey(key)).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Put records the order id for the key. Failures are ignored.
func (c *IdempotencyCache) Put(ctx context.Context, key string, orderID uuid.UUID) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Set(ctx, hashKey(key), orderID.String(), c.TTL).Err()
}
