package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/claimdesk/claims-service/internal/domain"
)

// ErrCacheMiss signals that the claim is not cached.
var ErrCacheMiss = errors.New("claim cache miss")

const claimCachePrefix = "claim:"

// ClaimCache keeps claim detail reads out of Postgres. Writers must
// invalidate after every claim mutation; the TTL is only a backstop.
type ClaimCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClaimCache builds a cache on the shared Redis client. A nil
// client yields a cache whose operations are no-ops.
func NewClaimCache(r *Redis, ttl time.Duration) *ClaimCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &ClaimCache{client: client, ttl: ttl}
}

// Get returns the cached claim or ErrCacheMiss.
func (c *ClaimCache) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	if c == nil || c.client == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, claimCachePrefix+claimID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var claim domain.Claim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return nil, ErrCacheMiss
	}
	return &claim, nil
}

// Set stores the claim under its ID.
func (c *ClaimCache) Set(ctx context.Context, claim *domain.Claim) error {
	if c == nil || c.client == nil || claim == nil {
		return nil
	}
	raw, err := json.Marshal(claim)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, claimCachePrefix+claim.ID, raw, c.ttl).Err()
}

// Invalidate drops the cached claim.
func (c *ClaimCache) Invalidate(ctx context.Context, claimID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, claimCachePrefix+claimID).Err()
}
