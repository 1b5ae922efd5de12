// Package cache keeps public listing reads out of Postgres.
//
// Only browse/detail reads go through it. The allocation engine always reads
// the store directly, so a stale entry can never admit a booking.
//
// Every listing has a generation counter next to its entry. Invalidate bumps
// it; a reader captures it with Version before loading from the store and
// Set only writes when it is unchanged, so a snapshot read before an
// invalidation is never cached after it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/student-housing/internal/config"
	"github.com/Shivanand-hulikatti/student-housing/internal/model"
)

const (
	keyPrefix = "housing:listing:"
	genSuffix = ":gen"
)

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection to Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// ListingCache stores listing snapshots as JSON with a TTL.
type ListingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	genTTL time.Duration
}

// NewListingCache wraps a Redis client.
func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ListingCache{rdb: rdb, ttl: ttl, genTTL: max(2*ttl, time.Hour)}
}

// Get returns the cached listing, or ok=false on a miss.
func (c *ListingCache) Get(ctx context.Context, id string) (*model.Listing, bool, error) {
	raw, err := c.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var l model.Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &l, true, nil
}

// Version returns the invalidation generation of a listing.
func (c *ListingCache) Version(ctx context.Context, id string) (int64, error) {
	v, err := c.rdb.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return v, nil
}

// Set stores a listing snapshot loaded at generation version. The write is
// dropped when the listing was invalidated since.
func (c *ListingCache) Set(ctx context.Context, l *model.Listing, version int64) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	gk := genKey(l.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key(l.ID), raw, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached listings and bumps their generations.
func (c *ListingCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Incr(ctx, genKey(id))
			p.Expire(ctx, genKey(id), c.genTTL)
			p.Del(ctx, key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

var errStale = errors.New("listing invalidated during read")

// Noop is used when Redis is not configured: every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (*model.Listing, bool, error) { return nil, false, nil }
func (Noop) Version(context.Context, string) (int64, error)            { return 0, nil }
func (Noop) Set(context.Context, *model.Listing, int64) error          { return nil }
func (Noop) Invalidate(context.Context, ...string) error               { return nil }

func key(id string) string {
	return keyPrefix + id
}

func genKey(id string) string {
	return keyPrefix + id + genSuffix
}
