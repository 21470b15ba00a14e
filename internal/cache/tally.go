// Package cache keeps recently read like counts in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

const (
	defaultTTL = time.Minute
	// generations outlive any tally cached under them
	generationTTL = 24 * time.Hour
)

// TallyCache stores reaction tallies keyed by target. Entries expire after
// the TTL and are dropped explicitly whenever a reaction on the target
// changes.
//
// Each target also has a generation counter that Invalidate bumps. A reader
// takes the generation before counting in the database and hands it back to
// Store, which refuses to write once the generation has moved on.
type TallyCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTallyCache connects to the Redis server at redisURL.
func NewTallyCache(redisURL string, ttl time.Duration) (*TallyCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewTallyCacheWithClient(client, ttl), nil
}

func NewTallyCacheWithClient(client *redis.Client, ttl time.Duration) *TallyCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TallyCache{client: client, prefix: "likes:", ttl: ttl}
}

func (c *TallyCache) key(k reaction.Key) string {
	return c.prefix + k.String()
}

func (c *TallyCache) genKey(k reaction.Key) string {
	return c.prefix + "gen:" + k.String()
}

// Get returns the cached tally for k. The boolean is false on a miss.
func (c *TallyCache) Get(ctx context.Context, k reaction.Key) (reaction.Tally, bool, error) {
	raw, err := c.client.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return reaction.Tally{}, false, nil
	}
	if err != nil {
		return reaction.Tally{}, false, fmt.Errorf("get cached tally %s: %w", k, err)
	}

	var t reaction.Tally
	if err := json.Unmarshal(raw, &t); err != nil {
		return reaction.Tally{}, false, fmt.Errorf("decode cached tally %s: %w", k, err)
	}
	return t, true, nil
}

// Generation returns the current invalidation generation of k.
func (c *TallyCache) Generation(ctx context.Context, k reaction.Key) (int64, error) {
	gen, err := generation(ctx, c.client, c.genKey(k))
	if err != nil {
		return 0, fmt.Errorf("get tally generation %s: %w", k, err)
	}
	return gen, nil
}

// Store caches t for k if k is still at generation gen. It reports whether
// the tally was written.
func (c *TallyCache) Store(ctx context.Context, k reaction.Key, t reaction.Tally, gen int64) (bool, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("encode tally %s: %w", k, err)
	}

	genKey := c.genKey(k)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(k), raw, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// invalidated between the check and the write
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache tally %s: %w", k, err)
	}
	return stored, nil
}

// Invalidate drops the cached tally for k and moves k to a new generation,
// so tallies read before the call can no longer be stored.
func (c *TallyCache) Invalidate(ctx context.Context, k reaction.Key) error {
	genKey := c.genKey(k)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, c.key(k))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate tally %s: %w", k, err)
	}
	return nil
}

func (c *TallyCache) Close() error {
	return c.client.Close()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, r getter, key string) (int64, error) {
	gen, err := r.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}
