package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"playerstore/pkg/player"
)

// Generation identifies the cache state a read started from. Every
// invalidation moves it forward.
type Generation int64

// PlayerCache holds the read-all payload between writes
type PlayerCache interface {
	// Get returns the cached players and the current generation. ok is false
	// on a miss; the generation is valid either way.
	Get(ctx context.Context) (players []player.Record, gen Generation, ok bool, err error)

	// Set stores players read at generation gen. Nothing is stored, and
	// stored is false, once an invalidation has moved past gen.
	Set(ctx context.Context, gen Generation, players []player.Record) (stored bool, err error)

	// Invalidate drops the cached payload and bumps the generation. Called
	// after every commit.
	Invalidate(ctx context.Context) error
}

// errStaleGeneration aborts a Set whose snapshot predates an invalidation
var errStaleGeneration = errors.New("cache generation moved")

// RedisCache implements PlayerCache with a payload key and a generation
// counter stored next to it
type RedisCache struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
}

// NewRedisCache creates a cache under key. A zero ttl keeps entries until
// the next invalidation.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		key:    key,
		genKey: key + ":gen",
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context) ([]player.Record, Generation, bool, error) {
	vals, err := c.client.MGet(ctx, c.key, c.genKey).Result()
	if err != nil {
		return nil, 0, false, err
	}

	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, false, err
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var players []player.Record
	if err := json.Unmarshal([]byte(data), &players); err != nil {
		return nil, gen, false, fmt.Errorf("failed to decode cached players: %w", err)
	}
	return players, gen, true, nil
}

func (c *RedisCache) Set(ctx context.Context, gen Generation, players []player.Record) (bool, error) {
	data, err := json.Marshal(players)
	if err != nil {
		return false, fmt.Errorf("failed to encode players: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, c.genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if Generation(cur) != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, data, c.ttl)
			return nil
		})
		return err
	}, c.genKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}

func parseGeneration(v any) (Generation, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cache generation %q: %w", s, err)
	}
	return Generation(n), nil
}

// Nop is a PlayerCache that never holds anything
type Nop struct{}

func (Nop) Get(context.Context) ([]player.Record, Generation, bool, error) { return nil, 0, false, nil }
func (Nop) Set(context.Context, Generation, []player.Record) (bool, error) { return false, nil }
func (Nop) Invalidate(context.Context) error                               { return nil }
