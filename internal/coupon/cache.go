package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a read-through cache in front of GetByCode.
type Cache interface {
	Get(ctx context.Context, code string) (*Coupon, bool)
	Set(ctx context.Context, c *Coupon)
	Invalidate(ctx context.Context, code string)
}

type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Coupon, bool) { return nil, false }
func (NopCache) Set(context.Context, *Coupon)                {}
func (NopCache) Invalidate(context.Context, string)          {}

// RedisCache stores coupons as JSON under "<prefix>:<code>". Redis being
// down only costs a database round trip, so errors are logged, not returned.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

var _ Cache = (*RedisCache)(nil)

func (r *RedisCache) key(code string) string {
	prefix := strings.TrimSuffix(r.prefix, ":")
	var b strings.Builder
	b.Grow(len(prefix) + 1 + len(code))
	b.WriteString(prefix)
	b.WriteString(":")
	b.WriteString(code)
	return b.String()
}

func (r *RedisCache) Get(ctx context.Context, code string) (*Coupon, bool) {
	raw, err := r.client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("[coupon] cache get")
		}
		return nil, false
	}
	var c Coupon
	if err := json.Unmarshal(raw, &c); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("[coupon] cache decode")
		return nil, false
	}
	return &c, true
}

func (r *RedisCache) Set(ctx context.Context, c *Coupon) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(c.Code), raw, r.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", c.Code).Msg("[coupon] cache set")
	}
}

func (r *RedisCache) Invalidate(ctx context.Context, code string) {
	if err := r.client.Del(ctx, r.key(code)).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("[coupon] cache invalidate")
	}
}
