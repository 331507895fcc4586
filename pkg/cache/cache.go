package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prasetyadi/niaga-backend/pkg/logger"
	pkgredis "github.com/prasetyadi/niaga-backend/pkg/redis"
)

// DefaultTTL bounds how long a cached read survives without invalidation.
const DefaultTTL = 30 * time.Minute

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelByPattern(ctx context.Context, pattern string) error
	CacheKey(parts ...string) string
}

// Store is a read-through JSON cache over order/payment queries. It is never
// authoritative: every error degrades to a miss and writes to the durable
// store invalidate (never update) the touched keys.
type Store struct {
	redis redisStore
	ttl   time.Duration
	logg  *logger.Logger
}

// New builds a cache store with the provided TTL (DefaultTTL when zero).
func New(client *pkgredis.Client, ttl time.Duration, logg *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: client, ttl: ttl, logg: logg}
}

// GetJSON loads key into dest, reporting whether it was a hit.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil || s.redis == nil {
		return false
	}
	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		if err != pkgredis.Nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt entry; drop it so the next write repopulates.
		_ = s.redis.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value at key with the configured TTL. Failures are logged
// and swallowed.
func (s *Store) SetJSON(ctx context.Context, key string, value any) {
	if s == nil || s.redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "cache marshal failed")
		}
		return
	}
	if err := s.redis.Set(ctx, key, string(raw), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "cache write failed")
	}
}

// Invalidate deletes exact keys.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.redis == nil || len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "cache invalidation failed")
	}
}

// InvalidatePattern deletes every key matching pattern.
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) {
	if s == nil || s.redis == nil {
		return
	}
	if err := s.redis.DelByPattern(ctx, pattern); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_pattern", pattern), "cache sweep failed")
	}
}

func (s *Store) key(parts ...string) string {
	if s == nil || s.redis == nil {
		return strings.Join(parts, ":")
	}
	return s.redis.CacheKey(parts...)
}

// OrderKey addresses a single cached order detail.
func (s *Store) OrderKey(orderID string) string {
	return s.key("order", orderID)
}

// OrderListKey addresses one page of a user's order list.
func (s *Store) OrderListKey(userID string, page, limit int) string {
	return s.key("orders", userID, fmt.Sprintf("p%d", page), fmt.Sprintf("l%d", limit))
}

// OrderListPattern matches every cached order-list page for a user.
func (s *Store) OrderListPattern(userID string) string {
	return s.key("orders", userID) + ":*"
}

// PaymentKey addresses a single cached payment detail.
func (s *Store) PaymentKey(paymentID string) string {
	return s.key("payment", paymentID)
}

// PaymentListPattern matches every cached payment-list page for a user.
func (s *Store) PaymentListPattern(userID string) string {
	return s.key("payments", userID) + ":*"
}

// PaymentListKey addresses one page of a user's filtered payment list.
func (s *Store) PaymentListKey(userID string, page, limit int, filterHash string) string {
	return s.key("payments", userID, fmt.Sprintf("p%d", page), fmt.Sprintf("l%d", limit), filterHash)
}
