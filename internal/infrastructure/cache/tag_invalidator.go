package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultTagPrefix namespaces the Redis sets that index cached keys by tag.
const DefaultTagPrefix = "ledger:tag:"

// BreakerSettings tunes the circuit breaker in front of Redis
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // probes let through while half-open
	Interval     time.Duration // closed-state counter reset
	Timeout      time.Duration // open to half-open
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings trips after 5 requests with at least 60% failures
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:         name,
		MaxRequests:  3,
		Interval:     30 * time.Second,
		Timeout:      10 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// NewCircuitBreaker builds a gobreaker breaker that logs state changes
func NewCircuitBreaker(s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// RedisTagInvalidator indexes cached keys by tag in Redis sets and deletes
// them on invalidation. Calls pass through a circuit breaker so a dead
// Redis fails fast instead of stalling committed writes.
type RedisTagInvalidator struct {
	client    redis.UniversalClient
	breaker   *gobreaker.CircuitBreaker
	tagPrefix string
	tagTTL    time.Duration
}

// RedisTagInvalidatorOption configures a RedisTagInvalidator
type RedisTagInvalidatorOption func(*RedisTagInvalidator)

// WithTagPrefix overrides DefaultTagPrefix
func WithTagPrefix(prefix string) RedisTagInvalidatorOption {
	return func(i *RedisTagInvalidator) {
		i.tagPrefix = prefix
	}
}

// WithTagTTL bounds how long a tag set lives without new registrations
func WithTagTTL(ttl time.Duration) RedisTagInvalidatorOption {
	return func(i *RedisTagInvalidator) {
		i.tagTTL = ttl
	}
}

// NewRedisTagInvalidator wraps client. A nil breaker gets the defaults.
func NewRedisTagInvalidator(client redis.UniversalClient, breaker *gobreaker.CircuitBreaker, opts ...RedisTagInvalidatorOption) *RedisTagInvalidator {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultBreakerSettings("redis-cache"), nil)
	}
	inv := &RedisTagInvalidator{
		client:    client,
		breaker:   breaker,
		tagPrefix: DefaultTagPrefix,
		tagTTL:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Register records that key holds data covered by tags
func (i *RedisTagInvalidator) Register(ctx context.Context, key string, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := i.breaker.Execute(func() (interface{}, error) {
		_, err := i.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for _, tag := range tags {
				p.SAdd(ctx, i.tagPrefix+tag, key)
				p.Expire(ctx, i.tagPrefix+tag, i.tagTTL)
			}
			return nil
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("register cache key %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every key registered under each tag, then the tag sets
func (i *RedisTagInvalidator) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := i.breaker.Execute(func() (interface{}, error) {
		var keys []string
		for _, tag := range tags {
			members, err := i.client.SMembers(ctx, i.tagPrefix+tag).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return nil, err
			}
			keys = append(keys, members...)
			keys = append(keys, i.tagPrefix+tag)
		}
		return nil, i.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("invalidate cache tags: %w", err)
	}
	return nil
}

// State exposes the breaker state for health reporting
func (i *RedisTagInvalidator) State() gobreaker.State {
	return i.breaker.State()
}

// InMemoryTagInvalidator is the single-process counterpart of
// RedisTagInvalidator. OnEvict, when set, is called for each evicted key.
type InMemoryTagInvalidator struct {
	mu      sync.Mutex
	tags    map[string]map[string]struct{}
	OnEvict func(key string)
}

// NewInMemoryTagInvalidator returns an empty tag index
func NewInMemoryTagInvalidator() *InMemoryTagInvalidator {
	return &InMemoryTagInvalidator{tags: make(map[string]map[string]struct{})}
}

// Register records that key holds data covered by tags
func (i *InMemoryTagInvalidator) Register(_ context.Context, key string, tags ...string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, tag := range tags {
		set, ok := i.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			i.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

// Invalidate evicts the keys of each tag and forgets the tags
func (i *InMemoryTagInvalidator) Invalidate(_ context.Context, tags ...string) error {
	i.mu.Lock()
	evicted := make(map[string]struct{})
	for _, tag := range tags {
		for key := range i.tags[tag] {
			evicted[key] = struct{}{}
		}
		delete(i.tags, tag)
	}
	onEvict := i.OnEvict
	i.mu.Unlock()

	if onEvict != nil {
		for key := range evicted {
			onEvict(key)
		}
	}
	return nil
}

// Keys returns the keys currently registered under tag
func (i *InMemoryTagInvalidator) Keys(tag string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	keys := make([]string, 0, len(i.tags[tag]))
	for key := range i.tags[tag] {
		keys = append(keys, key)
	}
	return keys
}
