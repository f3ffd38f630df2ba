package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the Redis-backed collaborators of the ledger services
type Stores struct {
	Idempotency shared.IdempotencyStore
	Invalidator appledger.CacheInvalidator
	client      *redis.Client
}

// Close releases the idempotency store and the shared client
func (s *Stores) Close() error {
	err := s.Idempotency.Close()
	if s.client != nil {
		if cerr := s.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Factory builds the cache stores from configuration
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a factory for cfg
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build returns Redis-backed stores sharing one client, or in-memory stores
// when Redis is not configured or unreachable and fallback is allowed.
func (f *Factory) Build(ctx context.Context) (*Stores, error) {
	if f.cfg.Addr() == "" {
		f.logger.Info("Redis not configured, using in-memory idempotency and no-op cache invalidation")
		return f.inMemory(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.cfg.Addr(),
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Idempotency keys are not shared between instances.",
			zap.Error(err),
		)
		return f.inMemory(), nil
	}

	breaker := NewCircuitBreaker(DefaultBreakerSettings("redis-cache"), f.logger)
	f.logger.Info("Using Redis idempotency store and cache invalidator", zap.String("addr", f.cfg.Addr()))
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, DefaultIdempotencyPrefix),
		Invalidator: NewRedisTagInvalidator(client, breaker),
		client:      client,
	}, nil
}

func (f *Factory) inMemory() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Invalidator: appledger.NoopCacheInvalidator{},
	}
}
