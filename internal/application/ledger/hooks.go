package ledger

import (
	"context"

	applogger "github.com/campus/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// hooks holds the collaborators every ledger service reports to after its
// unit of work. The exported setters are promoted onto the services.
type hooks struct {
	logger  *zap.Logger
	metrics Metrics
	cache   CacheInvalidator
}

func newHooks(logger *zap.Logger) hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return hooks{logger: logger, metrics: noopMetrics{}, cache: NoopCacheInvalidator{}}
}

// SetMetrics installs the business metrics recorder
func (h *hooks) SetMetrics(m Metrics) {
	if m != nil {
		h.metrics = m
	}
}

// SetCacheInvalidator installs the cache invalidator used after commit
func (h *hooks) SetCacheInvalidator(c CacheInvalidator) {
	if c != nil {
		h.cache = c
	}
}

func (h *hooks) log(ctx context.Context) *zap.Logger {
	return applogger.For(ctx, h.logger)
}

// invalidate never fails the caller: the data is already committed.
func (h *hooks) invalidate(ctx context.Context, tags ...string) {
	if err := h.cache.Invalidate(ctx, tags...); err != nil {
		h.log(ctx).Warn("Cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
	}
}
