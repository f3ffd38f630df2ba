package router

import (
	"fmt"

	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/interfaces/http/handler"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HealthPath is served without authentication
const HealthPath = "/health"

// EngineConfig holds everything NewEngine wires together. A nil Meter
// disables HTTP metrics; a zero MaxBatchBodySize means MaxBodySize.
type EngineConfig struct {
	Logger           *zap.Logger
	ServiceName      string
	TracingEnabled   bool
	Meter            metric.Meter
	MaxBodySize      int64
	MaxBatchBodySize int64
	TrustedProxies   []string
	Auth             middleware.AuthConfig
	Health           *handler.HealthHandler
	Ledger           LedgerHandlers
}

// NewEngine builds the gin engine: global middleware, the unauthenticated
// health check and the authenticated /api/v1 ledger routes.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.HTTPMetrics(cfg.Meter),
	)

	api := NewRouter(engine,
		WithMiddleware(middleware.Auth(cfg.Auth), middleware.TracingAttributes()),
	).Register(LedgerRoutes(cfg.Ledger)...)

	if cfg.MaxBodySize > 0 {
		limits := middleware.BodyLimits{Default: cfg.MaxBodySize, Routes: map[string]int64{}}
		if cfg.MaxBatchBodySize > cfg.MaxBodySize {
			for _, p := range api.BatchPaths() {
				limits.Routes[p] = cfg.MaxBatchBodySize
			}
		}
		engine.Use(middleware.BodyLimit(limits))
	}

	if cfg.Health != nil {
		engine.GET(HealthPath, cfg.Health.Health)
	}
	api.Setup()

	return engine, nil
}
