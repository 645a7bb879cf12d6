package router

import (
	"fmt"

	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig assembles the middleware chain of the API engine
type EngineConfig struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	Meter          metric.Meter // nil disables HTTP metrics
	MaxBodyBytes   int64
	TrustedProxies []string
	Tenant         middleware.TenantConfig
}

// NewEngine creates a gin engine with recovery, request logging, tracing, metrics,
// body limit and tenant resolution, in that order
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	engine.Use(
		middleware.Tenant(cfg.Tenant),
		middleware.TracingAttributeInjector(),
	)
	return engine, nil
}
