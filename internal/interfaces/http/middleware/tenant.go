package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys and headers identifying the caller
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
	ActorIDKey      = "actor_id"
	ActorHeaderKey  = "X-User-ID"
)

// TenantConfig holds configuration for the tenant middleware
type TenantConfig struct {
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz"},
	}
}

// Tenant requires a valid X-Tenant-ID header and puts the tenant into the gin and request contexts.
// An X-User-ID header, when present, must be a UUID and is stored as the acting user.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		raw := c.GetHeader(TenantHeaderKey)
		if raw == "" {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-Tenant-ID header is required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-Tenant-ID must be a UUID")
			return
		}
		c.Set(TenantIDKey, tenantID)

		if rawActor := c.GetHeader(ActorHeaderKey); rawActor != "" {
			actorID, err := uuid.Parse(rawActor)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-User-ID must be a UUID")
				return
			}
			c.Set(ActorIDKey, actorID)
		}

		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantID returns the tenant set by Tenant
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetActorID returns the acting user set by Tenant
func GetActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ActorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}
