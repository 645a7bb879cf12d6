package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenantRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Tenant(DefaultTenantConfig()))
	router.GET("/health", func(c *gin.Context) {
		_, ok := GetTenantID(c)
		c.JSON(http.StatusOK, gin.H{"has_tenant": ok})
	})
	router.GET("/test", func(c *gin.Context) {
		tenantID, _ := GetTenantID(c)
		actorID, hasActor := GetActorID(c)
		c.JSON(http.StatusOK, gin.H{
			"tenant_id":  tenantID.String(),
			"ctx_tenant": logger.TenantID(c.Request.Context()),
			"actor_id":   actorID.String(),
			"has_actor":  hasActor,
		})
	})
	return router
}

func TestTenant(t *testing.T) {
	tenantID := uuid.New()
	actorID := uuid.New()

	t.Run("stores tenant and actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		req.Header.Set(ActorHeaderKey, actorID.String())
		w := httptest.NewRecorder()
		newTenantRouter().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tenantID.String(), body["tenant_id"])
		assert.Equal(t, tenantID.String(), body["ctx_tenant"])
		assert.Equal(t, actorID.String(), body["actor_id"])
		assert.Equal(t, true, body["has_actor"])
	})

	t.Run("actor is optional", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		w := httptest.NewRecorder()
		newTenantRouter().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"has_actor":false`)
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		newTenantRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})

	t.Run("rejects malformed and nil tenant", func(t *testing.T) {
		for _, raw := range []string{"acme", uuid.Nil.String()} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(TenantHeaderKey, raw)
			w := httptest.NewRecorder()
			newTenantRouter().ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		}
	})

	t.Run("rejects malformed actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		req.Header.Set(ActorHeaderKey, "someone")
		w := httptest.NewRecorder()
		newTenantRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "X-User-ID")
	})

	t.Run("skips health check", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		newTenantRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"has_tenant":false`)
	})
}
