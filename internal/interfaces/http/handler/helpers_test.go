package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/erp/tradecore/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestRouter(h registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()))
	r.Use(middleware.Tenant(middleware.DefaultTenantConfig()))
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

type testRequest struct {
	method  string
	path    string
	body    any
	tenant  uuid.UUID
	actor   uuid.UUID
	headers map[string]string
}

func serve(t *testing.T, r http.Handler, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if tr.body != nil {
		switch b := tr.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}

	req := httptest.NewRequest(tr.method, tr.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if tr.tenant != uuid.Nil {
		req.Header.Set(middleware.TenantHeaderKey, tr.tenant.String())
	}
	if tr.actor != uuid.Nil {
		req.Header.Set(middleware.ActorHeaderKey, tr.actor.String())
	}
	for k, v := range tr.headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope, decoding data into out when given
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()

	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error}
}
