package handler

import (
	"context"
	"time"

	"github.com/erp/tradecore/internal/application/numbering"
	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/erp/tradecore/internal/interfaces/http/middleware"
	"github.com/erp/tradecore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader makes a retried allocation return the identifier issued first
const IdempotencyKeyHeader = "Idempotency-Key"

const dateLayout = "2006-01-02"

// SequenceService issues and previews identifiers
type SequenceService interface {
	Next(ctx context.Context, req numbering.Request) (*numbering.Result, error)
	Preview(ctx context.Context, req numbering.Request) (*numbering.Result, error)
}

// SequenceHandler handles identifier allocation endpoints
type SequenceHandler struct {
	BaseHandler
	service SequenceService
	now     func() time.Time
}

// NewSequenceHandler creates a new SequenceHandler
func NewSequenceHandler(service SequenceService) *SequenceHandler {
	return &SequenceHandler{service: service, now: time.Now}
}

// RegisterRoutes mounts the sequence endpoints under rg
func (h *SequenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("sequences", "/sequences").
		GET("/preview", h.Preview).
		POST("/allocate", h.Allocate).
		RegisterRoutes(rg)
}

// Preview returns the probable next identifier of a kind without reserving it.
// GET /sequences/preview?kind=QUOTATION&date=2026-03-01
func (h *SequenceHandler) Preview(c *gin.Context) {
	var query dto.SequenceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	req, ok := h.request(c, query.Kind, query.Prefix, query.Date)
	if !ok {
		return
	}

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Allocate issues the next identifier of a kind.
// POST /sequences/allocate with an optional Idempotency-Key header
func (h *SequenceHandler) Allocate(c *gin.Context) {
	var body dto.AllocateSequenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	req, ok := h.request(c, body.Kind, body.Prefix, body.Date)
	if !ok {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	if len(req.IdempotencyKey) > 128 {
		h.BadRequest(c, "Idempotency-Key must be at most 128 characters")
		return
	}

	result, err := h.service.Next(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

func (h *SequenceHandler) request(c *gin.Context, kind, prefix, date string) (numbering.Request, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return numbering.Request{}, false
	}

	now := h.now()
	if date != "" {
		// binding already checked the layout
		now, _ = time.Parse(dateLayout, date)
	}

	return numbering.Request{
		TenantID: tenantID,
		Kind:     sequence.Kind(kind),
		Prefix:   prefix,
		Now:      now,
	}, true
}
