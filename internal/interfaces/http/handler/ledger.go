package handler

import (
	"context"
	"time"

	financeapp "github.com/erp/tradecore/internal/application/finance"
	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/erp/tradecore/internal/interfaces/http/middleware"
	"github.com/erp/tradecore/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService reports payment positions and applies guarded mutations
type LedgerService interface {
	Summary(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) (*financeapp.LedgerSummaryResponse, error)
	Costs(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) (*financeapp.CostSummaryResponse, error)
	CheckTransition(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef, target finance.Status) (*financeapp.TransitionCheck, error)
	ChangeStatus(ctx context.Context, tenantID uuid.UUID, ref finance.DocumentRef, target finance.Status, stamp shared.Stamp) (*financeapp.DocumentResponse, error)
	AllocatePayment(ctx context.Context, tenantID, paymentID, itemID uuid.UUID, amount valueobject.Amount, stamp shared.Stamp) (*financeapp.AllocationResponse, error)
	ApprovePayment(ctx context.Context, tenantID, paymentID uuid.UUID, stamp shared.Stamp) error
}

// LedgerHandler handles payment ledger endpoints
type LedgerHandler struct {
	BaseHandler
	service LedgerService
	now     func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service, now: time.Now}
}

// RegisterRoutes mounts the ledger endpoints under rg
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	router.NewDomainGroup("documents", "/documents/:kind/:id").
		GET("/ledger", h.GetLedger).
		GET("/costs", h.GetCosts).
		GET("/transitions/:status", h.CheckTransition).
		POST("/status", h.ChangeStatus).
		RegisterRoutes(rg)

	router.NewDomainGroup("payments", "/payments/:id").
		POST("/allocations", h.AllocatePayment).
		POST("/approve", h.ApprovePayment).
		RegisterRoutes(rg)
}

// GetLedger returns scheduled, paid and remaining totals with per-item balances.
// GET /documents/:kind/:id/ledger
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	tenantID, ref, ok := h.document(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), tenantID, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetCosts returns the additional costs of a document grouped by who bears them.
// GET /documents/:kind/:id/costs
func (h *LedgerHandler) GetCosts(c *gin.Context) {
	tenantID, ref, ok := h.document(c)
	if !ok {
		return
	}
	costs, err := h.service.Costs(c.Request.Context(), tenantID, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, costs)
}

// CheckTransition reports whether unpaid stages would block a move to status.
// GET /documents/:kind/:id/transitions/:status
func (h *LedgerHandler) CheckTransition(c *gin.Context) {
	tenantID, ref, ok := h.document(c)
	if !ok {
		return
	}
	check, err := h.service.CheckTransition(c.Request.Context(), tenantID, ref, finance.Status(c.Param("status")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, check)
}

// ChangeStatus moves a document to a new status, refusing with 409 while blocking stages are unpaid.
// POST /documents/:kind/:id/status
func (h *LedgerHandler) ChangeStatus(c *gin.Context) {
	tenantID, ref, ok := h.document(c)
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	stamp, ok := h.stamp(c)
	if !ok {
		return
	}
	doc, err := h.service.ChangeStatus(c.Request.Context(), tenantID, ref, finance.Status(req.Status), stamp)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// AllocatePayment applies part of a payment to a schedule item.
// POST /payments/:id/allocations
func (h *LedgerHandler) AllocatePayment(c *gin.Context) {
	tenantID, paymentID, ok := h.payment(c)
	if !ok {
		return
	}

	var req dto.AllocatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	amount, err := valueobject.ParseAmount(req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	stamp, ok := h.stamp(c)
	if !ok {
		return
	}

	allocation, err := h.service.AllocatePayment(c.Request.Context(), tenantID, paymentID,
		uuid.MustParse(req.ScheduleItemID), amount, stamp)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, allocation)
}

// ApprovePayment approves a pending payment so its allocations count as paid.
// POST /payments/:id/approve
func (h *LedgerHandler) ApprovePayment(c *gin.Context) {
	tenantID, paymentID, ok := h.payment(c)
	if !ok {
		return
	}
	stamp, ok := h.stamp(c)
	if !ok {
		return
	}
	if err := h.service.ApprovePayment(c.Request.Context(), tenantID, paymentID, stamp); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *LedgerHandler) document(c *gin.Context) (uuid.UUID, finance.DocumentRef, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, finance.DocumentRef{}, false
	}

	var uri dto.DocumentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, finance.DocumentRef{}, false
	}
	kind, err := finance.ParseDocumentKind(uri.Kind)
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, finance.DocumentRef{}, false
	}
	ref, err := finance.NewDocumentRef(kind, uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, finance.DocumentRef{}, false
	}
	return tenantID, ref, true
}

func (h *LedgerHandler) payment(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	var uri dto.PaymentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, uuid.MustParse(uri.ID), true
}

// stamp answers 400 when the request names no acting user; ledger changes are always attributed
func (h *LedgerHandler) stamp(c *gin.Context) (shared.Stamp, bool) {
	actorID := getActorID(c)
	if actorID == uuid.Nil {
		h.BadRequest(c, middleware.ActorHeaderKey+" header is required to change the ledger")
		return shared.Stamp{}, false
	}
	return shared.NewStamp(actorID, h.now()), true
}
