package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/erp/tradecore/internal/application/numbering"
	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSequenceService struct {
	mock.Mock
}

func (m *MockSequenceService) Next(ctx context.Context, req numbering.Request) (*numbering.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*numbering.Result), args.Error(1)
}

func (m *MockSequenceService) Preview(ctx context.Context, req numbering.Request) (*numbering.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*numbering.Result), args.Error(1)
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newSequenceFixture() (*MockSequenceService, http.Handler) {
	svc := new(MockSequenceService)
	h := NewSequenceHandler(svc)
	h.now = func() time.Time { return fixedNow }
	return svc, newTestRouter(h)
}

func TestSequenceHandler_Preview(t *testing.T) {
	tenantID := uuid.New()

	t.Run("dates quotation by query", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Preview", mock.Anything, numbering.Request{
			TenantID: tenantID,
			Kind:     sequence.KindQuotation,
			Now:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}).Return(&numbering.Result{Identifier: "QT-2026-0004", Kind: sequence.KindQuotation}, nil)

		w := serve(t, r, testRequest{
			method: http.MethodGet,
			path:   "/api/v1/sequences/preview?kind=QUOTATION&date=2026-03-01",
			tenant: tenantID,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result numbering.Result
		resp := decode(t, w, &result)
		assert.True(t, resp.Success)
		assert.Equal(t, "QT-2026-0004", result.Identifier)
		assert.False(t, result.Replayed)
		svc.AssertExpectations(t)
	})

	t.Run("defaults date to now and passes prefix", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Preview", mock.Anything, numbering.Request{
			TenantID: tenantID,
			Kind:     sequence.KindProductSKU,
			Prefix:   "ELEC",
			Now:      fixedNow,
		}).Return(&numbering.Result{Identifier: "ELEC-00003", Kind: sequence.KindProductSKU}, nil)

		w := serve(t, r, testRequest{
			method: http.MethodGet,
			path:   "/api/v1/sequences/preview?kind=PRODUCT_SKU&prefix=ELEC",
			tenant: tenantID,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		svc, r := newSequenceFixture()

		w := serve(t, r, testRequest{
			method: http.MethodGet,
			path:   "/api/v1/sequences/preview?kind=INVOICE",
			tenant: tenantID,
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "kind", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		svc, r := newSequenceFixture()

		w := serve(t, r, testRequest{
			method: http.MethodGet,
			path:   "/api/v1/sequences/preview?kind=QUOTATION&date=01-03-2026",
			tenant: tenantID,
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
	})

	t.Run("requires tenant", func(t *testing.T) {
		svc, r := newSequenceFixture()

		w := serve(t, r, testRequest{
			method: http.MethodGet,
			path:   "/api/v1/sequences/preview?kind=PAYMENT",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
	})
}

func TestSequenceHandler_Allocate(t *testing.T) {
	tenantID := uuid.New()

	t.Run("issues identifier", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Next", mock.Anything, numbering.Request{
			TenantID:       tenantID,
			Kind:           sequence.KindPayment,
			Now:            fixedNow,
			IdempotencyKey: "pay-7",
		}).Return(&numbering.Result{Identifier: "PAY-000012", Kind: sequence.KindPayment}, nil)

		w := serve(t, r, testRequest{
			method:  http.MethodPost,
			path:    "/api/v1/sequences/allocate",
			body:    dto.AllocateSequenceRequest{Kind: "PAYMENT"},
			tenant:  tenantID,
			headers: map[string]string{IdempotencyKeyHeader: "pay-7"},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var result numbering.Result
		decode(t, w, &result)
		assert.Equal(t, "PAY-000012", result.Identifier)
		svc.AssertExpectations(t)
	})

	t.Run("replay answers 200", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Next", mock.Anything, mock.MatchedBy(func(req numbering.Request) bool {
			return req.IdempotencyKey == "po-1"
		})).Return(&numbering.Result{Identifier: "PO-00009", Kind: sequence.KindPurchaseOrder, Replayed: true}, nil)

		w := serve(t, r, testRequest{
			method:  http.MethodPost,
			path:    "/api/v1/sequences/allocate",
			body:    dto.AllocateSequenceRequest{Kind: "PURCHASE_ORDER"},
			tenant:  tenantID,
			headers: map[string]string{IdempotencyKeyHeader: "po-1"},
		})

		require.Equal(t, http.StatusOK, w.Code)
		var result numbering.Result
		decode(t, w, &result)
		assert.True(t, result.Replayed)
	})

	t.Run("retry exhaustion answers 503 with Retry-After", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Next", mock.Anything, mock.Anything).Return(nil, &sequence.RetryExhaustedError{
			Scope:    sequence.NewScope(tenantID, sequence.KindShipment, ""),
			Attempts: 3,
			Last:     errors.New("duplicate key"),
		})

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   "/api/v1/sequences/allocate",
			body:   dto.AllocateSequenceRequest{Kind: "SHIPMENT"},
			tenant: tenantID,
		})

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, RetryAfterSeconds, w.Header().Get("Retry-After"))
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeRetryExhausted, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("unknown scope answers 400", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Next", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError("INVALID_SCOPE", "Quotation numbers need a date"))

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   "/api/v1/sequences/allocate",
			body:   dto.AllocateSequenceRequest{Kind: "QUOTATION"},
			tenant: tenantID,
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeInvalidReference, resp.Error.Code)
	})

	t.Run("rejects non-alphanumeric prefix", func(t *testing.T) {
		svc, r := newSequenceFixture()

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   "/api/v1/sequences/allocate",
			body:   dto.AllocateSequenceRequest{Kind: "PRODUCT_SKU", Prefix: "EL-EC"},
			tenant: tenantID,
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc, r := newSequenceFixture()

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   "/api/v1/sequences/allocate",
			body:   `{"kind":`,
			tenant: tenantID,
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
	})

	t.Run("unexpected failure answers 500", func(t *testing.T) {
		svc, r := newSequenceFixture()
		svc.On("Next", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   "/api/v1/sequences/allocate",
			body:   dto.AllocateSequenceRequest{Kind: "SHIPMENT"},
			tenant: tenantID,
		})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}
