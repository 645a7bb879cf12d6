package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Metrics records allocation telemetry
type Metrics interface {
	AllocationFinished(ctx context.Context, kind sequence.Kind, elapsed time.Duration, err error)
	IdempotentReplay(ctx context.Context, kind sequence.Kind)
}

type nopMetrics struct{}

func (nopMetrics) AllocationFinished(context.Context, sequence.Kind, time.Duration, error) {}
func (nopMetrics) IdempotentReplay(context.Context, sequence.Kind)                         {}

// Request asks for an identifier of a kind
type Request struct {
	TenantID uuid.UUID
	Kind     sequence.Kind
	// Prefix is the category prefix of a product SKU. Empty falls back to the default prefix.
	// Document kinds ignore it.
	Prefix string
	// Now dates year-scoped quotation references. Required for quotations.
	Now time.Time
	// IdempotencyKey, when set, makes a repeated request return the identifier issued first
	IdempotencyKey string
}

// Result is an issued or previewed identifier
type Result struct {
	Identifier string         `json:"identifier"`
	Kind       sequence.Kind  `json:"kind"`
	Scope      sequence.Scope `json:"-"`
	Replayed   bool           `json:"replayed"`
}

// Service hands out document and product identifiers
type Service struct {
	allocator      *sequence.Allocator
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        Metrics
	logger         *zap.Logger
	quotationBase  string
	now            func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithIdempotencyStore enables request keys
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *Service) {
		s.idempotency = store
		s.idempotencyTTL = ttl
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the clock used to time allocations
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new numbering Service.
// quotationBase is the prefix quotation years hang off, "QT" when empty.
func NewService(allocator *sequence.Allocator, quotationBase string, opts ...Option) *Service {
	if quotationBase == "" {
		quotationBase = sequence.DefaultPrefixes[sequence.KindQuotation]
	}
	s := &Service{
		allocator:      allocator,
		idempotencyTTL: 24 * time.Hour,
		metrics:        nopMetrics{},
		logger:         zap.NewNop(),
		quotationBase:  quotationBase,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScopeFor maps a request to its numbering scope
func (s *Service) ScopeFor(req Request) (sequence.Scope, error) {
	if req.TenantID == uuid.Nil {
		return sequence.Scope{}, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID is required")
	}

	switch req.Kind {
	case sequence.KindProductSKU:
		return s.allocator.Resolve(sequence.NewScope(req.TenantID, req.Kind, strings.ToUpper(req.Prefix))), nil
	case sequence.KindQuotation:
		if req.Now.IsZero() {
			return sequence.Scope{}, shared.NewDomainError(shared.CodeInvalidInput, "Quotation references need the issue date")
		}
		prefix := fmt.Sprintf("%s-%d", s.quotationBase, req.Now.Year())
		return s.allocator.Resolve(sequence.NewScope(req.TenantID, req.Kind, prefix)), nil
	case sequence.KindProformaInvoice, sequence.KindPurchaseOrder, sequence.KindShipment, sequence.KindPayment:
		return s.allocator.Resolve(sequence.NewScope(req.TenantID, req.Kind, "")), nil
	default:
		return sequence.Scope{}, shared.NewDomainError("INVALID_SCOPE", fmt.Sprintf("Unknown sequence kind %q", req.Kind))
	}
}

// Next allocates the next identifier for the request
func (s *Service) Next(ctx context.Context, req Request) (*Result, error) {
	return s.NextWith(ctx, req, nil)
}

// NextWith allocates the next identifier and runs persist in the allocating transaction,
// so the document carrying the identifier commits together with it
func (s *Service) NextWith(ctx context.Context, req Request, persist sequence.PersistFunc) (result *Result, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "numbering", "next",
		attribute.String("sequence.kind", req.Kind.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	log := logger.L(ctx, s.logger).With(zap.String("kind", req.Kind.String()))

	scope, err := s.ScopeFor(req)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		held, found, err := s.idempotency.Lookup(ctx, s.requestKey(req))
		if err != nil {
			return nil, fmt.Errorf("lookup request key: %w", err)
		}
		if found {
			s.metrics.IdempotentReplay(ctx, req.Kind)
			log.Debug("Replaying identifier for request key", zap.String("identifier", held))
			return &Result{Identifier: held, Kind: req.Kind, Scope: scope, Replayed: true}, nil
		}
	}

	started := s.now()
	identifier, err := s.allocator.AllocateWith(ctx, scope, persist)
	s.metrics.AllocationFinished(ctx, req.Kind, s.now().Sub(started), err)
	if err != nil {
		if errors.Is(err, sequence.ErrRetryExhausted) {
			log.Warn("Identifier allocation exhausted its retries", zap.String("scope", scope.String()), zap.Error(err))
		} else {
			log.Error("Identifier allocation failed", zap.String("scope", scope.String()), zap.Error(err))
		}
		return nil, err
	}

	result = &Result{Identifier: identifier, Kind: req.Kind, Scope: scope}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		held, claimed, err := s.idempotency.Claim(ctx, s.requestKey(req), identifier, s.idempotencyTTL)
		if err != nil {
			// The identifier is committed; losing the key only weakens replay protection.
			log.Warn("Failed to remember request key", zap.String("identifier", identifier), zap.Error(err))
			return result, nil
		}
		if !claimed {
			// A concurrent request with the same key finished first. Its identifier wins and
			// ours becomes a gap.
			s.metrics.IdempotentReplay(ctx, req.Kind)
			log.Info("Concurrent request key won, leaving a gap",
				zap.String("issued", identifier),
				zap.String("returned", held),
			)
			return &Result{Identifier: held, Kind: req.Kind, Scope: scope, Replayed: true}, nil
		}
	}

	log.Info("Identifier issued", zap.String("identifier", identifier), zap.String("scope", scope.String()))
	return result, nil
}

// Preview returns the probable next identifier without reserving it
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "numbering", "preview",
		attribute.String("sequence.kind", req.Kind.String()))
	defer span.End()

	scope, err := s.ScopeFor(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	identifier, err := s.allocator.Preview(ctx, scope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &Result{Identifier: identifier, Kind: req.Kind, Scope: scope}, nil
}

func (s *Service) requestKey(req Request) string {
	return fmt.Sprintf("%s:%s:%s", req.TenantID, req.Kind, req.IdempotencyKey)
}
