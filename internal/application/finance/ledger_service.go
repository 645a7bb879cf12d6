package finance

import (
	"context"
	"fmt"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/erp/tradecore/internal/infrastructure/logger"
	"github.com/erp/tradecore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TransactionRunner runs fn in a database transaction carried by the context
type TransactionRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Metrics records finance telemetry
type Metrics interface {
	TransitionChecked(ctx context.Context, kind finance.DocumentKind, target finance.Status, allowed bool)
	PaymentAllocated(ctx context.Context, err error)
}

type nopMetrics struct{}

func (nopMetrics) TransitionChecked(context.Context, finance.DocumentKind, finance.Status, bool) {}
func (nopMetrics) PaymentAllocated(context.Context, error)                                       {}

// Repositories groups the stores the ledger service reads and writes
type Repositories struct {
	Documents finance.PayableDocumentRepository
	Statuses  finance.StatusWriter
	Schedule  finance.ScheduleRepository
	Payments  finance.PaymentRepository
	Costs     finance.CostReader
}

// LedgerService answers payment-position questions about documents and applies
// guarded status changes and payment allocations
type LedgerService struct {
	repos   Repositories
	ledger  *finance.PaymentLedger
	guard   *finance.TransitionGuard
	tx      TransactionRunner
	metrics Metrics
	logger  *zap.Logger
}

// LedgerServiceOption configures a LedgerService
type LedgerServiceOption func(*LedgerService)

// WithTransactionRunner makes mutations run in a single transaction
func WithTransactionRunner(tx TransactionRunner) LedgerServiceOption {
	return func(s *LedgerService) {
		s.tx = tx
	}
}

// WithFinanceMetrics sets the metrics recorder
func WithFinanceMetrics(m Metrics) LedgerServiceOption {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		s.logger = l
	}
}

// NewLedgerService creates a new LedgerService.
// rules decides which stages block which statuses; nil uses the default table.
func NewLedgerService(repos Repositories, rules finance.BlockingRules, opts ...LedgerServiceOption) *LedgerService {
	s := &LedgerService{
		repos:   repos,
		ledger:  finance.NewPaymentLedger(repos.Schedule),
		guard:   finance.NewTransitionGuard(rules),
		metrics: nopMetrics{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the document's ledger with per-item balances
func (s *LedgerService) Summary(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) (*LedgerSummaryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "summary",
		attribute.String("document.kind", doc.Kind.String()))
	defer span.End()

	snapshot, err := s.ledger.Load(ctx, tenantID, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToLedgerSummaryResponse(doc, snapshot.Summary(), snapshot.Balances())
	return &resp, nil
}

// ItemBalances returns the paid and remaining amount of every schedule item, in stage order
func (s *LedgerService) ItemBalances(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) ([]ItemBalanceResponse, error) {
	snapshot, err := s.ledger.Load(ctx, tenantID, doc)
	if err != nil {
		return nil, err
	}
	return ToItemBalanceResponses(snapshot.Balances()), nil
}

// Costs returns the document's additional costs with their totals
func (s *LedgerService) Costs(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) (*CostSummaryResponse, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	costs, err := s.repos.Costs.Costs(ctx, tenantID, doc)
	if err != nil {
		return nil, fmt.Errorf("load costs of %s: %w", doc, err)
	}
	resp := ToCostSummaryResponse(costs)
	return &resp, nil
}

// CheckTransition reports whether unpaid stages block moving the document to target.
// It never changes anything.
func (s *LedgerService) CheckTransition(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef, target finance.Status) (*TransitionCheck, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "check_transition",
		attribute.String("document.kind", doc.Kind.String()),
		attribute.String("document.target_status", target.String()))
	defer span.End()

	if !doc.Kind.Allows(target) {
		err := shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Status %s is not valid for %s", target, doc.Kind))
		telemetry.RecordError(span, err)
		return nil, err
	}

	blockers, err := s.blockers(ctx, tenantID, doc, target)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.TransitionChecked(ctx, doc.Kind, target, len(blockers) == 0)

	return &TransitionCheck{
		Target:   target,
		Allowed:  len(blockers) == 0,
		Blockers: ToBlockerResponses(blockers),
	}, nil
}

// ChangeStatus moves the document to target unless unpaid stages block it.
// A blocked change returns a *finance.TransitionBlockedError listing the unpaid stages.
func (s *LedgerService) ChangeStatus(ctx context.Context, tenantID uuid.UUID, ref finance.DocumentRef, target finance.Status, stamp shared.Stamp) (result *DocumentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "change_status",
		attribute.String("document.kind", ref.Kind.String()),
		attribute.String("document.target_status", target.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := stamp.Validate(); err != nil {
		return nil, err
	}

	log := logger.L(ctx, s.logger).With(
		zap.String("document_kind", ref.Kind.String()),
		zap.String("document_id", ref.ID.String()),
		zap.String("target", target.String()),
	)

	err = s.inTx(ctx, func(txCtx context.Context) error {
		doc, err := s.repos.Documents.FindByRef(txCtx, tenantID, ref)
		if err != nil {
			return err
		}

		blockers, err := s.blockers(txCtx, tenantID, ref, target)
		if err != nil {
			return err
		}
		s.metrics.TransitionChecked(txCtx, ref.Kind, target, len(blockers) == 0)
		if len(blockers) > 0 {
			return finance.NewTransitionBlockedError(ref, target, blockers)
		}

		if err := doc.TransitionTo(target, stamp); err != nil {
			return err
		}
		if err := s.repos.Statuses.SaveStatus(txCtx, doc); err != nil {
			return err
		}
		resp := ToDocumentResponse(doc)
		result = &resp
		return nil
	})
	if err != nil {
		log.Info("Status change refused", zap.Error(err))
		return nil, err
	}

	log.Info("Document status changed", zap.String("actor", stamp.ActorID.String()))
	return result, nil
}

// AllocatePayment applies amount of a payment to a schedule item.
// The payment row is locked for the duration so concurrent allocations cannot
// together exceed the payment amount.
func (s *LedgerService) AllocatePayment(ctx context.Context, tenantID, paymentID, itemID uuid.UUID, amount valueobject.Amount, stamp shared.Stamp) (result *AllocationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "allocate_payment")
	defer func() {
		s.metrics.PaymentAllocated(ctx, err)
		telemetry.EndSpan(span, err)
	}()

	if err := stamp.Validate(); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(txCtx context.Context) error {
		payment, err := s.repos.Payments.FindForUpdate(txCtx, tenantID, paymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		item, err := s.repos.Schedule.FindItem(txCtx, tenantID, itemID)
		if err != nil {
			return fmt.Errorf("load schedule item: %w", err)
		}

		allocation, err := payment.Allocate(*item, amount, stamp)
		if err != nil {
			return err
		}
		if err := s.repos.Payments.Save(txCtx, payment); err != nil {
			return err
		}

		result = &AllocationResponse{
			ID:             allocation.ID,
			PaymentID:      allocation.PaymentID,
			ScheduleItemID: allocation.ScheduleItemID,
			Amount:         allocation.Amount.Major(),
			Unallocated:    payment.UnallocatedAmount().Major(),
			AllocatedAt:    allocation.AllocatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx, s.logger).Info("Payment allocated",
		zap.String("payment_id", paymentID.String()),
		zap.String("schedule_item_id", itemID.String()),
		zap.String("amount", amount.String()),
	)
	return result, nil
}

// ApprovePayment approves a pending payment so its allocations count as paid
func (s *LedgerService) ApprovePayment(ctx context.Context, tenantID, paymentID uuid.UUID, stamp shared.Stamp) error {
	return s.inTx(ctx, func(txCtx context.Context) error {
		payment, err := s.repos.Payments.FindForUpdate(txCtx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if err := payment.Approve(stamp); err != nil {
			return err
		}
		return s.repos.Payments.Save(txCtx, payment)
	})
}

func (s *LedgerService) blockers(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef, target finance.Status) ([]finance.Blocker, error) {
	snapshot, err := s.ledger.Load(ctx, tenantID, doc)
	if err != nil {
		return nil, err
	}
	return s.guard.BlockersFor(doc, snapshot.Items, snapshot.Allocations, target), nil
}

func (s *LedgerService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}
