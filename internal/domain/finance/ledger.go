package finance

import (
	"context"
	"fmt"

	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProgressDecimals is the precision of LedgerSummary.ProgressPercent
const ProgressDecimals int32 = 1

// LedgerSummary is the payment position of one document
type LedgerSummary struct {
	ScheduleTotal   valueobject.Amount
	PaidTotal       valueobject.Amount
	Remaining       valueobject.Amount
	ProgressPercent decimal.Decimal
}

// IsSettled returns true when nothing remains to be paid
func (s LedgerSummary) IsSettled() bool {
	return s.Remaining.IsZero()
}

// Overpaid returns the amount paid beyond the schedule, zero if none
func (s LedgerSummary) Overpaid() valueobject.Amount {
	return s.PaidTotal.Sub(s.ScheduleTotal).ClampZero()
}

// ItemBalance is the payment position of one schedule item
type ItemBalance struct {
	Item      ScheduleItem
	Stage     int
	Paid      valueobject.Amount
	Remaining valueobject.Amount
}

// IsSettled returns true when the item is fully paid
func (b ItemBalance) IsSettled() bool {
	return b.Remaining.IsZero()
}

// paidByItem sums approved allocations per schedule item.
// Allocations pointing at items outside the given set are ignored.
func paidByItem(items []ScheduleItem, allocations []Allocation) map[uuid.UUID]valueobject.Amount {
	paid := make(map[uuid.UUID]valueobject.Amount, len(items))
	for _, item := range items {
		paid[item.ID] = 0
	}
	for _, a := range allocations {
		if !a.PaymentStatus.CountsTowardLedger() {
			continue
		}
		current, ok := paid[a.ScheduleItemID]
		if !ok {
			continue
		}
		paid[a.ScheduleItemID] = current.Add(a.Amount)
	}
	return paid
}

// ComputeLedger summarizes a document's schedule against its allocations.
// Only allocations of APPROVED payments count. Remaining never goes below zero,
// and progress is 0 for an empty schedule.
func ComputeLedger(items []ScheduleItem, allocations []Allocation) LedgerSummary {
	paid := paidByItem(items, allocations)

	var summary LedgerSummary
	for _, item := range items {
		summary.ScheduleTotal = summary.ScheduleTotal.Add(item.Amount)
		summary.PaidTotal = summary.PaidTotal.Add(paid[item.ID])
	}
	summary.Remaining = summary.ScheduleTotal.Sub(summary.PaidTotal).ClampZero()
	summary.ProgressPercent = valueobject.Percent(summary.PaidTotal, summary.ScheduleTotal, ProgressDecimals)
	return summary
}

// ItemBalances returns the paid and remaining amount of every item, in stage order
func ItemBalances(items []ScheduleItem, allocations []Allocation) []ItemBalance {
	paid := paidByItem(items, allocations)

	staged := Stages(items)
	balances := make([]ItemBalance, 0, len(staged))
	for _, s := range staged {
		p := paid[s.ID]
		balances = append(balances, ItemBalance{
			Item:      s.ScheduleItem,
			Stage:     s.Stage,
			Paid:      p,
			Remaining: s.Amount.Sub(p).ClampZero(),
		})
	}
	return balances
}

// LedgerReader loads what a ledger computation needs for one document
type LedgerReader interface {
	// ScheduleItems returns the document's schedule items
	ScheduleItems(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) ([]ScheduleItem, error)

	// Allocations returns every allocation against the document's schedule items
	// with the parent payment's current status filled in
	Allocations(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) ([]Allocation, error)
}

// Snapshot is the materialized schedule and allocations of one document
type Snapshot struct {
	Document    DocumentRef
	Items       []ScheduleItem
	Allocations []Allocation
}

// Summary computes the ledger of the snapshot
func (s Snapshot) Summary() LedgerSummary {
	return ComputeLedger(s.Items, s.Allocations)
}

// Balances computes the per-item balances of the snapshot
func (s Snapshot) Balances() []ItemBalance {
	return ItemBalances(s.Items, s.Allocations)
}

// PaymentLedger computes ledgers for documents loaded through a LedgerReader
type PaymentLedger struct {
	reader LedgerReader
}

// NewPaymentLedger creates a new PaymentLedger
func NewPaymentLedger(reader LedgerReader) *PaymentLedger {
	return &PaymentLedger{reader: reader}
}

// Load materializes the document's schedule and allocations
func (l *PaymentLedger) Load(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) (Snapshot, error) {
	if err := doc.Validate(); err != nil {
		return Snapshot{}, err
	}
	items, err := l.reader.ScheduleItems(ctx, tenantID, doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load schedule items of %s: %w", doc, err)
	}
	allocations, err := l.reader.Allocations(ctx, tenantID, doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load allocations of %s: %w", doc, err)
	}
	return Snapshot{Document: doc, Items: items, Allocations: allocations}, nil
}

// Compute loads the document and returns its ledger summary
func (l *PaymentLedger) Compute(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) (LedgerSummary, error) {
	snapshot, err := l.Load(ctx, tenantID, doc)
	if err != nil {
		return LedgerSummary{}, err
	}
	return snapshot.Summary(), nil
}
