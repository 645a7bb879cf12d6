package finance

import (
	"time"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerSummaryResponse is the payment position of a document in API responses
type LedgerSummaryResponse struct {
	DocumentKind    string                `json:"document_kind"`
	DocumentID      uuid.UUID             `json:"document_id"`
	ScheduleTotal   decimal.Decimal       `json:"schedule_total"`
	PaidTotal       decimal.Decimal       `json:"paid_total"`
	Remaining       decimal.Decimal       `json:"remaining"`
	Overpaid        decimal.Decimal       `json:"overpaid"`
	ProgressPercent decimal.Decimal       `json:"progress_percent"`
	Settled         bool                  `json:"settled"`
	Items           []ItemBalanceResponse `json:"items,omitempty"`
}

// ItemBalanceResponse is the payment position of one schedule item
type ItemBalanceResponse struct {
	ID        uuid.UUID       `json:"id"`
	Label     string          `json:"label"`
	Stage     int             `json:"stage"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Settled   bool            `json:"settled"`
}

// CostSummaryResponse totals a document's additional costs
type CostSummaryResponse struct {
	Total                 decimal.Decimal          `json:"total"`
	ClientBillableTotal   decimal.Decimal          `json:"client_billable_total"`
	SupplierBillableTotal decimal.Decimal          `json:"supplier_billable_total"`
	CompanyTotal          decimal.Decimal          `json:"company_total"`
	Costs                 []AdditionalCostResponse `json:"costs"`
}

// AdditionalCostResponse is one additional cost line
type AdditionalCostResponse struct {
	ID           uuid.UUID          `json:"id"`
	Description  string             `json:"description"`
	Amount       decimal.Decimal    `json:"amount"`
	BillableTo   string             `json:"billable_to"`
	Original     *valueobject.Money `json:"original,omitempty"`
	ExchangeRate *decimal.Decimal   `json:"exchange_rate,omitempty"`
}

// TransitionCheck tells whether a document may move to a target status
type TransitionCheck struct {
	Target   finance.Status    `json:"target"`
	Allowed  bool              `json:"allowed"`
	Blockers []BlockerResponse `json:"blockers"`
}

// BlockerResponse is an unpaid schedule item blocking a transition
type BlockerResponse struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Label     string          `json:"label"`
	Stage     int             `json:"stage"`
	Remaining decimal.Decimal `json:"remaining"`
}

// DocumentResponse is a document header in API responses
type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Number    string    `json:"number"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllocationResponse is a payment allocation in API responses
type AllocationResponse struct {
	ID             uuid.UUID       `json:"id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	ScheduleItemID uuid.UUID       `json:"schedule_item_id"`
	Amount         decimal.Decimal `json:"amount"`
	Unallocated    decimal.Decimal `json:"unallocated"`
	AllocatedAt    time.Time       `json:"allocated_at"`
}

// ToLedgerSummaryResponse converts a computed ledger
func ToLedgerSummaryResponse(doc finance.DocumentRef, summary finance.LedgerSummary, balances []finance.ItemBalance) LedgerSummaryResponse {
	resp := LedgerSummaryResponse{
		DocumentKind:    doc.Kind.String(),
		DocumentID:      doc.ID,
		ScheduleTotal:   summary.ScheduleTotal.Major(),
		PaidTotal:       summary.PaidTotal.Major(),
		Remaining:       summary.Remaining.Major(),
		Overpaid:        summary.Overpaid().Major(),
		ProgressPercent: summary.ProgressPercent,
		Settled:         summary.IsSettled(),
	}
	if len(balances) > 0 {
		resp.Items = ToItemBalanceResponses(balances)
	}
	return resp
}

// ToItemBalanceResponses converts item balances
func ToItemBalanceResponses(balances []finance.ItemBalance) []ItemBalanceResponse {
	out := make([]ItemBalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = ItemBalanceResponse{
			ID:        b.Item.ID,
			Label:     b.Item.Label,
			Stage:     b.Stage,
			Amount:    b.Item.Amount.Major(),
			Paid:      b.Paid.Major(),
			Remaining: b.Remaining.Major(),
			Settled:   b.IsSettled(),
		}
	}
	return out
}

// ToCostSummaryResponse converts costs and their totals
func ToCostSummaryResponse(costs []finance.AdditionalCost) CostSummaryResponse {
	summary := finance.AggregateCosts(costs)
	resp := CostSummaryResponse{
		Total:                 summary.Total.Major(),
		ClientBillableTotal:   summary.ClientBillableTotal.Major(),
		SupplierBillableTotal: summary.SupplierBillableTotal.Major(),
		CompanyTotal:          summary.CompanyTotal.Major(),
		Costs:                 make([]AdditionalCostResponse, len(costs)),
	}
	for i, c := range costs {
		resp.Costs[i] = AdditionalCostResponse{
			ID:          c.ID,
			Description: c.Description,
			Amount:      c.Amount.Major(),
			BillableTo:  c.BillableTo.String(),
		}
		if c.Original != nil {
			rate := c.ExchangeRate
			resp.Costs[i].Original = c.Original
			resp.Costs[i].ExchangeRate = &rate
		}
	}
	return resp
}

// ToBlockerResponses converts guard blockers
func ToBlockerResponses(blockers []finance.Blocker) []BlockerResponse {
	out := make([]BlockerResponse, len(blockers))
	for i, b := range blockers {
		out[i] = BlockerResponse{
			ItemID:    b.Item.ID,
			Label:     b.Label(),
			Stage:     b.Stage,
			Remaining: b.Remaining.Major(),
		}
	}
	return out
}

// ToDocumentResponse converts a document header
func ToDocumentResponse(doc *finance.PayableDocument) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Kind:      doc.Kind.String(),
		Number:    doc.Number,
		Status:    doc.Status.String(),
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
	}
}
