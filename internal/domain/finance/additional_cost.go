package finance

import (
	"fmt"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillableTo names who ultimately bears an additional cost
type BillableTo string

const (
	BillableToClient   BillableTo = "CLIENT"
	BillableToSupplier BillableTo = "SUPPLIER"
	BillableToCompany  BillableTo = "COMPANY"
)

// IsValid checks if the value is a known BillableTo
func (b BillableTo) IsValid() bool {
	switch b {
	case BillableToClient, BillableToSupplier, BillableToCompany:
		return true
	}
	return false
}

// String returns the string representation of BillableTo
func (b BillableTo) String() string {
	return string(b)
}

// AdditionalCost is a cost attached to a document on top of its lines, e.g. freight or inspection.
// Amount is always in the document's currency; totals only ever read Amount.
type AdditionalCost struct {
	ID          uuid.UUID
	Document    DocumentRef
	Description string
	Amount      valueobject.Amount
	BillableTo  BillableTo
	CreatedBy   uuid.UUID

	// Original is the amount as invoiced when that was in another currency, nil otherwise
	Original     *valueobject.Money
	ExchangeRate decimal.Decimal
}

// NewAdditionalCost creates a validated additional cost
func NewAdditionalCost(doc DocumentRef, description string, amount valueobject.Amount, billableTo BillableTo, stamp shared.Stamp) (*AdditionalCost, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Cost description cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Cost amount cannot be negative")
	}
	if !billableTo.IsValid() {
		return nil, shared.NewDomainError("INVALID_BILLABLE_TO", fmt.Sprintf("Unknown billable party %q", billableTo))
	}
	if err := stamp.Validate(); err != nil {
		return nil, err
	}
	return &AdditionalCost{
		ID:          uuid.New(),
		Document:    doc,
		Description: description,
		Amount:      amount,
		BillableTo:  billableTo,
		CreatedBy:   stamp.ActorID,
	}, nil
}

// NewForeignAdditionalCost records a cost invoiced in another currency. The amount in the
// document's currency is derived from original at rate and is what the cost contributes to totals.
func NewForeignAdditionalCost(doc DocumentRef, description string, original valueobject.Money, documentCurrency valueobject.Currency, rate decimal.Decimal, billableTo BillableTo, stamp shared.Stamp) (*AdditionalCost, error) {
	converted, err := original.ConvertTo(documentCurrency, rate)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_EXCHANGE_RATE", err.Error())
	}
	cost, err := NewAdditionalCost(doc, description, converted.Amount(), billableTo, stamp)
	if err != nil {
		return nil, err
	}
	if original.Currency() != documentCurrency {
		cost.Original = &original
		cost.ExchangeRate = rate
	}
	return cost, nil
}

// CostSummary totals a document's additional costs by billable party
type CostSummary struct {
	Total                 valueobject.Amount
	ClientBillableTotal   valueobject.Amount
	SupplierBillableTotal valueobject.Amount
	CompanyTotal          valueobject.Amount
}

// AggregateCosts sums the costs. An empty slice yields all zeros.
func AggregateCosts(costs []AdditionalCost) CostSummary {
	var summary CostSummary
	for _, c := range costs {
		summary.Total = summary.Total.Add(c.Amount)
		switch c.BillableTo {
		case BillableToClient:
			summary.ClientBillableTotal = summary.ClientBillableTotal.Add(c.Amount)
		case BillableToSupplier:
			summary.SupplierBillableTotal = summary.SupplierBillableTotal.Add(c.Amount)
		case BillableToCompany:
			summary.CompanyTotal = summary.CompanyTotal.Add(c.Amount)
		}
	}
	return summary
}
