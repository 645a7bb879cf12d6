package models

import (
	"time"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableDocumentModel is the persistence model for finance.PayableDocument
type PayableDocumentModel struct {
	AggregateModel
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_payable_document_number,priority:1"`
	Kind            string     `gorm:"type:varchar(30);not null;uniqueIndex:uq_payable_document_number,priority:2"`
	Number          string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_payable_document_number,priority:3"`
	Status          string     `gorm:"type:varchar(30);not null"`
	StatusChangedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PayableDocumentModel) TableName() string {
	return "payable_documents"
}

// ToDomain converts the persistence model to a domain PayableDocument
func (m *PayableDocumentModel) ToDomain() *finance.PayableDocument {
	doc := &finance.PayableDocument{
		Kind:            finance.DocumentKind(m.Kind),
		Number:          m.Number,
		Status:          finance.Status(m.Status),
		StatusChangedBy: m.StatusChangedBy,
	}
	m.PopulateTenantAggregateRoot(&doc.TenantAggregateRoot, m.TenantID)
	return doc
}

// FromDomain populates the persistence model from a domain PayableDocument
func (m *PayableDocumentModel) FromDomain(doc *finance.PayableDocument) {
	m.FromDomainTenantAggregateRoot(doc.TenantAggregateRoot)
	m.TenantID = doc.TenantID
	m.Kind = doc.Kind.String()
	m.Number = doc.Number
	m.Status = doc.Status.String()
	m.StatusChangedBy = doc.StatusChangedBy
}

// PayableDocumentModelFromDomain creates a new persistence model from a domain PayableDocument
func PayableDocumentModelFromDomain(doc *finance.PayableDocument) *PayableDocumentModel {
	m := &PayableDocumentModel{}
	m.FromDomain(doc)
	return m
}

// ScheduleItemModel is the persistence model for finance.ScheduleItem
type ScheduleItemModel struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID          `gorm:"type:uuid;not null;index:idx_schedule_document,priority:1"`
	DocumentKind string             `gorm:"type:varchar(30);not null;index:idx_schedule_document,priority:2"`
	DocumentID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_schedule_document,priority:3"`
	Label        string             `gorm:"type:varchar(200);not null"`
	SortOrder    int                `gorm:"not null;default:0"`
	Amount       valueobject.Amount `gorm:"type:bigint;not null"`
	DueStage     *int
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ScheduleItemModel) TableName() string {
	return "payment_schedule_items"
}

// ToDomain converts the persistence model to a domain ScheduleItem
func (m *ScheduleItemModel) ToDomain() finance.ScheduleItem {
	return finance.ScheduleItem{
		ID:        m.ID,
		Document:  finance.DocumentRef{Kind: finance.DocumentKind(m.DocumentKind), ID: m.DocumentID},
		Label:     m.Label,
		SortOrder: m.SortOrder,
		Amount:    m.Amount,
		DueStage:  m.DueStage,
	}
}

// ScheduleItemModelFromDomain creates a persistence model from a domain ScheduleItem
func ScheduleItemModelFromDomain(tenantID uuid.UUID, item finance.ScheduleItem) *ScheduleItemModel {
	return &ScheduleItemModel{
		ID:           item.ID,
		TenantID:     tenantID,
		DocumentKind: item.Document.Kind.String(),
		DocumentID:   item.Document.ID,
		Label:        item.Label,
		SortOrder:    item.SortOrder,
		Amount:       item.Amount,
		DueStage:     item.DueStage,
	}
}

// PaymentModel is the persistence model for finance.Payment
type PaymentModel struct {
	AggregateModel
	TenantID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uq_payment_number,priority:1"`
	Number      string             `gorm:"type:varchar(50);not null;uniqueIndex:uq_payment_number,priority:2"`
	Status      string             `gorm:"type:varchar(20);not null"`
	Amount      valueobject.Amount `gorm:"type:bigint;not null"`
	ReviewedBy  *uuid.UUID         `gorm:"type:uuid"`
	ReviewedAt  *time.Time
	Remark      string            `gorm:"type:varchar(500)"`
	Allocations []AllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	status := finance.PaymentStatus(m.Status)
	payment := &finance.Payment{
		Number:      m.Number,
		Status:      status,
		Amount:      m.Amount,
		ReviewedBy:  m.ReviewedBy,
		ReviewedAt:  m.ReviewedAt,
		Remark:      m.Remark,
		Allocations: make([]finance.Allocation, len(m.Allocations)),
	}
	m.PopulateTenantAggregateRoot(&payment.TenantAggregateRoot, m.TenantID)
	for i := range m.Allocations {
		payment.Allocations[i] = m.Allocations[i].ToDomain(status)
	}
	return payment
}

// PaymentModelFromDomain creates a persistence model from a domain Payment, allocations included
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		Number:      p.Number,
		Status:      p.Status.String(),
		Amount:      p.Amount,
		ReviewedBy:  p.ReviewedBy,
		ReviewedAt:  p.ReviewedAt,
		Remark:      p.Remark,
		Allocations: make([]AllocationModel, len(p.Allocations)),
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.TenantID = p.TenantID
	for i, a := range p.Allocations {
		m.Allocations[i] = *AllocationModelFromDomain(p.TenantID, a)
	}
	return m
}

// AllocationModel is the persistence model for finance.Allocation.
// The payment status is not stored here; it is read from the parent payment.
type AllocationModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	PaymentID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	ScheduleItemID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Amount         valueobject.Amount `gorm:"type:bigint;not null"`
	AllocatedAt    time.Time          `gorm:"not null"`
	AllocatedBy    uuid.UUID          `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation with the parent's status
func (m *AllocationModel) ToDomain(status finance.PaymentStatus) finance.Allocation {
	return finance.Allocation{
		ID:             m.ID,
		PaymentID:      m.PaymentID,
		ScheduleItemID: m.ScheduleItemID,
		Amount:         m.Amount,
		PaymentStatus:  status,
		AllocatedAt:    m.AllocatedAt,
		AllocatedBy:    m.AllocatedBy,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain Allocation
func AllocationModelFromDomain(tenantID uuid.UUID, a finance.Allocation) *AllocationModel {
	return &AllocationModel{
		ID:             a.ID,
		TenantID:       tenantID,
		PaymentID:      a.PaymentID,
		ScheduleItemID: a.ScheduleItemID,
		Amount:         a.Amount,
		AllocatedAt:    a.AllocatedAt,
		AllocatedBy:    a.AllocatedBy,
	}
}

// AllocationRow is an allocation joined with its payment's status
type AllocationRow struct {
	AllocationModel
	PaymentStatus string
}

// ToDomain converts the joined row to a domain Allocation
func (r *AllocationRow) ToDomain() finance.Allocation {
	return r.AllocationModel.ToDomain(finance.PaymentStatus(r.PaymentStatus))
}

// AdditionalCostModel is the persistence model for finance.AdditionalCost
type AdditionalCostModel struct {
	BaseModel
	TenantID     uuid.UUID          `gorm:"type:uuid;not null;index:idx_cost_document,priority:1"`
	DocumentKind string             `gorm:"type:varchar(30);not null;index:idx_cost_document,priority:2"`
	DocumentID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_cost_document,priority:3"`
	Description  string             `gorm:"type:varchar(500);not null"`
	Amount       valueobject.Amount `gorm:"type:bigint;not null"`
	BillableTo   string             `gorm:"type:varchar(20);not null"`
	CreatedBy    uuid.UUID          `gorm:"type:uuid;not null"`

	OriginalAmount   *valueobject.Amount `gorm:"type:bigint"`
	OriginalCurrency *string             `gorm:"type:varchar(3)"`
	ExchangeRate     decimal.NullDecimal `gorm:"type:numeric(18,8)"`
}

// TableName returns the table name for GORM
func (AdditionalCostModel) TableName() string {
	return "additional_costs"
}

// ToDomain converts the persistence model to a domain AdditionalCost
func (m *AdditionalCostModel) ToDomain() finance.AdditionalCost {
	cost := finance.AdditionalCost{
		ID:          m.ID,
		Document:    finance.DocumentRef{Kind: finance.DocumentKind(m.DocumentKind), ID: m.DocumentID},
		Description: m.Description,
		Amount:      m.Amount,
		BillableTo:  finance.BillableTo(m.BillableTo),
		CreatedBy:   m.CreatedBy,
	}
	if m.OriginalAmount != nil && m.OriginalCurrency != nil {
		if original, err := valueobject.NewMoney(*m.OriginalAmount, valueobject.Currency(*m.OriginalCurrency)); err == nil {
			cost.Original = &original
			cost.ExchangeRate = m.ExchangeRate.Decimal
		}
	}
	return cost
}

// AdditionalCostModelFromDomain creates a persistence model from a domain AdditionalCost
func AdditionalCostModelFromDomain(tenantID uuid.UUID, c *finance.AdditionalCost) *AdditionalCostModel {
	m := &AdditionalCostModel{
		BaseModel:    BaseModel{ID: c.ID},
		TenantID:     tenantID,
		DocumentKind: c.Document.Kind.String(),
		DocumentID:   c.Document.ID,
		Description:  c.Description,
		Amount:       c.Amount,
		BillableTo:   c.BillableTo.String(),
		CreatedBy:    c.CreatedBy,
	}
	if c.Original != nil {
		amount := c.Original.Amount()
		currency := string(c.Original.Currency())
		m.OriginalAmount = &amount
		m.OriginalCurrency = &currency
		m.ExchangeRate = decimal.NewNullDecimal(c.ExchangeRate)
	}
	return m
}

// AllModels lists every model for AutoMigrate in tests and the sqlite driver
func AllModels() []any {
	return []any{
		&SequenceScopeModel{},
		&SequenceIdentifierModel{},
		&PayableDocumentModel{},
		&ScheduleItemModel{},
		&PaymentModel{},
		&AllocationModel{},
		&AdditionalCostModel{},
	}
}
