package finance

import (
	"context"

	"github.com/google/uuid"
)

// PayableDocumentRepository persists document headers
type PayableDocumentRepository interface {
	// FindByRef finds a document of a tenant by kind and id
	FindByRef(ctx context.Context, tenantID uuid.UUID, ref DocumentRef) (*PayableDocument, error)

	// FindByNumber finds a document of a tenant by kind and number
	FindByNumber(ctx context.Context, tenantID uuid.UUID, kind DocumentKind, number string) (*PayableDocument, error)

	// Save creates or updates a document
	Save(ctx context.Context, doc *PayableDocument) error
}

// StatusWriter persists a status change with optimistic locking on the version
type StatusWriter interface {
	SaveStatus(ctx context.Context, doc *PayableDocument) error
}

// ScheduleRepository persists payment schedule items
type ScheduleRepository interface {
	LedgerReader

	// SaveItems creates or updates the given items
	SaveItems(ctx context.Context, tenantID uuid.UUID, items []ScheduleItem) error

	// FindItem finds one schedule item of a tenant
	FindItem(ctx context.Context, tenantID, itemID uuid.UUID) (*ScheduleItem, error)
}

// PaymentRepository persists payments with their allocations
type PaymentRepository interface {
	// FindByIDForTenant finds a payment with its allocations
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindForUpdate finds a payment and holds a row lock on it for the current transaction
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// Save creates or updates a payment and its allocations
	Save(ctx context.Context, payment *Payment) error
}

// CostReader loads a document's additional costs
type CostReader interface {
	Costs(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) ([]AdditionalCost, error)
}

// CostRepository persists additional costs
type CostRepository interface {
	CostReader

	// SaveCost creates or updates a cost
	SaveCost(ctx context.Context, tenantID uuid.UUID, cost *AdditionalCost) error
}
