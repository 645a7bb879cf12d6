package finance

import (
	"fmt"
	"slices"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentKind is the closed set of documents that carry a payment schedule and additional costs.
// Adding a variant means extending this type and every switch over it.
type DocumentKind string

const (
	DocumentQuotation       DocumentKind = "QUOTATION"
	DocumentProformaInvoice DocumentKind = "PROFORMA_INVOICE"
	DocumentPurchaseOrder   DocumentKind = "PURCHASE_ORDER"
	DocumentShipment        DocumentKind = "SHIPMENT"
)

// AllDocumentKinds lists every payable document kind
var AllDocumentKinds = []DocumentKind{
	DocumentQuotation,
	DocumentProformaInvoice,
	DocumentPurchaseOrder,
	DocumentShipment,
}

// ParseDocumentKind converts a string into a DocumentKind
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !k.IsValid() {
		return "", shared.NewDomainError("INVALID_DOCUMENT_KIND", fmt.Sprintf("Unknown document kind %q", s))
	}
	return k, nil
}

// IsValid checks if the kind is a known DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentQuotation, DocumentProformaInvoice, DocumentPurchaseOrder, DocumentShipment:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// Statuses returns the lifecycle of the document kind in order
func (k DocumentKind) Statuses() []Status {
	switch k {
	case DocumentQuotation:
		return []Status{StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired}
	case DocumentProformaInvoice:
		return []Status{StatusDraft, StatusSent, StatusConfirmed, StatusPaid, StatusCancelled}
	case DocumentPurchaseOrder:
		return []Status{StatusDraft, StatusConfirmed, StatusInProduction, StatusReady, StatusShipped, StatusCompleted, StatusCancelled}
	case DocumentShipment:
		return []Status{StatusPlanned, StatusBooked, StatusInTransit, StatusArrived, StatusDelivered, StatusCancelled}
	}
	return nil
}

// InitialStatus returns the status a new document of the kind starts in
func (k DocumentKind) InitialStatus() Status {
	statuses := k.Statuses()
	if len(statuses) == 0 {
		return ""
	}
	return statuses[0]
}

// Allows reports whether status belongs to the kind's lifecycle
func (k DocumentKind) Allows(status Status) bool {
	return slices.Contains(k.Statuses(), status)
}

// Status is a document status. Valid values depend on the DocumentKind.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusSent         Status = "SENT"
	StatusAccepted     Status = "ACCEPTED"
	StatusRejected     Status = "REJECTED"
	StatusExpired      Status = "EXPIRED"
	StatusConfirmed    Status = "CONFIRMED"
	StatusPaid         Status = "PAID"
	StatusInProduction Status = "IN_PRODUCTION"
	StatusReady        Status = "READY"
	StatusShipped      Status = "SHIPPED"
	StatusCompleted    Status = "COMPLETED"
	StatusPlanned      Status = "PLANNED"
	StatusBooked       Status = "BOOKED"
	StatusInTransit    Status = "IN_TRANSIT"
	StatusArrived      Status = "ARRIVED"
	StatusDelivered    Status = "DELIVERED"
	StatusCancelled    Status = "CANCELLED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// DocumentRef identifies a payable document: the tagged pair of kind and id
type DocumentRef struct {
	Kind DocumentKind
	ID   uuid.UUID
}

// NewDocumentRef creates a validated document reference
func NewDocumentRef(kind DocumentKind, id uuid.UUID) (DocumentRef, error) {
	ref := DocumentRef{Kind: kind, ID: id}
	if err := ref.Validate(); err != nil {
		return DocumentRef{}, err
	}
	return ref, nil
}

// Validate checks both parts of the reference
func (r DocumentRef) Validate() error {
	if !r.Kind.IsValid() {
		return shared.NewDomainError("INVALID_DOCUMENT_KIND", fmt.Sprintf("Unknown document kind %q", r.Kind))
	}
	if r.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	return nil
}

// String returns "KIND/id"
func (r DocumentRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// PayableDocument is the status-bearing header of a quotation, proforma invoice,
// purchase order or shipment. Line data belongs to the surrounding application.
type PayableDocument struct {
	shared.TenantAggregateRoot
	Kind            DocumentKind
	Number          string
	Status          Status
	StatusChangedBy *uuid.UUID
}

// NewPayableDocument creates a document header in the kind's initial status
func NewPayableDocument(tenantID uuid.UUID, kind DocumentKind, number string, stamp shared.Stamp) (*PayableDocument, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_KIND", fmt.Sprintf("Unknown document kind %q", kind))
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 50 characters")
	}
	if err := stamp.Validate(); err != nil {
		return nil, err
	}
	return &PayableDocument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, stamp),
		Kind:                kind,
		Number:              number,
		Status:              kind.InitialStatus(),
	}, nil
}

// Ref returns the document reference
func (d *PayableDocument) Ref() DocumentRef {
	return DocumentRef{Kind: d.Kind, ID: d.ID}
}

// TransitionTo moves the document to target.
// Payment blockers are checked by the caller before this is invoked.
func (d *PayableDocument) TransitionTo(target Status, stamp shared.Stamp) error {
	if err := stamp.Validate(); err != nil {
		return err
	}
	if !d.Kind.Allows(target) {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Status %s is not valid for %s", target, d.Kind))
	}
	if d.Status == target {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("%s %s is already %s", d.Kind, d.Number, target))
	}
	if d.Status == StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot change status of cancelled %s %s", d.Kind, d.Number))
	}

	actor := stamp.ActorID
	d.Status = target
	d.StatusChangedBy = &actor
	d.Touch(stamp)
	d.IncrementVersion()
	return nil
}
