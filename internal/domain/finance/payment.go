package finance

import (
	"fmt"
	"time"

	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents the approval state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusApproved  PaymentStatus = "APPROVED"
	PaymentStatusRejected  PaymentStatus = "REJECTED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a known PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CountsTowardLedger reports whether allocations of a payment in this status are paid money
func (s PaymentStatus) CountsTowardLedger() bool {
	return s == PaymentStatusApproved
}

// CanAllocate returns true if the payment can still be split over schedule items
func (s PaymentStatus) CanAllocate() bool {
	return s == PaymentStatusPending
}

// Allocation is the portion of a payment applied to one schedule item.
// PaymentStatus is the parent payment's status as seen when the allocation was loaded.
type Allocation struct {
	ID             uuid.UUID
	PaymentID      uuid.UUID
	ScheduleItemID uuid.UUID
	Amount         valueobject.Amount
	PaymentStatus  PaymentStatus
	AllocatedAt    time.Time
	AllocatedBy    uuid.UUID
}

// Payment is money received from or paid to a counterparty, split over schedule items
type Payment struct {
	shared.TenantAggregateRoot
	Number      string
	Status      PaymentStatus
	Amount      valueobject.Amount
	Allocations []Allocation
	ReviewedBy  *uuid.UUID
	ReviewedAt  *time.Time
	Remark      string
}

// NewPayment creates a pending payment
func NewPayment(tenantID uuid.UUID, number string, amount valueobject.Amount, stamp shared.Stamp) (*Payment, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot exceed 50 characters")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	if err := stamp.Validate(); err != nil {
		return nil, err
	}
	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, stamp),
		Number:              number,
		Status:              PaymentStatusPending,
		Amount:              amount,
		Allocations:         make([]Allocation, 0),
	}, nil
}

// AllocatedAmount returns the sum of all allocations
func (p *Payment) AllocatedAmount() valueobject.Amount {
	var total valueobject.Amount
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// UnallocatedAmount returns the part of the payment not yet applied to schedule items.
// Allocate keeps it non-negative.
func (p *Payment) UnallocatedAmount() valueobject.Amount {
	return p.Amount.Sub(p.AllocatedAmount())
}

// Allocate applies amount of this payment to the schedule item.
// The over-allocation check runs before anything is mutated.
func (p *Payment) Allocate(item ScheduleItem, amount valueobject.Amount, stamp shared.Stamp) (*Allocation, error) {
	if err := stamp.Validate(); err != nil {
		return nil, err
	}
	if !p.Status.CanAllocate() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot allocate payment in %s status", p.Status))
	}
	if item.ID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SCHEDULE_ITEM", "Schedule item ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Allocation amount must be positive")
	}
	if unallocated := p.UnallocatedAmount(); amount > unallocated {
		return nil, shared.NewDomainError(shared.CodeOverAllocation,
			fmt.Sprintf("Allocation amount %s exceeds unallocated amount %s", amount, unallocated))
	}

	allocation := Allocation{
		ID:             uuid.New(),
		PaymentID:      p.ID,
		ScheduleItemID: item.ID,
		Amount:         amount,
		PaymentStatus:  p.Status,
		AllocatedAt:    stamp.At,
		AllocatedBy:    stamp.ActorID,
	}
	p.Allocations = append(p.Allocations, allocation)
	p.Touch(stamp)
	p.IncrementVersion()

	return &allocation, nil
}

// Approve marks the payment as approved; its allocations start counting as paid
func (p *Payment) Approve(stamp shared.Stamp) error {
	return p.review(PaymentStatusApproved, stamp)
}

// Reject marks the payment as rejected; its allocations never count as paid
func (p *Payment) Reject(stamp shared.Stamp, reason string) error {
	if err := p.review(PaymentStatusRejected, stamp); err != nil {
		return err
	}
	p.Remark = reason
	return nil
}

// Cancel withdraws a pending payment
func (p *Payment) Cancel(stamp shared.Stamp) error {
	return p.review(PaymentStatusCancelled, stamp)
}

func (p *Payment) review(target PaymentStatus, stamp shared.Stamp) error {
	if err := stamp.Validate(); err != nil {
		return err
	}
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot change payment %s from %s to %s", p.Number, p.Status, target))
	}

	actor, at := stamp.ActorID, stamp.At
	p.Status = target
	p.ReviewedBy = &actor
	p.ReviewedAt = &at
	for i := range p.Allocations {
		p.Allocations[i].PaymentStatus = target
	}
	p.Touch(stamp)
	p.IncrementVersion()
	return nil
}
