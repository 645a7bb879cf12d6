package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot(stamp Stamp) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(stamp),
		Version:    1,
	}
}

// TenantAggregateRoot extends BaseAggregateRoot with multi-tenant support
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID // User who created this record
}

// NewTenantAggregateRoot creates a new tenant-scoped aggregate root.
// The creator is taken from the stamp.
func NewTenantAggregateRoot(tenantID uuid.UUID, stamp Stamp) TenantAggregateRoot {
	root := TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(stamp),
		TenantID:          tenantID,
	}
	if stamp.ActorID != uuid.Nil {
		createdBy := stamp.ActorID
		root.CreatedBy = &createdBy
	}
	return root
}
