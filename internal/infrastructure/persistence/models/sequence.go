package models

import (
	"time"

	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SequenceScopeModel is the lock row of a numbering scope.
// Allocations serialize on SELECT ... FOR UPDATE of this row.
type SequenceScopeModel struct {
	TenantID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind           string    `gorm:"type:varchar(30);primaryKey"`
	Prefix         string    `gorm:"type:varchar(40);primaryKey"`
	LastIdentifier string    `gorm:"type:varchar(64)"`
	LastNumber     int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceScopeModel) TableName() string {
	return "sequence_scopes"
}

// SequenceScopeModelFromScope builds the lock row of a scope
func SequenceScopeModelFromScope(scope sequence.Scope) *SequenceScopeModel {
	return &SequenceScopeModel{
		TenantID: scope.TenantID,
		Kind:     scope.Kind.String(),
		Prefix:   scope.Prefix,
	}
}

// SequenceIdentifierModel records an issued identifier. Rows are never hard-deleted:
// archived documents keep their numbers reserved.
type SequenceIdentifierModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_sequence_identifier,priority:1;index:idx_sequence_scope,priority:1"`
	Kind       string         `gorm:"type:varchar(30);not null;uniqueIndex:uq_sequence_identifier,priority:2;index:idx_sequence_scope,priority:2"`
	Prefix     string         `gorm:"type:varchar(40);not null;index:idx_sequence_scope,priority:3"`
	Identifier string         `gorm:"type:varchar(64);not null;uniqueIndex:uq_sequence_identifier,priority:3"`
	Number     int64          `gorm:"not null;index:idx_sequence_scope,priority:4"`
	CreatedAt  time.Time      `gorm:"not null"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (SequenceIdentifierModel) TableName() string {
	return "sequence_identifiers"
}

// NewSequenceIdentifierModel builds the record of an issued identifier
func NewSequenceIdentifierModel(scope sequence.Scope, identifier string, number int64, at time.Time) *SequenceIdentifierModel {
	return &SequenceIdentifierModel{
		ID:         uuid.New(),
		TenantID:   scope.TenantID,
		Kind:       scope.Kind.String(),
		Prefix:     scope.Prefix,
		Identifier: identifier,
		Number:     number,
		CreatedAt:  at,
	}
}
