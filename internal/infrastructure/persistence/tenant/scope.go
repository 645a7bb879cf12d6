// Package tenant scopes GORM queries to one tenant.
//
// Repositories take the tenant explicitly and apply it with Scopes:
//
//	db.Scopes(tenant.Scope(tenantID)).Where("id = ?", id).First(&model)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant column every tenant-owned table carries
const Column = "tenant_id"

// ErrTenantIDRequired is added to the statement when a scope is built for the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Scope filters on the tenant column of the statement's table
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return ScopeColumn(Column, tenantID)
}

// ScopeColumn filters on a qualified tenant column, e.g. "a.tenant_id" in joins
func ScopeColumn(column string, tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(column+" = ?", tenantID)
	}
}
