package sequence

import (
	"context"

	"github.com/google/uuid"
)

// Reader reads the current state of a scope without taking any lock
type Reader interface {
	// LatestIdentifier returns the identifier with the highest numeric suffix in the scope.
	// Archived and soft-deleted records MUST be included, otherwise numbers could be reused.
	LatestIdentifier(ctx context.Context, scope Scope) (identifier string, found bool, err error)

	// CountIdentifiers counts every identifier of a kind for a tenant across all prefixes,
	// archived and soft-deleted records included.
	CountIdentifiers(ctx context.Context, tenantID uuid.UUID, kind Kind) (int64, error)
}

// Store is the transactional view of sequence state handed out by a UnitOfWork
type Store interface {
	Reader

	// LockScope takes a row-level lock on the scope, blocking until concurrent holders commit
	LockScope(ctx context.Context, scope Scope) error

	// Reserve records the identifier as issued. A uniqueness violation must be reported
	// as an error matching ErrUniqueConflict.
	Reserve(ctx context.Context, scope Scope, identifier string, number int64) error
}

// UnitOfWork runs fn inside a transaction: commit when fn returns nil, rollback otherwise.
// Commit failures caused by a unique constraint must match ErrUniqueConflict.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
