package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memoryRecord struct {
	tenantID uuid.UUID
	kind     Kind
	prefix   string
	number   int64
	deleted  bool
}

// memoryDB is a test double: one transaction at a time, commit-time uniqueness check.
type memoryDB struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	issued map[string]memoryRecord

	conflicts    int
	lockErr      error
	lockCalls    int
	reserveCalls int
	commits      int
}

func newMemoryDB() *memoryDB {
	return &memoryDB{issued: make(map[string]memoryRecord)}
}

func (db *memoryDB) seed(tenantID uuid.UUID, kind Kind, prefix string, number int64, deleted bool) string {
	scope := NewScope(tenantID, kind, prefix)
	id := scope.Format(number)
	db.issued[id] = memoryRecord{tenantID: tenantID, kind: kind, prefix: scope.Prefix, number: number, deleted: deleted}
	return id
}

func (db *memoryDB) Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	tx := &memoryTx{db: db, pending: make(map[string]memoryRecord)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	for id := range tx.pending {
		if _, exists := db.issued[id]; exists {
			return fmt.Errorf("commit %s: %w", id, ErrUniqueConflict)
		}
	}
	for id, rec := range tx.pending {
		db.issued[id] = rec
	}
	db.commits++
	return nil
}

func (db *memoryDB) LatestIdentifier(_ context.Context, scope Scope) (string, bool, error) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	return latest(db.issued, nil, scope)
}

func (db *memoryDB) CountIdentifiers(_ context.Context, tenantID uuid.UUID, kind Kind) (int64, error) {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	return count(db.issued, nil, tenantID, kind), nil
}

func (db *memoryDB) identifiers() []string {
	db.dataMu.Lock()
	defer db.dataMu.Unlock()
	ids := make([]string, 0, len(db.issued))
	for id := range db.issued {
		ids = append(ids, id)
	}
	return ids
}

type memoryTx struct {
	db      *memoryDB
	pending map[string]memoryRecord
}

func (tx *memoryTx) LockScope(_ context.Context, _ Scope) error {
	tx.db.lockCalls++
	return tx.db.lockErr
}

func (tx *memoryTx) LatestIdentifier(_ context.Context, scope Scope) (string, bool, error) {
	tx.db.dataMu.Lock()
	defer tx.db.dataMu.Unlock()
	return latest(tx.db.issued, tx.pending, scope)
}

func (tx *memoryTx) CountIdentifiers(_ context.Context, tenantID uuid.UUID, kind Kind) (int64, error) {
	tx.db.dataMu.Lock()
	defer tx.db.dataMu.Unlock()
	return count(tx.db.issued, tx.pending, tenantID, kind), nil
}

func (tx *memoryTx) Reserve(_ context.Context, scope Scope, identifier string, number int64) error {
	tx.db.reserveCalls++
	if tx.db.conflicts > 0 {
		tx.db.conflicts--
		return fmt.Errorf("insert %s: %w", identifier, ErrUniqueConflict)
	}
	tx.pending[identifier] = memoryRecord{tenantID: scope.TenantID, kind: scope.Kind, prefix: scope.Prefix, number: number}
	return nil
}

func latest(committed, pending map[string]memoryRecord, scope Scope) (string, bool, error) {
	var best string
	var bestNumber int64 = -1
	for _, set := range []map[string]memoryRecord{committed, pending} {
		for id, rec := range set {
			if rec.tenantID != scope.TenantID || rec.kind != scope.Kind || rec.prefix != scope.Prefix {
				continue
			}
			if rec.number > bestNumber {
				best, bestNumber = id, rec.number
			}
		}
	}
	return best, bestNumber >= 0, nil
}

func count(committed, pending map[string]memoryRecord, tenantID uuid.UUID, kind Kind) int64 {
	var n int64
	for _, set := range []map[string]memoryRecord{committed, pending} {
		for _, rec := range set {
			if rec.tenantID == tenantID && rec.kind == kind {
				n++
			}
		}
	}
	return n
}

type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []Outcome
	exhausted int
}

func (o *recordingObserver) AttemptFinished(_ context.Context, _ Scope, _ int, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) Exhausted(_ context.Context, _ Scope, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exhausted++
}
