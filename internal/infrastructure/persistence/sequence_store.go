package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceReader reads sequence state outside of any lock, for previews
type GormSequenceReader struct {
	db *gorm.DB
}

// NewGormSequenceReader creates a new GormSequenceReader
func NewGormSequenceReader(db *gorm.DB) *GormSequenceReader {
	return &GormSequenceReader{db: db}
}

// LatestIdentifier implements sequence.Reader
func (r *GormSequenceReader) LatestIdentifier(ctx context.Context, scope sequence.Scope) (string, bool, error) {
	return latestIdentifier(GetDB(ctx, r.db), scope)
}

// CountIdentifiers implements sequence.Reader
func (r *GormSequenceReader) CountIdentifiers(ctx context.Context, tenantID uuid.UUID, kind sequence.Kind) (int64, error) {
	return countIdentifiers(GetDB(ctx, r.db), tenantID, kind)
}

// GormSequenceUnitOfWork runs allocation attempts in database transactions
type GormSequenceUnitOfWork struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSequenceUnitOfWork creates a new GormSequenceUnitOfWork
func NewGormSequenceUnitOfWork(db *gorm.DB) *GormSequenceUnitOfWork {
	return &GormSequenceUnitOfWork{db: db, now: time.Now}
}

// Do implements sequence.UnitOfWork. The transaction is placed in the context handed to fn,
// so repositories used by persist callbacks write through it. Unique violations raised by
// any statement or by the commit are reported as sequence.ErrUniqueConflict.
func (u *GormSequenceUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store sequence.Store) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx, &gormSequenceStore{tx: tx, now: u.now})
	})
	if err != nil && !errors.Is(err, sequence.ErrUniqueConflict) && IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", sequence.ErrUniqueConflict, err)
	}
	return err
}

// gormSequenceStore is the sequence.Store bound to one transaction
type gormSequenceStore struct {
	tx  *gorm.DB
	now func() time.Time
}

func (s *gormSequenceStore) LatestIdentifier(ctx context.Context, scope sequence.Scope) (string, bool, error) {
	return latestIdentifier(s.tx.WithContext(ctx), scope)
}

func (s *gormSequenceStore) CountIdentifiers(ctx context.Context, tenantID uuid.UUID, kind sequence.Kind) (int64, error) {
	return countIdentifiers(s.tx.WithContext(ctx), tenantID, kind)
}

// LockScope creates the scope row on first use, then locks it until the transaction ends
func (s *gormSequenceStore) LockScope(ctx context.Context, scope sequence.Scope) error {
	db := s.tx.WithContext(ctx)
	row := models.SequenceScopeModelFromScope(scope)
	now := s.now()
	row.CreatedAt, row.UpdatedAt = now, now

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return fmt.Errorf("create scope row: %w", err)
	}

	var locked models.SequenceScopeModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND kind = ? AND prefix = ?", scope.TenantID, scope.Kind.String(), scope.Prefix).
		First(&locked).Error
	if err != nil {
		return fmt.Errorf("lock scope row: %w", err)
	}
	return nil
}

// Reserve records the identifier and advances the scope row
func (s *gormSequenceStore) Reserve(ctx context.Context, scope sequence.Scope, identifier string, number int64) error {
	db := s.tx.WithContext(ctx)
	now := s.now()

	if err := db.Create(models.NewSequenceIdentifierModel(scope, identifier, number, now)).Error; err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", sequence.ErrUniqueConflict, identifier)
		}
		return fmt.Errorf("reserve identifier: %w", err)
	}

	return db.Model(&models.SequenceScopeModel{}).
		Where("tenant_id = ? AND kind = ? AND prefix = ?", scope.TenantID, scope.Kind.String(), scope.Prefix).
		Updates(map[string]any{
			"last_identifier": identifier,
			"last_number":     number,
			"updated_at":      now,
		}).Error
}

// latestIdentifier includes soft-deleted rows so archived numbers stay taken
func latestIdentifier(db *gorm.DB, scope sequence.Scope) (string, bool, error) {
	var row models.SequenceIdentifierModel
	err := db.Unscoped().
		Where("tenant_id = ? AND kind = ? AND prefix = ?", scope.TenantID, scope.Kind.String(), scope.Prefix).
		Order("number DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return "", false, err
	}
	if row.Identifier == "" {
		return "", false, nil
	}
	return row.Identifier, true, nil
}

func countIdentifiers(db *gorm.DB, tenantID uuid.UUID, kind sequence.Kind) (int64, error) {
	var count int64
	err := db.Unscoped().
		Model(&models.SequenceIdentifierModel{}).
		Where("tenant_id = ? AND kind = ?", tenantID, kind.String()).
		Count(&count).Error
	return count, err
}

// ArchiveIdentifier soft-deletes an issued identifier. Its number stays reserved.
func (r *GormSequenceReader) ArchiveIdentifier(ctx context.Context, tenantID uuid.UUID, kind sequence.Kind, identifier string) error {
	result := GetDB(ctx, r.db).
		Where("tenant_id = ? AND kind = ? AND identifier = ?", tenantID, kind.String(), identifier).
		Delete(&models.SequenceIdentifierModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
