package persistence

import (
	"context"
	"errors"

	"github.com/erp/tradecore/internal/domain/finance"
	"github.com/erp/tradecore/internal/domain/shared"
	"github.com/erp/tradecore/internal/infrastructure/persistence/models"
	"github.com/erp/tradecore/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPayableDocumentRepository implements finance.PayableDocumentRepository using GORM
type GormPayableDocumentRepository struct {
	db *gorm.DB
}

// NewGormPayableDocumentRepository creates a new GormPayableDocumentRepository
func NewGormPayableDocumentRepository(db *gorm.DB) *GormPayableDocumentRepository {
	return &GormPayableDocumentRepository{db: db}
}

// FindByRef finds a document of a tenant by kind and id
func (r *GormPayableDocumentRepository) FindByRef(ctx context.Context, tenantID uuid.UUID, ref finance.DocumentRef) (*finance.PayableDocument, error) {
	var model models.PayableDocumentModel
	if err := GetDB(ctx, r.db).
		Scopes(tenant.Scope(tenantID)).
		Where("kind = ? AND id = ?", ref.Kind.String(), ref.ID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a document of a tenant by kind and number
func (r *GormPayableDocumentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, number string) (*finance.PayableDocument, error) {
	var model models.PayableDocumentModel
	if err := GetDB(ctx, r.db).
		Scopes(tenant.Scope(tenantID)).
		Where("kind = ? AND number = ?", kind.String(), number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a document
func (r *GormPayableDocumentRepository) Save(ctx context.Context, doc *finance.PayableDocument) error {
	return GetDB(ctx, r.db).Save(models.PayableDocumentModelFromDomain(doc)).Error
}

// SaveStatus persists a status change with optimistic locking.
// The document's version must already be incremented by the transition.
func (r *GormPayableDocumentRepository) SaveStatus(ctx context.Context, doc *finance.PayableDocument) error {
	result := GetDB(ctx, r.db).
		Model(&models.PayableDocumentModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", doc.TenantID, doc.ID, doc.Version-1).
		Updates(map[string]any{
			"status":            doc.Status.String(),
			"status_changed_by": doc.StatusChangedBy,
			"version":           doc.Version,
			"updated_at":        doc.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// GormScheduleRepository implements finance.ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// ScheduleItems implements finance.LedgerReader
func (r *GormScheduleRepository) ScheduleItems(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) ([]finance.ScheduleItem, error) {
	var rows []models.ScheduleItemModel
	if err := GetDB(ctx, r.db).
		Scopes(tenant.Scope(tenantID)).
		Where("document_kind = ? AND document_id = ?", doc.Kind.String(), doc.ID).
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]finance.ScheduleItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// Allocations implements finance.LedgerReader. Every allocation of the document's items is
// returned with its payment's current status; the ledger decides which ones count.
func (r *GormScheduleRepository) Allocations(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) ([]finance.Allocation, error) {
	var rows []models.AllocationRow
	if err := GetDB(ctx, r.db).
		Table("payment_allocations AS a").
		Select("a.*, p.status AS payment_status").
		Joins("JOIN payments p ON p.id = a.payment_id AND p.tenant_id = a.tenant_id").
		Joins("JOIN payment_schedule_items s ON s.id = a.schedule_item_id AND s.tenant_id = a.tenant_id").
		Scopes(tenant.ScopeColumn("a.tenant_id", tenantID)).
		Where("s.document_kind = ? AND s.document_id = ?", doc.Kind.String(), doc.ID).
		Order("a.allocated_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	allocations := make([]finance.Allocation, len(rows))
	for i := range rows {
		allocations[i] = rows[i].ToDomain()
	}
	return allocations, nil
}

// SaveItems creates or updates the given items
func (r *GormScheduleRepository) SaveItems(ctx context.Context, tenantID uuid.UUID, items []finance.ScheduleItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.ScheduleItemModel, len(items))
	for i, item := range items {
		rows[i] = models.ScheduleItemModelFromDomain(tenantID, item)
	}
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "sort_order", "amount", "due_stage", "updated_at"}),
		}).
		Create(&rows).Error
}

// FindItem finds one schedule item of a tenant
func (r *GormScheduleRepository) FindItem(ctx context.Context, tenantID, itemID uuid.UUID) (*finance.ScheduleItem, error) {
	var row models.ScheduleItemModel
	if err := GetDB(ctx, r.db).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", itemID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	item := row.ToDomain()
	return &item, nil
}

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment with its allocations
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	return r.find(GetDB(ctx, r.db), tenantID, id)
}

// FindForUpdate finds a payment and locks its row until the surrounding transaction ends
func (r *GormPaymentRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	return r.find(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormPaymentRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := db.
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("allocated_at ASC")
		}).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a payment. Allocations are immutable once written,
// so existing ones are left untouched and new ones inserted.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	db := GetDB(ctx, r.db)
	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}
	if len(model.Allocations) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Allocations).Error
}

// GormCostRepository implements finance.CostRepository using GORM
type GormCostRepository struct {
	db *gorm.DB
}

// NewGormCostRepository creates a new GormCostRepository
func NewGormCostRepository(db *gorm.DB) *GormCostRepository {
	return &GormCostRepository{db: db}
}

// Costs returns the additional costs of a document
func (r *GormCostRepository) Costs(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) ([]finance.AdditionalCost, error) {
	var rows []models.AdditionalCostModel
	if err := GetDB(ctx, r.db).
		Scopes(tenant.Scope(tenantID)).
		Where("document_kind = ? AND document_id = ?", doc.Kind.String(), doc.ID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	costs := make([]finance.AdditionalCost, len(rows))
	for i := range rows {
		costs[i] = rows[i].ToDomain()
	}
	return costs, nil
}

// SaveCost creates or updates a cost
func (r *GormCostRepository) SaveCost(ctx context.Context, tenantID uuid.UUID, cost *finance.AdditionalCost) error {
	return GetDB(ctx, r.db).Save(models.AdditionalCostModelFromDomain(tenantID, cost)).Error
}

var (
	_ finance.PayableDocumentRepository = (*GormPayableDocumentRepository)(nil)
	_ finance.StatusWriter              = (*GormPayableDocumentRepository)(nil)
	_ finance.ScheduleRepository        = (*GormScheduleRepository)(nil)
	_ finance.PaymentRepository         = (*GormPaymentRepository)(nil)
	_ finance.CostRepository            = (*GormCostRepository)(nil)
)
