package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/infrastructure/persistence/models"
	"github.com/campus/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. Dialects without row locks
// (sqlite) drop the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GormStudentDueRepository implements ledger.StudentDueRepository using GORM
type GormStudentDueRepository struct {
	db *gorm.DB
}

// NewGormStudentDueRepository creates a new GormStudentDueRepository
func NewGormStudentDueRepository(db *gorm.DB) *GormStudentDueRepository {
	return &GormStudentDueRepository{db: db}
}

// FindByStudent returns every materialized period of a student, oldest first
func (r *GormStudentDueRepository) FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]ledger.StudentDue, error) {
	var rows []models.StudentDueModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_id = ?", studentID).
		Order("year ASC, month ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find student dues: %w", err)
	}
	dues := make([]ledger.StudentDue, len(rows))
	for i := range rows {
		dues[i] = *rows[i].ToDomain()
	}
	return dues, nil
}

// FindByStudentAndPeriod finds the container of one period
func (r *GormStudentDueRepository) FindByStudentAndPeriod(ctx context.Context, tenantID, studentID uuid.UUID, period ledger.BillingPeriod) (*ledger.StudentDue, error) {
	var row models.StudentDueModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_id = ? AND year = ? AND month = ?", studentID, period.Year, int(period.Month)).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("no dues for student %s in %s", studentID, period))
		}
		return nil, fmt.Errorf("find student due: %w", err)
	}
	return row.ToDomain(), nil
}

// Create inserts one container
func (r *GormStudentDueRepository) Create(ctx context.Context, due *ledger.StudentDue) error {
	if err := r.db.WithContext(ctx).Create(models.StudentDueModelFromDomain(due)).Error; err != nil {
		return fmt.Errorf("create student due: %w", err)
	}
	return nil
}

// CreateBatch inserts all containers in one statement
func (r *GormStudentDueRepository) CreateBatch(ctx context.Context, dues []*ledger.StudentDue) error {
	if len(dues) == 0 {
		return nil
	}
	rows := make([]*models.StudentDueModel, len(dues))
	for i, d := range dues {
		rows[i] = models.StudentDueModelFromDomain(d)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create student dues: %w", err)
	}
	return nil
}

// GormDueItemRepository implements ledger.DueItemRepository using GORM
type GormDueItemRepository struct {
	db *gorm.DB
}

// NewGormDueItemRepository creates a new GormDueItemRepository
func NewGormDueItemRepository(db *gorm.DB) *GormDueItemRepository {
	return &GormDueItemRepository{db: db}
}

// FindByIDForTenant finds a due item without locking
func (r *GormDueItemRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.DueItem, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds and row-locks a due item
func (r *GormDueItemRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.DueItem, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormDueItemRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*ledger.DueItem, error) {
	var row models.DueItemModel
	if err := db.Scopes(tenant.TenantScope(tenantID)).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFound("due item", id)
		}
		return nil, fmt.Errorf("find due item: %w", err)
	}
	return row.ToDomain(), nil
}

// FindByIDsForUpdate loads and locks every id in a single query
func (r *GormDueItemRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ledger.DueItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.DueItemModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find due items: %w", err)
	}
	return dueItemsToDomain(rows), nil
}

// FindOpenByStudent returns PENDING, PARTIAL and OVERDUE items of a student
func (r *GormDueItemRepository) FindOpenByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]ledger.DueItem, error) {
	var rows []models.DueItemModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_id = ? AND status IN ?", studentID, ledger.OpenDueStatuses()).
		Order("year ASC, month ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find open due items: %w", err)
	}
	return dueItemsToDomain(rows), nil
}

// FindByStudentDue returns the items of one billing period
func (r *GormDueItemRepository) FindByStudentDue(ctx context.Context, tenantID, studentDueID uuid.UUID) ([]ledger.DueItem, error) {
	var rows []models.DueItemModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_due_id = ?", studentDueID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find due items by period: %w", err)
	}
	return dueItemsToDomain(rows), nil
}

func (r *GormDueItemRepository) FindByStudentDues(ctx context.Context, tenantID uuid.UUID, studentDueIDs []uuid.UUID) ([]ledger.DueItem, error) {
	if len(studentDueIDs) == 0 {
		return nil, nil
	}
	var rows []models.DueItemModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_due_id IN ?", studentDueIDs).
		Order("year ASC, month ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find due items by periods: %w", err)
	}
	return dueItemsToDomain(rows), nil
}

// CreateBatch inserts all items in one statement
func (r *GormDueItemRepository) CreateBatch(ctx context.Context, items []*ledger.DueItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.DueItemModel, len(items))
	for i, item := range items {
		rows[i] = models.DueItemModelFromDomain(item)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create due items: %w", err)
	}
	return nil
}

// SaveWithLock writes the mutable columns guarded by the current version and
// bumps it. A zero-row update means the row changed or vanished.
func (r *GormDueItemRepository) SaveWithLock(ctx context.Context, item *ledger.DueItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.DueItemModel{}).
		Scopes(tenant.TenantScope(item.TenantID)).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]any{
			"final_amount": item.FinalAmount.Amount(),
			"paid_amount":  item.PaidAmount.Amount(),
			"status":       item.Status,
			"version":      item.Version + 1,
			"updated_at":   item.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update due item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ConcurrencyConflict("due item", item.ID)
	}
	item.IncrementVersion()
	return nil
}

// MarkOverdue flags every PENDING/PARTIAL item of a period before `before`
func (r *GormDueItemRepository) MarkOverdue(ctx context.Context, tenantID uuid.UUID, before ledger.BillingPeriod) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DueItemModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("status IN ?", []ledger.DueStatus{ledger.DueStatusPending, ledger.DueStatusPartial}).
		Where("(year * 12 + month - 1) < ?", before.Index()).
		Updates(map[string]any{
			"status":     ledger.DueStatusOverdue,
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("mark overdue: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func dueItemsToDomain(rows []models.DueItemModel) []ledger.DueItem {
	items := make([]ledger.DueItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items
}

// GormDueAdjustmentRepository implements ledger.DueAdjustmentRepository using GORM
type GormDueAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormDueAdjustmentRepository creates a new GormDueAdjustmentRepository
func NewGormDueAdjustmentRepository(db *gorm.DB) *GormDueAdjustmentRepository {
	return &GormDueAdjustmentRepository{db: db}
}

// Create inserts one adjustment
func (r *GormDueAdjustmentRepository) Create(ctx context.Context, adj *ledger.DueAdjustment) error {
	if err := r.db.WithContext(ctx).Create(models.DueAdjustmentModelFromDomain(adj)).Error; err != nil {
		return fmt.Errorf("create due adjustment: %w", err)
	}
	return nil
}

// CreateBatch inserts all adjustments in one statement
func (r *GormDueAdjustmentRepository) CreateBatch(ctx context.Context, adjs []*ledger.DueAdjustment) error {
	if len(adjs) == 0 {
		return nil
	}
	rows := make([]*models.DueAdjustmentModel, len(adjs))
	for i, a := range adjs {
		rows[i] = models.DueAdjustmentModelFromDomain(a)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create due adjustments: %w", err)
	}
	return nil
}

// FindByDueItem returns the adjustments of one item, oldest first
func (r *GormDueAdjustmentRepository) FindByDueItem(ctx context.Context, tenantID, dueItemID uuid.UUID) ([]ledger.DueAdjustment, error) {
	return r.FindByDueItems(ctx, tenantID, []uuid.UUID{dueItemID})
}

// FindByDueItems returns the adjustments of several items in one query
func (r *GormDueAdjustmentRepository) FindByDueItems(ctx context.Context, tenantID uuid.UUID, dueItemIDs []uuid.UUID) ([]ledger.DueAdjustment, error) {
	if len(dueItemIDs) == 0 {
		return nil, nil
	}
	var rows []models.DueAdjustmentModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("due_item_id IN ?", dueItemIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find due adjustments: %w", err)
	}
	adjs := make([]ledger.DueAdjustment, len(rows))
	for i := range rows {
		adjs[i] = *rows[i].ToDomain()
	}
	return adjs, nil
}
