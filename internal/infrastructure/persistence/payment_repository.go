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
)

// GormPaymentTransactionRepository implements ledger.PaymentTransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// Create inserts the receipt row only
func (r *GormPaymentTransactionRepository) Create(ctx context.Context, receipt *ledger.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).
		Omit("Lines").
		Create(models.PaymentTransactionModelFromDomain(receipt)).Error; err != nil {
		return fmt.Errorf("create payment transaction: %w", err)
	}
	return nil
}

// CreateLines inserts all receipt lines in one statement
func (r *GormPaymentTransactionRepository) CreateLines(ctx context.Context, lines []ledger.StudentPayment) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.StudentPaymentModel, len(lines))
	for i := range lines {
		rows[i] = models.StudentPaymentModelFromDomain(&lines[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create student payments: %w", err)
	}
	return nil
}

// FindByIDForTenant loads a receipt with its lines
func (r *GormPaymentTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.PaymentTransaction, error) {
	var row models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFound("receipt", id)
		}
		return nil, fmt.Errorf("find payment transaction: %w", err)
	}
	return row.ToDomain(), nil
}

// IncrementPrintCount bumps print_count atomically and returns the new value
func (r *GormPaymentTransactionRepository) IncrementPrintCount(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		Updates(map[string]any{
			"print_count": gorm.Expr("print_count + 1"),
			"version":     gorm.Expr("version + 1"),
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("increment print count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, shared.NotFound("receipt", id)
	}

	var count int
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		Pluck("print_count", &count).Error; err != nil {
		return 0, fmt.Errorf("read print count: %w", err)
	}
	return count, nil
}

// FindByStudent pages through a student's receipts, newest first
func (r *GormPaymentTransactionRepository) FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID, filter shared.Filter) ([]ledger.PaymentTransaction, int64, error) {
	page := filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("student_id = ?", studentID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count payment transactions: %w", err)
	}

	var rows []models.PaymentTransactionModel
	if err := query.
		Preload("Lines").
		Order(receiptSortColumns.orderClause(page)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list payment transactions: %w", err)
	}
	receipts := make([]ledger.PaymentTransaction, len(rows))
	for i := range rows {
		receipts[i] = *rows[i].ToDomain()
	}
	return receipts, total, nil
}
