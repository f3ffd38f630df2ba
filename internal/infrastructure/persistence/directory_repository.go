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

// GormStudentDirectory implements ledger.StudentDirectory over the students
// table owned by the student records module.
type GormStudentDirectory struct {
	db *gorm.DB
}

// NewGormStudentDirectory creates a new GormStudentDirectory
func NewGormStudentDirectory(db *gorm.DB) *GormStudentDirectory {
	return &GormStudentDirectory{db: db}
}

// GetStudent finds one student
func (d *GormStudentDirectory) GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (*ledger.Student, error) {
	var row models.StudentModel
	if err := d.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", studentID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFound("student", studentID)
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return row.ToDomain(), nil
}

// ListByClass lists active students of a class, optionally one section
func (d *GormStudentDirectory) ListByClass(ctx context.Context, tenantID, classID uuid.UUID, sectionID *uuid.UUID) ([]ledger.Student, error) {
	query := d.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("class_id = ? AND active = ?", classID, true)
	if sectionID != nil {
		query = query.Where("section_id = ?", *sectionID)
	}
	return d.list(query)
}

// ListActive lists every active student of a tenant
func (d *GormStudentDirectory) ListActive(ctx context.Context, tenantID uuid.UUID) ([]ledger.Student, error) {
	return d.list(d.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("active = ?", true))
}

// ListTenantIDs returns every tenant with at least one active student
func (d *GormStudentDirectory) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).
		Model(&models.StudentModel{}).
		Where("active = ?", true).
		Distinct().
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ids, nil
}

func (d *GormStudentDirectory) list(query *gorm.DB) ([]ledger.Student, error) {
	var rows []models.StudentModel
	if err := query.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	students := make([]ledger.Student, len(rows))
	for i := range rows {
		students[i] = *rows[i].ToDomain()
	}
	return students, nil
}

// GormFeeStructureProvider implements ledger.FeeStructureProvider over the
// fee_structures and fee_structure_lines tables.
type GormFeeStructureProvider struct {
	db *gorm.DB
}

// NewGormFeeStructureProvider creates a new GormFeeStructureProvider
func NewGormFeeStructureProvider(db *gorm.DB) *GormFeeStructureProvider {
	return &GormFeeStructureProvider{db: db}
}

// GetFeeStructure loads a structure with its lines in template order
func (p *GormFeeStructureProvider) GetFeeStructure(ctx context.Context, tenantID, feeStructureID uuid.UUID) (*ledger.FeeStructure, error) {
	var row models.FeeStructureModel
	if err := p.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", feeStructureID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFound("fee structure", feeStructureID)
		}
		return nil, fmt.Errorf("find fee structure: %w", err)
	}
	return row.ToDomain(), nil
}
