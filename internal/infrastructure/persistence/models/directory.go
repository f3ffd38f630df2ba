package models

import (
	"time"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentModel maps the students table maintained by the student records
// module. The ledger only reads it.
type StudentModel struct {
	BaseModel
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name           string     `gorm:"type:varchar(200);not null"`
	ClassID        *uuid.UUID `gorm:"type:uuid;index"`
	SectionID      *uuid.UUID `gorm:"type:uuid"`
	AdmissionDate  *time.Time `gorm:"type:date"`
	FeeStructureID *uuid.UUID `gorm:"type:uuid"`
	Active         bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to the ledger's Student view
func (m *StudentModel) ToDomain() *ledger.Student {
	return &ledger.Student{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Name:           m.Name,
		ClassID:        m.ClassID,
		SectionID:      m.SectionID,
		AdmissionDate:  m.AdmissionDate,
		FeeStructureID: m.FeeStructureID,
		Active:         m.Active,
	}
}

// FeeStructureModel maps the fee_structures table
type FeeStructureModel struct {
	BaseModel
	TenantID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Name     string                  `gorm:"type:varchar(200);not null"`
	Lines    []FeeStructureLineModel `gorm:"foreignKey:FeeStructureID;references:ID"`
}

// TableName returns the table name for GORM
func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

// ToDomain converts the persistence model to a domain FeeStructure
func (m *FeeStructureModel) ToDomain() *ledger.FeeStructure {
	fs := &ledger.FeeStructure{
		ID:       m.ID,
		TenantID: m.TenantID,
		Name:     m.Name,
		Lines:    make([]ledger.FeeLine, len(m.Lines)),
	}
	for i := range m.Lines {
		fs.Lines[i] = m.Lines[i].ToDomain()
	}
	return fs
}

// FeeStructureLineModel maps one template line
type FeeStructureLineModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primary_key"`
	FeeStructureID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Position         int                     `gorm:"not null;default:0"`
	Name             string                  `gorm:"type:varchar(200);not null"`
	Amount           decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Frequency        ledger.FeeFrequency     `gorm:"type:varchar(20);not null;default:'MONTHLY'"`
	CategoryID       *uuid.UUID              `gorm:"type:uuid"`
	LateFeeEnabled   bool                    `gorm:"not null;default:false"`
	LateFeeAmount    decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	LateFeeFrequency ledger.LateFeeFrequency `gorm:"type:varchar(20);not null;default:'ONE_TIME'"`
	LateFeeGraceDays int                     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (FeeStructureLineModel) TableName() string {
	return "fee_structure_lines"
}

// ToDomain converts the persistence model to a domain FeeLine
func (m *FeeStructureLineModel) ToDomain() ledger.FeeLine {
	return ledger.FeeLine{
		ID:         m.ID,
		Position:   m.Position,
		Name:       m.Name,
		Amount:     valueobject.NewMoney(m.Amount),
		Frequency:  m.Frequency,
		CategoryID: m.CategoryID,
		LateFee: ledger.LateFeeRule{
			Enabled:   m.LateFeeEnabled,
			Amount:    valueobject.NewMoney(m.LateFeeAmount),
			Frequency: m.LateFeeFrequency,
			GraceDays: m.LateFeeGraceDays,
		},
	}
}

// DirectoryModels lists the collaborator tables, for AutoMigrate in tests
func DirectoryModels() []any {
	return []any{
		&StudentModel{},
		&FeeStructureModel{},
		&FeeStructureLineModel{},
	}
}
