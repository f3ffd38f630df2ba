package models

import (
	"time"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentDueModel is the persistence model for a billing period container.
// (tenant_id, student_id, year, month) is unique.
type StudentDueModel struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_student_dues_period,priority:1"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_student_dues_period,priority:2"`
	Year      int       `gorm:"not null;uniqueIndex:idx_student_dues_period,priority:3"`
	Month     int       `gorm:"not null;uniqueIndex:idx_student_dues_period,priority:4"`
}

// TableName returns the table name for GORM
func (StudentDueModel) TableName() string {
	return "student_dues"
}

// ToDomain converts the persistence model to a domain StudentDue
func (m *StudentDueModel) ToDomain() *ledger.StudentDue {
	return &ledger.StudentDue{
		TenantEntity: shared.TenantEntity{BaseEntity: m.BaseModel.ToDomain(), TenantID: m.TenantID},
		StudentID:    m.StudentID,
		Period:       ledger.BillingPeriod{Year: m.Year, Month: time.Month(m.Month)},
	}
}

// StudentDueModelFromDomain creates a new persistence model from domain
func StudentDueModelFromDomain(d *ledger.StudentDue) *StudentDueModel {
	m := &StudentDueModel{
		TenantID:  d.TenantID,
		StudentID: d.StudentID,
		Year:      d.Period.Year,
		Month:     int(d.Period.Month),
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// DueItemModel is the persistence model for the DueItem aggregate root.
// year/month are copied from the owning student due so overdue sweeps and
// payment lines do not need a join.
type DueItemModel struct {
	TenantAggregateModel
	StudentDueID   uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:uq_due_items_period_fee_line,priority:1,where:fee_line_id IS NOT NULL"`
	StudentID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_due_items_student_status,priority:1"`
	Year           int              `gorm:"not null"`
	Month          int              `gorm:"not null"`
	Title          string           `gorm:"type:varchar(200);not null"`
	OriginalAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	FinalAmount    decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PaidAmount     decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Status         ledger.DueStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_due_items_student_status,priority:2"`
	CategoryID     *uuid.UUID       `gorm:"type:uuid"`
	FeeLineID      *uuid.UUID       `gorm:"type:uuid;uniqueIndex:uq_due_items_period_fee_line,priority:2,where:fee_line_id IS NOT NULL"`
}

// TableName returns the table name for GORM
func (DueItemModel) TableName() string {
	return "due_items"
}

// ToDomain converts the persistence model to a domain DueItem
func (m *DueItemModel) ToDomain() *ledger.DueItem {
	return &ledger.DueItem{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		StudentDueID:        m.StudentDueID,
		StudentID:           m.StudentID,
		Period:              ledger.BillingPeriod{Year: m.Year, Month: time.Month(m.Month)},
		Title:               m.Title,
		OriginalAmount:      valueobject.NewMoney(m.OriginalAmount),
		FinalAmount:         valueobject.NewMoney(m.FinalAmount),
		PaidAmount:          valueobject.NewMoney(m.PaidAmount),
		Status:              m.Status,
		CategoryID:          m.CategoryID,
		FeeLineID:           m.FeeLineID,
	}
}

// FromDomain populates the persistence model from a domain DueItem
func (m *DueItemModel) FromDomain(d *ledger.DueItem) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.StudentDueID = d.StudentDueID
	m.StudentID = d.StudentID
	m.Year = d.Period.Year
	m.Month = int(d.Period.Month)
	m.Title = d.Title
	m.OriginalAmount = d.OriginalAmount.Amount()
	m.FinalAmount = d.FinalAmount.Amount()
	m.PaidAmount = d.PaidAmount.Amount()
	m.Status = d.Status
	m.CategoryID = d.CategoryID
	m.FeeLineID = d.FeeLineID
}

// DueItemModelFromDomain creates a new persistence model from domain
func DueItemModelFromDomain(d *ledger.DueItem) *DueItemModel {
	m := &DueItemModel{}
	m.FromDomain(d)
	return m
}

// DueAdjustmentModel is the persistence model for DueAdjustment
type DueAdjustmentModel struct {
	TenantModel
	DueItemID  uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type       ledger.AdjustmentType   `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	CategoryID *uuid.UUID              `gorm:"type:uuid"`
	Status     ledger.AdjustmentStatus `gorm:"type:varchar(20);not null;default:'APPLIED'"`
	Reason     string                  `gorm:"type:varchar(500)"`
	AppliedBy  string                  `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (DueAdjustmentModel) TableName() string {
	return "due_adjustments"
}

// ToDomain converts the persistence model to a domain DueAdjustment
func (m *DueAdjustmentModel) ToDomain() *ledger.DueAdjustment {
	return &ledger.DueAdjustment{
		TenantEntity: m.ToTenantEntity(),
		DueItemID:    m.DueItemID,
		Type:         m.Type,
		Amount:       valueobject.NewMoney(m.Amount),
		CategoryID:   m.CategoryID,
		Status:       m.Status,
		Reason:       m.Reason,
		AppliedBy:    m.AppliedBy,
	}
}

// DueAdjustmentModelFromDomain creates a new persistence model from domain
func DueAdjustmentModelFromDomain(a *ledger.DueAdjustment) *DueAdjustmentModel {
	m := &DueAdjustmentModel{
		DueItemID:  a.DueItemID,
		Type:       a.Type,
		Amount:     a.Amount.Amount(),
		CategoryID: a.CategoryID,
		Status:     a.Status,
		Reason:     a.Reason,
		AppliedBy:  a.AppliedBy,
	}
	m.FromDomainTenantEntity(a.TenantEntity)
	return m
}

// TenantAccountModel is the persistence model for the TenantAccount aggregate root
type TenantAccountModel struct {
	TenantAggregateModel
	Title   string             `gorm:"type:varchar(100);not null"`
	Type    ledger.AccountType `gorm:"type:varchar(20);not null"`
	Balance decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (TenantAccountModel) TableName() string {
	return "tenant_accounts"
}

// ToDomain converts the persistence model to a domain TenantAccount
func (m *TenantAccountModel) ToDomain() *ledger.TenantAccount {
	return &ledger.TenantAccount{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Title:               m.Title,
		Type:                m.Type,
		Balance:             valueobject.NewMoney(m.Balance),
	}
}

// TenantAccountModelFromDomain creates a new persistence model from domain
func TenantAccountModelFromDomain(a *ledger.TenantAccount) *TenantAccountModel {
	m := &TenantAccountModel{
		Title:   a.Title,
		Type:    a.Type,
		Balance: a.Balance.Amount(),
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// LedgerTransactionModel is the persistence model for LedgerTransaction
type LedgerTransactionModel struct {
	TenantModel
	Type                 ledger.TransactionType `gorm:"type:varchar(20);not null"`
	Amount               decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Label                string                 `gorm:"type:varchar(200);not null"`
	Note                 string                 `gorm:"type:text"`
	AccountID            uuid.UUID              `gorm:"type:uuid;not null;index"`
	CounterAccountID     *uuid.UUID             `gorm:"type:uuid;index"`
	CategoryID           *uuid.UUID             `gorm:"type:uuid"`
	TransactionBy        string                 `gorm:"type:varchar(100);not null"`
	BalanceAfter         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PaymentTransactionID *uuid.UUID             `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain LedgerTransaction
func (m *LedgerTransactionModel) ToDomain() *ledger.LedgerTransaction {
	return &ledger.LedgerTransaction{
		TenantEntity:         m.ToTenantEntity(),
		Type:                 m.Type,
		Amount:               valueobject.NewMoney(m.Amount),
		Label:                m.Label,
		Note:                 m.Note,
		AccountID:            m.AccountID,
		CounterAccountID:     m.CounterAccountID,
		CategoryID:           m.CategoryID,
		TransactionBy:        m.TransactionBy,
		BalanceAfter:         valueobject.NewMoney(m.BalanceAfter),
		PaymentTransactionID: m.PaymentTransactionID,
	}
}

// LedgerTransactionModelFromDomain creates a new persistence model from domain
func LedgerTransactionModelFromDomain(t *ledger.LedgerTransaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{
		Type:                 t.Type,
		Amount:               t.Amount.Amount(),
		Label:                t.Label,
		Note:                 t.Note,
		AccountID:            t.AccountID,
		CounterAccountID:     t.CounterAccountID,
		CategoryID:           t.CategoryID,
		TransactionBy:        t.TransactionBy,
		BalanceAfter:         t.BalanceAfter.Amount(),
		PaymentTransactionID: t.PaymentTransactionID,
	}
	m.FromDomainTenantEntity(t.TenantEntity)
	return m
}

// PaymentTransactionModel is the persistence model for a receipt
type PaymentTransactionModel struct {
	TenantAggregateModel
	ReceiptNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CollectedBy     string                `gorm:"type:varchar(100);not null"`
	TransactionDate time.Time             `gorm:"not null"`
	PrintCount      int                   `gorm:"not null;default:0"`
	Lines           []StudentPaymentModel `gorm:"foreignKey:PaymentTransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "payment_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() *ledger.PaymentTransaction {
	p := &ledger.PaymentTransaction{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ReceiptNumber:       m.ReceiptNumber,
		StudentID:           m.StudentID,
		TotalAmount:         valueobject.NewMoney(m.TotalAmount),
		CollectedBy:         m.CollectedBy,
		TransactionDate:     m.TransactionDate,
		PrintCount:          m.PrintCount,
		Lines:               make([]ledger.StudentPayment, len(m.Lines)),
	}
	for i := range m.Lines {
		p.Lines[i] = *m.Lines[i].ToDomain()
	}
	return p
}

// PaymentTransactionModelFromDomain creates a receipt row without its lines;
// lines are inserted separately in one batch.
func PaymentTransactionModelFromDomain(p *ledger.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{
		ReceiptNumber:   p.ReceiptNumber,
		StudentID:       p.StudentID,
		TotalAmount:     p.TotalAmount.Amount(),
		CollectedBy:     p.CollectedBy,
		TransactionDate: p.TransactionDate,
		PrintCount:      p.PrintCount,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// StudentPaymentModel is the persistence model for a receipt line
type StudentPaymentModel struct {
	TenantModel
	PaymentTransactionID uuid.UUID            `gorm:"type:uuid;not null;index"`
	StudentID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	DueItemID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	AccountID            uuid.UUID            `gorm:"type:uuid;not null"`
	Amount               decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Method               ledger.PaymentMethod `gorm:"type:varchar(20);not null"`
	Year                 int                  `gorm:"not null"`
	Month                int                  `gorm:"not null"`
	Note                 string               `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StudentPaymentModel) TableName() string {
	return "student_payments"
}

// ToDomain converts the persistence model to a domain StudentPayment
func (m *StudentPaymentModel) ToDomain() *ledger.StudentPayment {
	return &ledger.StudentPayment{
		TenantEntity:         m.ToTenantEntity(),
		PaymentTransactionID: m.PaymentTransactionID,
		StudentID:            m.StudentID,
		DueItemID:            m.DueItemID,
		AccountID:            m.AccountID,
		Amount:               valueobject.NewMoney(m.Amount),
		Method:               m.Method,
		Period:               ledger.BillingPeriod{Year: m.Year, Month: time.Month(m.Month)},
		Note:                 m.Note,
	}
}

// StudentPaymentModelFromDomain creates a new persistence model from domain
func StudentPaymentModelFromDomain(p *ledger.StudentPayment) *StudentPaymentModel {
	m := &StudentPaymentModel{
		PaymentTransactionID: p.PaymentTransactionID,
		StudentID:            p.StudentID,
		DueItemID:            p.DueItemID,
		AccountID:            p.AccountID,
		Amount:               p.Amount.Amount(),
		Method:               p.Method,
		Year:                 p.Period.Year,
		Month:                int(p.Period.Month),
		Note:                 p.Note,
	}
	m.FromDomainTenantEntity(p.TenantEntity)
	return m
}

// LedgerModels lists every model owned by the ledger, for AutoMigrate in tests
func LedgerModels() []any {
	return []any{
		&StudentDueModel{},
		&DueItemModel{},
		&DueAdjustmentModel{},
		&TenantAccountModel{},
		&LedgerTransactionModel{},
		&PaymentTransactionModel{},
		&StudentPaymentModel{},
	}
}
