package ledger

import (
	"context"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StudentDueRepository persists billing period containers
type StudentDueRepository interface {
	// FindByStudent returns every period already materialized for a student
	FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]StudentDue, error)
	// FindByStudentAndPeriod returns shared.ErrNotFound when absent
	FindByStudentAndPeriod(ctx context.Context, tenantID, studentID uuid.UUID, period BillingPeriod) (*StudentDue, error)
	Create(ctx context.Context, due *StudentDue) error
	CreateBatch(ctx context.Context, dues []*StudentDue) error
}

// DueItemRepository persists due items.
// The ForUpdate variants take a row lock until the surrounding transaction ends.
type DueItemRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*DueItem, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*DueItem, error)
	// FindByIDsForUpdate loads and locks all ids in one query. Missing ids
	// are simply absent from the result; callers decide how to report them.
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]DueItem, error)
	FindOpenByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]DueItem, error)
	FindByStudentDue(ctx context.Context, tenantID, studentDueID uuid.UUID) ([]DueItem, error)
	// FindByStudentDues returns the items of several periods in one query
	FindByStudentDues(ctx context.Context, tenantID uuid.UUID, studentDueIDs []uuid.UUID) ([]DueItem, error)
	CreateBatch(ctx context.Context, items []*DueItem) error
	// SaveWithLock writes amounts and status only if the stored version
	// still matches, then bumps the version. Zero rows is a conflict.
	SaveWithLock(ctx context.Context, item *DueItem) error
	// MarkOverdue flags PENDING/PARTIAL items of periods before `before`
	MarkOverdue(ctx context.Context, tenantID uuid.UUID, before BillingPeriod) (int64, error)
}

// DueAdjustmentRepository persists adjustments. Rows are insert-only.
type DueAdjustmentRepository interface {
	Create(ctx context.Context, adj *DueAdjustment) error
	CreateBatch(ctx context.Context, adjs []*DueAdjustment) error
	FindByDueItem(ctx context.Context, tenantID, dueItemID uuid.UUID) ([]DueAdjustment, error)
	FindByDueItems(ctx context.Context, tenantID uuid.UUID, dueItemIDs []uuid.UUID) ([]DueAdjustment, error)
}

// TenantAccountRepository persists accounts
type TenantAccountRepository interface {
	Create(ctx context.Context, account *TenantAccount) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TenantAccount, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*TenantAccount, error)
	// FindByIDsForUpdate locks rows in ascending id order
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]TenantAccount, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]TenantAccount, error)
	SaveWithLock(ctx context.Context, account *TenantAccount) error
}

// LedgerTransactionRepository persists journal entries. Rows are insert-only.
type LedgerTransactionRepository interface {
	Create(ctx context.Context, tx *LedgerTransaction) error
	CreateBatch(ctx context.Context, txs []*LedgerTransaction) error
	// FindByAccount returns entries where the account is the source or the
	// counter account of a transfer.
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter TransactionFilter) ([]LedgerTransaction, int64, error)
}

// PaymentTransactionRepository persists receipts and their lines
type PaymentTransactionRepository interface {
	Create(ctx context.Context, receipt *PaymentTransaction) error
	CreateLines(ctx context.Context, lines []StudentPayment) error
	// FindByIDForTenant loads the receipt with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentTransaction, error)
	IncrementPrintCount(ctx context.Context, tenantID, id uuid.UUID) (int, error)
	FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID, filter shared.Filter) ([]PaymentTransaction, int64, error)
}

// StudentDirectory reads students owned by the student records module
type StudentDirectory interface {
	GetStudent(ctx context.Context, tenantID, studentID uuid.UUID) (*Student, error)
	ListByClass(ctx context.Context, tenantID, classID uuid.UUID, sectionID *uuid.UUID) ([]Student, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]Student, error)
}

// FeeStructureProvider reads fee templates owned by the fee setup module
type FeeStructureProvider interface {
	GetFeeStructure(ctx context.Context, tenantID, feeStructureID uuid.UUID) (*FeeStructure, error)
}

// Clock abstracts time.Now for generation and late fee math
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
