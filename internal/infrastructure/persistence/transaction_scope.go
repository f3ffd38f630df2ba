package persistence

import (
	"context"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// StudentDueRepo returns the student due repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StudentDueRepo() ledger.StudentDueRepository {
	return NewGormStudentDueRepository(r.tx)
}

// DueItemRepo returns the due item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DueItemRepo() ledger.DueItemRepository {
	return NewGormDueItemRepository(r.tx)
}

// AdjustmentRepo returns the adjustment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AdjustmentRepo() ledger.DueAdjustmentRepository {
	return NewGormDueAdjustmentRepository(r.tx)
}

// AccountRepo returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AccountRepo() ledger.TenantAccountRepository {
	return NewGormTenantAccountRepository(r.tx)
}

// LedgerTxRepo returns the journal repository scoped to the current transaction.
func (r *gormTransactionalRepositories) LedgerTxRepo() ledger.LedgerTransactionRepository {
	return NewGormLedgerTransactionRepository(r.tx)
}

// PaymentRepo returns the receipt repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() ledger.PaymentTransactionRepository {
	return NewGormPaymentTransactionRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)

var (
	_ ledger.StudentDueRepository         = (*GormStudentDueRepository)(nil)
	_ ledger.DueItemRepository            = (*GormDueItemRepository)(nil)
	_ ledger.DueAdjustmentRepository      = (*GormDueAdjustmentRepository)(nil)
	_ ledger.TenantAccountRepository      = (*GormTenantAccountRepository)(nil)
	_ ledger.LedgerTransactionRepository  = (*GormLedgerTransactionRepository)(nil)
	_ ledger.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)
	_ ledger.StudentDirectory             = (*GormStudentDirectory)(nil)
	_ ledger.FeeStructureProvider         = (*GormFeeStructureProvider)(nil)
)
