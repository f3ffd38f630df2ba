package ledger

import (
	"context"

	"github.com/campus/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// Every repository handed to fn shares one database transaction, which is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
//
// Aggregate boundary notes:
//   - DueItemRepo / AccountRepo: the two shared mutable resources. Writers
//     load them with the ForUpdate variants and persist with SaveWithLock.
//   - AdjustmentRepo / LedgerTxRepo: append-only, always written in the same
//     transaction as the aggregate they describe.
//   - PaymentRepo: receipt and lines are inserted together; a receipt is
//     never visible without its lines.
type TransactionalRepositories interface {
	StudentDueRepo() ledger.StudentDueRepository
	DueItemRepo() ledger.DueItemRepository
	AdjustmentRepo() ledger.DueAdjustmentRepository
	AccountRepo() ledger.TenantAccountRepository
	LedgerTxRepo() ledger.LedgerTransactionRepository
	PaymentRepo() ledger.PaymentTransactionRepository
}
