package ledger

import (
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TransactionType is the kind of journal entry
type TransactionType string

const (
	TransactionIncome       TransactionType = "INCOME"
	TransactionExpense      TransactionType = "EXPENSE"
	TransactionDeposit      TransactionType = "DEPOSIT"
	TransactionWithdrawal   TransactionType = "WITHDRAWAL"
	TransactionFundTransfer TransactionType = "FUND_TRANSFER"
)

// IsValid checks if the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionDeposit, TransactionWithdrawal, TransactionFundTransfer:
		return true
	}
	return false
}

// LedgerTransaction is an immutable journal entry recording one balance
// movement. BalanceAfter is the owning account's balance right after it.
type LedgerTransaction struct {
	shared.TenantEntity
	Type                 TransactionType
	Amount               valueobject.Money
	Label                string
	Note                 string
	AccountID            uuid.UUID
	CounterAccountID     *uuid.UUID
	CategoryID           *uuid.UUID
	TransactionBy        string
	BalanceAfter         valueobject.Money
	PaymentTransactionID *uuid.UUID
}

// EffectOn returns the change this entry made to accountID's balance.
// A transfer is negative for its source and positive for its counter account.
func (t *LedgerTransaction) EffectOn(accountID uuid.UUID) valueobject.Money {
	switch {
	case t.Type == TransactionFundTransfer && t.CounterAccountID != nil && *t.CounterAccountID == accountID:
		return t.Amount
	case t.AccountID != accountID:
		return valueobject.Zero()
	case t.Type == TransactionIncome || t.Type == TransactionDeposit:
		return t.Amount
	default:
		return t.Amount.Neg()
	}
}

// TransactionFilter narrows ListTransactions
type TransactionFilter struct {
	shared.Filter
	Type *TransactionType
	From *time.Time
	To   *time.Time
}
