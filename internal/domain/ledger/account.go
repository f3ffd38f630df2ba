package ledger

import (
	"strings"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AccountType classifies a tenant cash pool
type AccountType string

const (
	AccountTypeCash         AccountType = "CASH"
	AccountTypeBank         AccountType = "BANK"
	AccountTypeMobileWallet AccountType = "MOBILE_WALLET"
	AccountTypeOnline       AccountType = "ONLINE"
	AccountTypeOther        AccountType = "OTHER"
)

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeMobileWallet, AccountTypeOnline, AccountTypeOther:
		return true
	}
	return false
}

// TenantAccount is a named cash pool with a running balance. Every balance
// change goes through a method that also returns the journal entry
// recording it.
type TenantAccount struct {
	shared.TenantAggregateRoot
	Title   string
	Type    AccountType
	Balance valueobject.Money
}

// NewTenantAccount creates an empty account
func NewTenantAccount(tenantID uuid.UUID, title string, accountType AccountType) (*TenantAccount, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.ValidationFailed("account title cannot be empty")
	}
	if len(title) > 100 {
		return nil, shared.ValidationFailed("account title cannot exceed 100 characters")
	}
	if !accountType.IsValid() {
		return nil, shared.ValidationFailed("unknown account type %q", accountType)
	}
	return &TenantAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Title:               title,
		Type:                accountType,
		Balance:             valueobject.Zero(),
	}, nil
}

// Entry describes the journal metadata of a balance movement
type Entry struct {
	Actor                string
	Label                string
	Note                 string
	CategoryID           *uuid.UUID
	PaymentTransactionID *uuid.UUID
}

// Deposit adds funds and returns the DEPOSIT entry
func (a *TenantAccount) Deposit(amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if e.Label == "" {
		e.Label = "Deposit"
	}
	return a.credit(TransactionDeposit, amount, e)
}

// ReceiveIncome adds income such as a student payment and returns the INCOME entry
func (a *TenantAccount) ReceiveIncome(amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if e.Label == "" {
		e.Label = "Income"
	}
	return a.credit(TransactionIncome, amount, e)
}

// Withdraw removes funds and returns the WITHDRAWAL entry.
// Fails with InsufficientBalance naming the account.
func (a *TenantAccount) Withdraw(amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if e.Label == "" {
		e.Label = "Withdrawal"
	}
	return a.debit(TransactionWithdrawal, amount, e)
}

// SpendExpense records an expense paid from the account
func (a *TenantAccount) SpendExpense(amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if e.Label == "" {
		e.Label = "Expense"
	}
	return a.debit(TransactionExpense, amount, e)
}

// TransferTo moves funds to dest. Both balances change and a single
// FUND_TRANSFER entry attributed to the source account is returned.
func (a *TenantAccount) TransferTo(dest *TenantAccount, amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if dest.ID == a.ID {
		return nil, shared.ValidationFailed("cannot transfer from account %q to itself", a.Title)
	}
	if dest.TenantID != a.TenantID {
		return nil, shared.InconsistentBatch("tenant", a.TenantID, dest.TenantID)
	}
	if e.Label == "" {
		e.Label = "Fund transfer to " + dest.Title
	}
	if err := a.checkDebit(amount); err != nil {
		return nil, err
	}
	a.Balance = a.Balance.Sub(amount)
	dest.Balance = dest.Balance.Add(amount)
	now := time.Now().UTC()
	a.Touch(now)
	dest.Touch(now)
	tx := a.entry(TransactionFundTransfer, amount, e)
	tx.CounterAccountID = &dest.ID
	return tx, nil
}

func (a *TenantAccount) credit(txType TransactionType, amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if err := requireMovementAmount(amount); err != nil {
		return nil, err
	}
	a.Balance = a.Balance.Add(amount)
	a.Touch(time.Now().UTC())
	return a.entry(txType, amount, e), nil
}

func (a *TenantAccount) debit(txType TransactionType, amount valueobject.Money, e Entry) (*LedgerTransaction, error) {
	if err := a.checkDebit(amount); err != nil {
		return nil, err
	}
	a.Balance = a.Balance.Sub(amount)
	a.Touch(time.Now().UTC())
	return a.entry(txType, amount, e), nil
}

func (a *TenantAccount) checkDebit(amount valueobject.Money) error {
	if err := requireMovementAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(a.Balance) {
		return shared.InsufficientBalance(a.Title, a.Balance, amount)
	}
	return nil
}

func requireMovementAmount(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.ValidationFailed("amount must be greater than zero, got %s", amount)
	}
	return nil
}

func (a *TenantAccount) entry(txType TransactionType, amount valueobject.Money, e Entry) *LedgerTransaction {
	return &LedgerTransaction{
		TenantEntity:         shared.NewTenantEntity(a.TenantID),
		Type:                 txType,
		Amount:               amount,
		Label:                e.Label,
		Note:                 e.Note,
		AccountID:            a.ID,
		CategoryID:           e.CategoryID,
		TransactionBy:        e.Actor,
		BalanceAfter:         a.Balance,
		PaymentTransactionID: e.PaymentTransactionID,
	}
}
