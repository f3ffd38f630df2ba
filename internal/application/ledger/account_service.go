package ledger

import (
	"context"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService moves money in and out of tenant accounts. Every balance
// change writes exactly one journal entry in the same transaction.
type AccountService struct {
	hooks
	scope TransactionScope
}

// NewAccountService creates a new AccountService
func NewAccountService(scope TransactionScope, logger *zap.Logger) *AccountService {
	return &AccountService{hooks: newHooks(logger), scope: scope}
}

// OpenAccountRequest creates an account with an optional opening balance
type OpenAccountRequest struct {
	TenantID       uuid.UUID
	Title          string
	Type           ledger.AccountType
	OpeningBalance valueobject.Money
	Actor          string
}

// MovementRequest is a deposit or withdrawal
type MovementRequest struct {
	TenantID  uuid.UUID
	AccountID uuid.UUID
	Amount    valueobject.Money
	Actor     string
	Note      string
}

// JournalRequest records income or an expense against an account
type JournalRequest struct {
	TenantID   uuid.UUID
	AccountID  uuid.UUID
	Amount     valueobject.Money
	Actor      string
	Label      string
	Note       string
	CategoryID *uuid.UUID
}

// TransferRequest moves money between two accounts of one tenant
type TransferRequest struct {
	TenantID      uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        valueobject.Money
	Actor         string
	Note          string
}

// OpenAccount creates an account. A positive opening balance is recorded as
// a DEPOSIT entry so the journal always explains the balance.
func (s *AccountService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*ledger.TenantAccount, error) {
	if err := requireActor(req.Actor); err != nil {
		return nil, err
	}
	if req.OpeningBalance.IsNegative() {
		return nil, shared.ValidationFailed("opening balance cannot be negative, got %s", req.OpeningBalance)
	}
	account, err := ledger.NewTenantAccount(req.TenantID, req.Title, req.Type)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var opening *ledger.LedgerTransaction
		if req.OpeningBalance.IsPositive() {
			var err error
			opening, err = account.Deposit(req.OpeningBalance, ledger.Entry{Actor: req.Actor, Label: "Opening balance"})
			if err != nil {
				return err
			}
		}
		if err := repos.AccountRepo().Create(ctx, account); err != nil {
			return err
		}
		if opening == nil {
			return nil
		}
		return repos.LedgerTxRepo().Create(ctx, opening)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, TenantTag(req.TenantID))
	s.log(ctx).Info("Account opened",
		zap.String("account_id", account.ID.String()),
		zap.String("title", account.Title),
		zap.String("type", string(account.Type)),
		zap.String("balance", account.Balance.String()),
	)
	return account, nil
}

// Deposit adds funds to an account
func (s *AccountService) Deposit(ctx context.Context, req MovementRequest) (*ledger.LedgerTransaction, error) {
	return s.move(ctx, "deposit", req.TenantID, req.AccountID, req.Amount, req.Actor,
		func(a *ledger.TenantAccount) (*ledger.LedgerTransaction, error) {
			return a.Deposit(req.Amount, ledger.Entry{Actor: req.Actor, Note: req.Note})
		})
}

// Withdraw removes funds; fails with InsufficientBalance naming the account
func (s *AccountService) Withdraw(ctx context.Context, req MovementRequest) (*ledger.LedgerTransaction, error) {
	return s.move(ctx, "withdraw", req.TenantID, req.AccountID, req.Amount, req.Actor,
		func(a *ledger.TenantAccount) (*ledger.LedgerTransaction, error) {
			return a.Withdraw(req.Amount, ledger.Entry{Actor: req.Actor, Note: req.Note})
		})
}

// RecordIncome books non-fee income such as a donation
func (s *AccountService) RecordIncome(ctx context.Context, req JournalRequest) (*ledger.LedgerTransaction, error) {
	return s.move(ctx, "income", req.TenantID, req.AccountID, req.Amount, req.Actor,
		func(a *ledger.TenantAccount) (*ledger.LedgerTransaction, error) {
			return a.ReceiveIncome(req.Amount, req.entry())
		})
}

// RecordExpense books an expense paid from the account, guarded like Withdraw
func (s *AccountService) RecordExpense(ctx context.Context, req JournalRequest) (*ledger.LedgerTransaction, error) {
	return s.move(ctx, "expense", req.TenantID, req.AccountID, req.Amount, req.Actor,
		func(a *ledger.TenantAccount) (*ledger.LedgerTransaction, error) {
			return a.SpendExpense(req.Amount, req.entry())
		})
}

func (r JournalRequest) entry() ledger.Entry {
	return ledger.Entry{Actor: r.Actor, Label: r.Label, Note: r.Note, CategoryID: r.CategoryID}
}

// move locks one account, applies fn and persists the balance and the entry
func (s *AccountService) move(
	ctx context.Context,
	method string,
	tenantID, accountID uuid.UUID,
	amount valueobject.Money,
	actor string,
	fn func(*ledger.TenantAccount) (*ledger.LedgerTransaction, error),
) (*ledger.LedgerTransaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", method,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)
	defer span.End()

	if err := requireActor(actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var entry *ledger.LedgerTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.AccountRepo().FindByIDForUpdate(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		entry, err = fn(account)
		if err != nil {
			return err
		}
		if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
			return err
		}
		return repos.LedgerTxRepo().Create(ctx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordAccountMovement(ctx, tenantID, string(entry.Type))
	s.invalidate(ctx, TenantTag(tenantID), AccountTag(tenantID, accountID))
	s.log(ctx).Info("Account movement recorded",
		zap.String("account_id", accountID.String()),
		zap.String("type", string(entry.Type)),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()),
	)
	return entry, nil
}

// Transfer moves funds between two accounts and records a single
// FUND_TRANSFER entry on the source account. Both rows are locked in id
// order so opposite transfers cannot deadlock.
func (s *AccountService) Transfer(ctx context.Context, req TransferRequest) (*ledger.LedgerTransaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "transfer",
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrAccountID, req.FromAccountID.String(),
		"counter_account_id", req.ToAccountID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer span.End()

	if err := requireActor(req.Actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.FromAccountID == req.ToAccountID {
		err := shared.ValidationFailed("cannot transfer from an account to itself")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var entry *ledger.LedgerTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.AccountRepo().FindByIDsForUpdate(ctx, req.TenantID, []uuid.UUID{req.FromAccountID, req.ToAccountID})
		if err != nil {
			return err
		}
		var src, dst *ledger.TenantAccount
		for i := range locked {
			switch locked[i].ID {
			case req.FromAccountID:
				src = &locked[i]
			case req.ToAccountID:
				dst = &locked[i]
			}
		}
		if src == nil {
			return shared.NotFound("account", req.FromAccountID)
		}
		if dst == nil {
			return shared.NotFound("account", req.ToAccountID)
		}

		entry, err = src.TransferTo(dst, req.Amount, ledger.Entry{Actor: req.Actor, Note: req.Note})
		if err != nil {
			return err
		}
		for i := range locked {
			if err := repos.AccountRepo().SaveWithLock(ctx, &locked[i]); err != nil {
				return err
			}
		}
		return repos.LedgerTxRepo().Create(ctx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordAccountMovement(ctx, req.TenantID, string(entry.Type))
	s.invalidate(ctx,
		TenantTag(req.TenantID),
		AccountTag(req.TenantID, req.FromAccountID),
		AccountTag(req.TenantID, req.ToAccountID),
	)
	s.log(ctx).Info("Funds transferred",
		zap.String("from_account_id", req.FromAccountID.String()),
		zap.String("to_account_id", req.ToAccountID.String()),
		zap.String("amount", req.Amount.String()),
	)
	return entry, nil
}

// GetAccount loads one account
func (s *AccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*ledger.TenantAccount, error) {
	var account *ledger.TenantAccount
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.AccountRepo().FindByIDForTenant(ctx, tenantID, accountID)
		return err
	})
	return account, err
}

// ListAccounts returns the tenant's accounts by title
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]ledger.TenantAccount, error) {
	var accounts []ledger.TenantAccount
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		accounts, err = repos.AccountRepo().FindAllForTenant(ctx, tenantID)
		return err
	})
	return accounts, err
}

// ListTransactions pages through the journal of an account, including
// transfers it received.
func (s *AccountService) ListTransactions(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.TransactionFilter) (shared.Paginated[ledger.LedgerTransaction], error) {
	filter.Filter = filter.Filter.Normalize()
	var (
		txs   []ledger.LedgerTransaction
		total int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.AccountRepo().FindByIDForTenant(ctx, tenantID, accountID); err != nil {
			return err
		}
		var err error
		txs, total, err = repos.LedgerTxRepo().FindByAccount(ctx, tenantID, accountID, filter)
		return err
	})
	if err != nil {
		return shared.Paginated[ledger.LedgerTransaction]{}, err
	}
	return shared.NewPaginated(txs, total, filter.Page, filter.PageSize), nil
}
