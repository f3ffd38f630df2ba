package handler

import (
	"context"
	"net/http"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler exposes tenant accounts and their journal
type AccountHandler struct {
	BaseHandler
	accounts *appledger.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *appledger.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// OpenAccount handles POST /accounts
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.OpenAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	opening, ok := h.optionalAmount(c, "opening_balance", req.OpeningBalance)
	if !ok {
		return
	}

	account, err := h.accounts.OpenAccount(c.Request.Context(), appledger.OpenAccountRequest{
		TenantID:       tenantID,
		Title:          req.Title,
		Type:           ledger.AccountType(req.Type),
		OpeningBalance: opening,
		Actor:          middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToAccountResponse(*account))
}

// ListAccounts handles GET /accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListAccounts(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, dto.ToAccountResponse(a))
	}
	h.Success(c, resp)
}

// GetAccount handles GET /accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(*account))
}

// Deposit handles POST /accounts/:id/deposit
func (h *AccountHandler) Deposit(c *gin.Context) {
	h.movement(c, h.accounts.Deposit)
}

// Withdraw handles POST /accounts/:id/withdraw
func (h *AccountHandler) Withdraw(c *gin.Context) {
	h.movement(c, h.accounts.Withdraw)
}

// RecordIncome handles POST /accounts/:id/income
func (h *AccountHandler) RecordIncome(c *gin.Context) {
	h.journal(c, h.accounts.RecordIncome)
}

// RecordExpense handles POST /accounts/:id/expense
func (h *AccountHandler) RecordExpense(c *gin.Context) {
	h.journal(c, h.accounts.RecordExpense)
}

type movementFunc func(ctx context.Context, req appledger.MovementRequest) (*ledger.LedgerTransaction, error)

type journalFunc func(ctx context.Context, req appledger.JournalRequest) (*ledger.LedgerTransaction, error)

func (h *AccountHandler) movement(c *gin.Context, apply movementFunc) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MovementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	amount, ok := h.amount(c, "amount", req.Amount)
	if !ok {
		return
	}

	tx, err := apply(c.Request.Context(), appledger.MovementRequest{
		TenantID:  tenantID,
		AccountID: accountID,
		Amount:    amount,
		Actor:     middleware.GetActor(c),
		Note:      req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToTransactionResponse(*tx))
}

func (h *AccountHandler) journal(c *gin.Context, apply journalFunc) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.JournalRequest
	if !h.bindJSON(c, &req) {
		return
	}
	amount, ok := h.amount(c, "amount", req.Amount)
	if !ok {
		return
	}

	tx, err := apply(c.Request.Context(), appledger.JournalRequest{
		TenantID:   tenantID,
		AccountID:  accountID,
		Amount:     amount,
		Actor:      middleware.GetActor(c),
		Label:      req.Label,
		Note:       req.Note,
		CategoryID: optionalUUID(req.CategoryID),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToTransactionResponse(*tx))
}

// Transfer handles POST /transfers
func (h *AccountHandler) Transfer(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	amount, ok := h.amount(c, "amount", req.Amount)
	if !ok {
		return
	}
	from, _ := uuid.Parse(req.FromAccountID)
	to, _ := uuid.Parse(req.ToAccountID)

	tx, err := h.accounts.Transfer(c.Request.Context(), appledger.TransferRequest{
		TenantID:      tenantID,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Actor:         middleware.GetActor(c),
		Note:          req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToTransactionResponse(*tx))
}

// ListTransactions handles GET /accounts/:id/transactions. Both ends of
// the from/to range are inclusive calendar days.
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q dto.TransactionListRequest
	if !h.bindQuery(c, &q) {
		return
	}

	filter := ledger.TransactionFilter{Filter: q.ListRequest.Filter()}
	if q.Type != "" {
		t := ledger.TransactionType(q.Type)
		filter.Type = &t
	}
	if q.From != "" {
		from := date(q.From)
		filter.From = &from
	}
	if q.To != "" {
		to := date(q.To).AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		h.badField(c, "to", "Must not be before from")
		return
	}

	page, err := h.accounts.ListTransactions(c.Request.Context(), tenantID, accountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToTransactionResponse))
}
