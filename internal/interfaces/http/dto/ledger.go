package dto

import (
	"time"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Amounts are decimal strings ("1250.00") on the way in and on the way out.

// GenerateDuesRequest is the body of POST /students/:id/dues/generate
type GenerateDuesRequest struct {
	TargetDate     string `json:"target_date" binding:"omitempty,datetime=2006-01-02"`
	AdmissionDate  string `json:"admission_date" binding:"omitempty,datetime=2006-01-02"`
	FeeStructureID string `json:"fee_structure_id" binding:"omitempty,uuid"`
}

// AccrueLateFeesRequest is the body of POST /students/:id/dues/late-fees
type AccrueLateFeesRequest struct {
	ReferenceDate string `json:"reference_date" binding:"omitempty,datetime=2006-01-02"`
}

// GenerateBatchRequest targets one class (and optionally a section) or,
// without a class, every active student of the tenant
type GenerateBatchRequest struct {
	ClassID    string `json:"class_id" binding:"omitempty,uuid"`
	SectionID  string `json:"section_id" binding:"omitempty,uuid"`
	TargetDate string `json:"target_date" binding:"omitempty,datetime=2006-01-02"`
}

// AddFeeRequest is the body of POST /dues/fees
type AddFeeRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,dive,uuid"`
	Month      int      `json:"month" binding:"required,min=1,max=12"`
	Year       int      `json:"year" binding:"required,min=2000,max=2100"`
	Title      string   `json:"title" binding:"required,max=200"`
	Amount     string   `json:"amount" binding:"required,money"`
	CategoryID string   `json:"category_id" binding:"omitempty,uuid"`
}

// MarkOverdueRequest is the body of POST /dues/mark-overdue
type MarkOverdueRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// MarkOverdueResponse reports how many due items changed status
type MarkOverdueResponse struct {
	Updated int64 `json:"updated"`
}

// ApplyAdjustmentRequest is the body of POST /due-items/:id/adjustments
type ApplyAdjustmentRequest struct {
	Type       string `json:"type" binding:"required,oneof=DISCOUNT WAIVER FINE LATE_FEE"`
	Amount     string `json:"amount" binding:"required,money"`
	Reason     string `json:"reason" binding:"max=500"`
	CategoryID string `json:"category_id" binding:"omitempty,uuid"`
}

// AdjustmentResponse is a recorded adjustment
type AdjustmentResponse struct {
	ID         uuid.UUID         `json:"id"`
	DueItemID  uuid.UUID         `json:"due_item_id"`
	Type       string            `json:"type"`
	Amount     valueobject.Money `json:"amount"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	AppliedBy  string            `json:"applied_by"`
	CategoryID *uuid.UUID        `json:"category_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ToAdjustmentResponse converts a domain adjustment
func ToAdjustmentResponse(a *ledger.DueAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:         a.ID,
		DueItemID:  a.DueItemID,
		Type:       string(a.Type),
		Amount:     a.Amount,
		Status:     string(a.Status),
		Reason:     a.Reason,
		AppliedBy:  a.AppliedBy,
		CategoryID: a.CategoryID,
		CreatedAt:  a.CreatedAt,
	}
}

// PaymentAllocationRequest is the share of a payment applied to one due item
type PaymentAllocationRequest struct {
	DueItemID string `json:"due_item_id" binding:"required,uuid"`
	AccountID string `json:"account_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,money"`
	Method    string `json:"method" binding:"required,payment_method"`
	Note      string `json:"note" binding:"max=500"`
}

// ProcessPaymentRequest is the body of POST /payments. The Idempotency-Key
// header, when present, takes precedence over the body field.
type ProcessPaymentRequest struct {
	StudentID      string                     `json:"student_id" binding:"required,uuid"`
	Allocations    []PaymentAllocationRequest `json:"allocations" binding:"required,min=1,dive"`
	IdempotencyKey string                     `json:"idempotency_key" binding:"max=128"`
}

// ReceiptLineResponse is one allocation of a receipt
type ReceiptLineResponse struct {
	ID        uuid.UUID         `json:"id"`
	DueItemID uuid.UUID         `json:"due_item_id"`
	AccountID uuid.UUID         `json:"account_id"`
	Amount    valueobject.Money `json:"amount"`
	Method    string            `json:"method"`
	Period    string            `json:"period"`
	Note      string            `json:"note,omitempty"`
}

// ReceiptResponse is a payment transaction with its lines
type ReceiptResponse struct {
	ID              uuid.UUID             `json:"id"`
	ReceiptNumber   string                `json:"receipt_number"`
	StudentID       uuid.UUID             `json:"student_id"`
	TotalAmount     valueobject.Money     `json:"total_amount"`
	CollectedBy     string                `json:"collected_by"`
	TransactionDate time.Time             `json:"transaction_date"`
	PrintCount      int                   `json:"print_count"`
	Lines           []ReceiptLineResponse `json:"lines,omitempty"`
}

// ToReceiptResponse converts a domain receipt
func ToReceiptResponse(p *ledger.PaymentTransaction) ReceiptResponse {
	resp := ReceiptResponse{
		ID:              p.ID,
		ReceiptNumber:   p.ReceiptNumber,
		StudentID:       p.StudentID,
		TotalAmount:     p.TotalAmount,
		CollectedBy:     p.CollectedBy,
		TransactionDate: p.TransactionDate,
		PrintCount:      p.PrintCount,
	}
	for _, l := range p.Lines {
		resp.Lines = append(resp.Lines, ReceiptLineResponse{
			ID:        l.ID,
			DueItemID: l.DueItemID,
			AccountID: l.AccountID,
			Amount:    l.Amount,
			Method:    string(l.Method),
			Period:    l.Period.Key(),
			Note:      l.Note,
		})
	}
	return resp
}

// PaymentResponse describes a committed payment
type PaymentResponse struct {
	Receipt                  ReceiptResponse   `json:"receipt"`
	TotalAmount              valueobject.Money `json:"total_amount"`
	UpdatedDueItemsCount     int               `json:"updated_due_items_count"`
	CreatedTransactionsCount int               `json:"created_transactions_count"`
	CreatedPaymentsCount     int               `json:"created_payments_count"`
}

// PrintResponse reports the print count after a printout
type PrintResponse struct {
	PrintCount int `json:"print_count"`
}

// OpenAccountRequest is the body of POST /accounts
type OpenAccountRequest struct {
	Title          string `json:"title" binding:"required,max=100"`
	Type           string `json:"type" binding:"required,oneof=CASH BANK MOBILE_WALLET ONLINE OTHER"`
	OpeningBalance string `json:"opening_balance" binding:"omitempty,money"`
}

// MovementRequest is the body of deposit and withdraw
type MovementRequest struct {
	Amount string `json:"amount" binding:"required,money"`
	Note   string `json:"note" binding:"max=500"`
}

// JournalRequest is the body of income and expense
type JournalRequest struct {
	Amount     string `json:"amount" binding:"required,money"`
	Label      string `json:"label" binding:"max=100"`
	Note       string `json:"note" binding:"max=500"`
	CategoryID string `json:"category_id" binding:"omitempty,uuid"`
}

// TransferRequest is the body of POST /transfers
type TransferRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,money"`
	Note          string `json:"note" binding:"max=500"`
}

// TransactionListRequest holds the query of GET /accounts/:id/transactions
type TransactionListRequest struct {
	ListRequest
	Type string `form:"type" binding:"omitempty,oneof=INCOME EXPENSE DEPOSIT WITHDRAWAL FUND_TRANSFER"`
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// AccountResponse is a tenant account
type AccountResponse struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Type      string            `json:"type"`
	Balance   valueobject.Money `json:"balance"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ToAccountResponse converts a domain account
func ToAccountResponse(a ledger.TenantAccount) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Title:     a.Title,
		Type:      string(a.Type),
		Balance:   a.Balance,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// TransactionResponse is one journal entry
type TransactionResponse struct {
	ID                   uuid.UUID         `json:"id"`
	Type                 string            `json:"type"`
	Amount               valueobject.Money `json:"amount"`
	Label                string            `json:"label"`
	Note                 string            `json:"note,omitempty"`
	AccountID            uuid.UUID         `json:"account_id"`
	CounterAccountID     *uuid.UUID        `json:"counter_account_id,omitempty"`
	CategoryID           *uuid.UUID        `json:"category_id,omitempty"`
	TransactionBy        string            `json:"transaction_by"`
	BalanceAfter         valueobject.Money `json:"balance_after"`
	PaymentTransactionID *uuid.UUID        `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ToTransactionResponse converts a journal entry
func ToTransactionResponse(t ledger.LedgerTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		Type:                 string(t.Type),
		Amount:               t.Amount,
		Label:                t.Label,
		Note:                 t.Note,
		AccountID:            t.AccountID,
		CounterAccountID:     t.CounterAccountID,
		CategoryID:           t.CategoryID,
		TransactionBy:        t.TransactionBy,
		BalanceAfter:         t.BalanceAfter,
		PaymentTransactionID: t.PaymentTransactionID,
		CreatedAt:            t.CreatedAt,
	}
}
