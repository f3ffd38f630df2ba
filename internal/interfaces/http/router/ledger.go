package router

import (
	"github.com/campus/backend/internal/interfaces/http/handler"
)

// LedgerHandlers groups the handlers behind /api/v1
type LedgerHandlers struct {
	Dues     *handler.DuesHandler
	Payments *handler.PaymentHandler
	Accounts *handler.AccountHandler
}

// LedgerRoutes returns the resource groups of the ledger API
func LedgerRoutes(h LedgerHandlers) []*ResourceGroup {
	return []*ResourceGroup{
		Resource("/students").
			POST("/:id/dues/ensure", h.Dues.EnsureUpToDate).
			POST("/:id/dues/generate", h.Dues.Generate).
			POST("/:id/dues/late-fees", h.Dues.AccrueLateFees).
			GET("/:id/receipts", h.Payments.ListStudentReceipts),

		Resource("/dues").
			POST("/generate-batch", h.Dues.GenerateBatch).
			BatchPOST("/fees", h.Dues.AddFee).
			POST("/mark-overdue", h.Dues.MarkOverdue),

		Resource("/due-items").
			POST("/:id/adjustments", h.Dues.ApplyAdjustment),

		Resource("/payments").
			BatchPOST("", h.Payments.ProcessPayment),

		Resource("/receipts").
			GET("/:id", h.Payments.GetReceipt).
			POST("/:id/print", h.Payments.PrintReceipt),

		Resource("/accounts").
			POST("", h.Accounts.OpenAccount).
			GET("", h.Accounts.ListAccounts).
			GET("/:id", h.Accounts.GetAccount).
			POST("/:id/deposit", h.Accounts.Deposit).
			POST("/:id/withdraw", h.Accounts.Withdraw).
			POST("/:id/income", h.Accounts.RecordIncome).
			POST("/:id/expense", h.Accounts.RecordExpense).
			GET("/:id/transactions", h.Accounts.ListTransactions),

		Resource("/transfers").
			POST("", h.Accounts.Transfer),
	}
}
