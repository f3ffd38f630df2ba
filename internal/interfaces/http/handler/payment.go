package handler

import (
	"net/http"
	"strconv"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader marks a payment submission as a retry of an earlier one
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler exposes payment collection and receipts
type PaymentHandler struct {
	BaseHandler
	payments *appledger.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appledger.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ProcessPayment handles POST /payments. The collecting actor comes from
// the caller's identity, never from the body.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ProcessPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	studentID, _ := uuid.Parse(req.StudentID)
	actor := middleware.GetActor(c)

	allocs := make([]appledger.PaymentAllocation, 0, len(req.Allocations))
	for i, a := range req.Allocations {
		field := "allocations[" + strconv.Itoa(i) + "]"
		amount, ok := h.amount(c, field+".amount", a.Amount)
		if !ok {
			return
		}
		// binding already accepted the method
		method, _ := ledger.ParsePaymentMethod(a.Method)
		dueItemID, _ := uuid.Parse(a.DueItemID)
		accountID, _ := uuid.Parse(a.AccountID)
		allocs = append(allocs, appledger.PaymentAllocation{
			TenantID:    tenantID,
			StudentID:   studentID,
			CollectedBy: actor,
			DueItemID:   dueItemID,
			AccountID:   accountID,
			Amount:      amount,
			Method:      method,
			Note:        a.Note,
		})
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		key = req.IdempotencyKey
	}

	res, err := h.payments.ProcessPayment(c.Request.Context(), appledger.ProcessPaymentRequest{
		Allocations:    allocs,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.PaymentResponse{
		Receipt:                  dto.ToReceiptResponse(res.Transaction),
		TotalAmount:              res.TotalAmount,
		UpdatedDueItemsCount:     res.UpdatedDueItemsCount,
		CreatedTransactionsCount: res.CreatedTransactionsCount,
		CreatedPaymentsCount:     res.CreatedPaymentsCount,
	})
}

// GetReceipt handles GET /receipts/:id
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	receiptID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.payments.GetReceipt(c.Request.Context(), tenantID, receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToReceiptResponse(receipt))
}

// PrintReceipt handles POST /receipts/:id/print
func (h *PaymentHandler) PrintReceipt(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	receiptID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	n, err := h.payments.RecordReceiptPrint(c.Request.Context(), tenantID, receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.PrintResponse{PrintCount: n})
}

// ListStudentReceipts handles GET /students/:id/receipts
func (h *PaymentHandler) ListStudentReceipts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	studentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q dto.ListRequest
	if !h.bindQuery(c, &q) {
		return
	}

	page, err := h.payments.ListStudentReceipts(c.Request.Context(), tenantID, studentID, q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, func(p ledger.PaymentTransaction) dto.ReceiptResponse {
		return dto.ToReceiptResponse(&p)
	}))
}
