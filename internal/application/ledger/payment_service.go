package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentConfig holds receipt and resubmission settings
type PaymentConfig struct {
	ReceiptPrefix  string
	IdempotencyTTL time.Duration
}

// PaymentService collects money against due items into tenant accounts
type PaymentService struct {
	hooks
	scope       TransactionScope
	clock       ledger.Clock
	idempotency shared.IdempotencyStore
	cfg         PaymentConfig
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, clock ledger.Clock, cfg PaymentConfig, logger *zap.Logger) *PaymentService {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = shared.DefaultIdempotencyTTL
	}
	return &PaymentService{hooks: newHooks(logger), scope: scope, clock: clock, cfg: cfg}
}

// SetIdempotencyStore enables duplicate-submission protection for requests
// carrying an idempotency key
func (s *PaymentService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// PaymentAllocation is the part of a payment applied to one due item
type PaymentAllocation struct {
	TenantID    uuid.UUID
	StudentID   uuid.UUID
	CollectedBy string
	DueItemID   uuid.UUID
	AccountID   uuid.UUID
	Amount      valueobject.Money
	Method      ledger.PaymentMethod
	Note        string
}

// ProcessPaymentRequest is one payment event, possibly spanning many due items
type ProcessPaymentRequest struct {
	Allocations    []PaymentAllocation
	IdempotencyKey string
}

// PaymentResult describes a committed payment
type PaymentResult struct {
	Transaction              *ledger.PaymentTransaction
	UpdatedDueItemsCount     int
	CreatedTransactionsCount int
	CreatedPaymentsCount     int
	TotalAmount              valueobject.Money
}

// ProcessPayment applies every allocation in one transaction: the receipt,
// the due item updates, the account balances, one INCOME entry and one
// receipt line per allocation. Any failure leaves nothing behind.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "process",
		telemetry.SpanAttrCount, len(req.Allocations),
	)
	defer span.End()

	if err := validateAllocations(req.Allocations); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	head := req.Allocations[0]
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, head.TenantID.String(),
		telemetry.SpanAttrStudentID, head.StudentID.String(),
	)

	key, err := s.claim(ctx, head.TenantID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *PaymentResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.apply(ctx, repos, head, req.Allocations)
		return err
	})
	if err != nil {
		s.release(ctx, key)
		telemetry.RecordError(span, err)
		s.log(ctx).Warn("Payment rejected",
			zap.String("student_id", head.StudentID.String()),
			zap.Int("allocations", len(req.Allocations)),
			zap.Error(err),
		)
		return nil, err
	}

	receipt := result.Transaction
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNumber, receipt.ReceiptNumber,
		telemetry.SpanAttrAmount, receipt.TotalAmount.String(),
	)
	s.complete(ctx, key, receipt.ReceiptNumber)
	s.recordMetrics(ctx, head.TenantID, req.Allocations)

	tags := []string{TenantTag(head.TenantID), StudentTag(head.TenantID, head.StudentID)}
	seen := make(map[uuid.UUID]bool)
	for _, a := range req.Allocations {
		if !seen[a.AccountID] {
			seen[a.AccountID] = true
			tags = append(tags, AccountTag(head.TenantID, a.AccountID))
		}
	}
	s.invalidate(ctx, tags...)

	s.log(ctx).Info("Payment processed",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("student_id", head.StudentID.String()),
		zap.String("total", receipt.TotalAmount.String()),
		zap.Int("allocations", len(req.Allocations)),
	)
	return result, nil
}

func (s *PaymentService) apply(ctx context.Context, repos TransactionalRepositories, head PaymentAllocation, allocs []PaymentAllocation) (*PaymentResult, error) {
	receipt := ledger.NewPaymentTransaction(head.TenantID, head.StudentID, head.CollectedBy, s.cfg.ReceiptPrefix, s.clock.Now())

	dueIDs, accountIDs := distinctIDs(allocs)
	lockedItems, err := repos.DueItemRepo().FindByIDsForUpdate(ctx, head.TenantID, dueIDs)
	if err != nil {
		return nil, err
	}
	items := make(map[uuid.UUID]*ledger.DueItem, len(lockedItems))
	for i := range lockedItems {
		items[lockedItems[i].ID] = &lockedItems[i]
	}
	for _, id := range dueIDs {
		item, ok := items[id]
		if !ok {
			return nil, shared.NotFound("due item", id)
		}
		if item.StudentID != head.StudentID {
			return nil, shared.InconsistentBatch("student_id of due item "+id.String(), head.StudentID, item.StudentID)
		}
	}

	lockedAccounts, err := repos.AccountRepo().FindByIDsForUpdate(ctx, head.TenantID, accountIDs)
	if err != nil {
		return nil, err
	}
	accounts := make(map[uuid.UUID]*ledger.TenantAccount, len(lockedAccounts))
	for i := range lockedAccounts {
		accounts[lockedAccounts[i].ID] = &lockedAccounts[i]
	}
	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, shared.NotFound("account", id)
		}
	}

	entries := make([]*ledger.LedgerTransaction, 0, len(allocs))
	for _, a := range allocs {
		item := items[a.DueItemID]
		if err := item.ApplyPayment(a.Amount); err != nil {
			return nil, err
		}
		entry, err := accounts[a.AccountID].ReceiveIncome(a.Amount, ledger.Entry{
			Actor:                a.CollectedBy,
			Label:                fmt.Sprintf("Payment %s: %s (%s)", receipt.ReceiptNumber, item.Title, item.Period),
			Note:                 a.Note,
			CategoryID:           item.CategoryID,
			PaymentTransactionID: &receipt.ID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		receipt.AddLine(ledger.StudentPayment{
			TenantEntity: shared.NewTenantEntity(a.TenantID),
			StudentID:    a.StudentID,
			DueItemID:    a.DueItemID,
			AccountID:    a.AccountID,
			Amount:       a.Amount,
			Method:       a.Method,
			Period:       item.Period,
			Note:         a.Note,
		})
	}

	if err := repos.PaymentRepo().Create(ctx, receipt); err != nil {
		return nil, err
	}
	if err := repos.PaymentRepo().CreateLines(ctx, receipt.Lines); err != nil {
		return nil, err
	}
	for _, id := range dueIDs {
		if err := repos.DueItemRepo().SaveWithLock(ctx, items[id]); err != nil {
			return nil, err
		}
	}
	for i := range lockedAccounts {
		if err := repos.AccountRepo().SaveWithLock(ctx, &lockedAccounts[i]); err != nil {
			return nil, err
		}
	}
	if err := repos.LedgerTxRepo().CreateBatch(ctx, entries); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Transaction:              receipt,
		UpdatedDueItemsCount:     len(dueIDs),
		CreatedTransactionsCount: len(entries),
		CreatedPaymentsCount:     len(receipt.Lines),
		TotalAmount:              receipt.TotalAmount,
	}, nil
}

// validateAllocations checks the batch before anything is read or written
func validateAllocations(allocs []PaymentAllocation) error {
	if len(allocs) == 0 {
		return shared.ValidationFailed("payment has no allocations")
	}
	head := allocs[0]
	if head.TenantID == uuid.Nil {
		return shared.ValidationFailed("tenant is required")
	}
	if err := requireActor(head.CollectedBy); err != nil {
		return err
	}
	for i, a := range allocs {
		switch {
		case a.TenantID != head.TenantID:
			return shared.InconsistentBatch("tenant_id", head.TenantID, a.TenantID)
		case a.StudentID != head.StudentID:
			return shared.InconsistentBatch("student_id", head.StudentID, a.StudentID)
		case a.CollectedBy != head.CollectedBy:
			return shared.InconsistentBatch("collected_by", head.CollectedBy, a.CollectedBy)
		case !a.Amount.IsPositive():
			return shared.ValidationFailed("allocation %d amount must be positive, got %s", i+1, a.Amount)
		case !a.Method.IsValid():
			return shared.ValidationFailed("allocation %d has unknown payment method %q", i+1, a.Method)
		case a.DueItemID == uuid.Nil || a.AccountID == uuid.Nil:
			return shared.ValidationFailed("allocation %d needs a due item and an account", i+1)
		}
	}
	return nil
}

func distinctIDs(allocs []PaymentAllocation) (dueIDs, accountIDs []uuid.UUID) {
	seenDue := make(map[uuid.UUID]bool)
	seenAccount := make(map[uuid.UUID]bool)
	for _, a := range allocs {
		if !seenDue[a.DueItemID] {
			seenDue[a.DueItemID] = true
			dueIDs = append(dueIDs, a.DueItemID)
		}
		if !seenAccount[a.AccountID] {
			seenAccount[a.AccountID] = true
			accountIDs = append(accountIDs, a.AccountID)
		}
	}
	return dueIDs, accountIDs
}

// claim reserves the idempotency key before any write and returns the
// tenant-scoped key, or "" when the request carries none.
func (s *PaymentService) claim(ctx context.Context, tenantID uuid.UUID, key string) (string, error) {
	if key == "" || s.idempotency == nil {
		return "", nil
	}
	scoped := "payment:" + tenantID.String() + ":" + key
	claimed, err := s.idempotency.Claim(ctx, scoped, s.cfg.IdempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return scoped, nil
	}

	msg := fmt.Sprintf("payment with idempotency key %q is still being processed", key)
	receipt, _, err := s.idempotency.Lookup(ctx, scoped)
	if err != nil {
		s.log(ctx).Warn("Failed to look up idempotency key", zap.String("key", key), zap.Error(err))
	} else if receipt != "" {
		msg = fmt.Sprintf("payment with idempotency key %q was already recorded as receipt %s", key, receipt)
	}
	return "", shared.NewDomainError(shared.CodeDuplicateSubmission, msg)
}

// complete stores the receipt under the key. The payment is committed by
// now, so a failure only costs the duplicate message its receipt number.
func (s *PaymentService) complete(ctx context.Context, key, receiptNumber string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Complete(context.WithoutCancel(ctx), key, receiptNumber); err != nil {
		s.log(ctx).Warn("Failed to record receipt on idempotency key",
			zap.String("receipt_number", receiptNumber), zap.Error(err))
	}
}

// release frees the key again when the payment failed, so the client may retry.
func (s *PaymentService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.log(ctx).Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *PaymentService) recordMetrics(ctx context.Context, tenantID uuid.UUID, allocs []PaymentAllocation) {
	type tally struct {
		n      int
		amount valueobject.Money
	}
	byMethod := make(map[ledger.PaymentMethod]*tally)
	for _, a := range allocs {
		t, ok := byMethod[a.Method]
		if !ok {
			t = &tally{amount: valueobject.Zero()}
			byMethod[a.Method] = t
		}
		t.n++
		t.amount = t.amount.Add(a.Amount)
	}
	for method, t := range byMethod {
		s.metrics.RecordPayment(ctx, tenantID, string(method), t.n, t.amount.Amount().InexactFloat64())
	}
}

// RecordReceiptPrint counts one printout of a receipt and returns the new count
func (s *PaymentService) RecordReceiptPrint(ctx context.Context, tenantID, receiptID uuid.UUID) (int, error) {
	var n int
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		n, err = repos.PaymentRepo().IncrementPrintCount(ctx, tenantID, receiptID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log(ctx).Debug("Receipt printed", zap.String("receipt_id", receiptID.String()), zap.Int("print_count", n))
	return n, nil
}

// GetReceipt loads a receipt with its lines
func (s *PaymentService) GetReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*ledger.PaymentTransaction, error) {
	var receipt *ledger.PaymentTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipt, err = repos.PaymentRepo().FindByIDForTenant(ctx, tenantID, receiptID)
		return err
	})
	return receipt, err
}

// ListStudentReceipts pages through a student's receipts, newest first
func (s *PaymentService) ListStudentReceipts(ctx context.Context, tenantID, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[ledger.PaymentTransaction], error) {
	var (
		receipts []ledger.PaymentTransaction
		total    int64
	)
	page := filter.Normalize()
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipts, total, err = repos.PaymentRepo().FindByStudent(ctx, tenantID, studentID, page)
		return err
	})
	if err != nil {
		return shared.Paginated[ledger.PaymentTransaction]{}, err
	}
	return shared.NewPaginated(receipts, total, page.Page, page.PageSize), nil
}
