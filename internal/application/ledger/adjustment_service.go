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

// AdjustmentService applies discounts, waivers, fines and late fees to due items
type AdjustmentService struct {
	hooks
	scope TransactionScope
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(scope TransactionScope, logger *zap.Logger) *AdjustmentService {
	return &AdjustmentService{hooks: newHooks(logger), scope: scope}
}

// ApplyAdjustmentRequest describes one manual adjustment
type ApplyAdjustmentRequest struct {
	TenantID   uuid.UUID
	DueItemID  uuid.UUID
	Type       ledger.AdjustmentType
	Amount     valueobject.Money
	Reason     string
	AppliedBy  string
	CategoryID *uuid.UUID
}

// ApplyAdjustment records the adjustment and moves the due item's final
// amount in the same transaction, with the due item row locked.
func (s *AdjustmentService) ApplyAdjustment(ctx context.Context, req ApplyAdjustmentRequest) (*ledger.DueAdjustment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "adjustment", "apply",
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrDueItemID, req.DueItemID.String(),
		"adjustment_type", string(req.Type),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer span.End()

	var (
		adj  *ledger.DueAdjustment
		item *ledger.DueItem
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.DueItemRepo().FindByIDForUpdate(ctx, req.TenantID, req.DueItemID)
		if err != nil {
			return err
		}
		adj, err = item.Adjust(req.Type, req.Amount, req.Reason, req.AppliedBy, req.CategoryID)
		if err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Create(ctx, adj); err != nil {
			return err
		}
		return repos.DueItemRepo().SaveWithLock(ctx, item)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordAdjustments(ctx, req.TenantID, string(adj.Type), 1)
	s.invalidate(ctx, TenantTag(req.TenantID), StudentTag(req.TenantID, item.StudentID))
	s.log(ctx).Info("Due adjustment applied",
		zap.String("due_item_id", item.ID.String()),
		zap.String("type", string(adj.Type)),
		zap.String("amount", adj.Amount.String()),
		zap.String("final_amount", item.FinalAmount.String()),
		zap.String("status", item.Status.String()),
	)
	return adj, nil
}

// ApplyLateFeesBatch tops up the late fees of already persisted due items to
// what is owed at the reference date. Items must be locked by the caller.
// All adjustments go in one insert; only items that changed are written.
func (s *AdjustmentService) ApplyLateFeesBatch(
	ctx context.Context,
	repos TransactionalRepositories,
	items []*ledger.DueItem,
	fs *ledger.FeeStructure,
	reference time.Time,
) ([]*ledger.DueAdjustment, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tenantID := items[0].TenantID
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	existing, err := repos.AdjustmentRepo().FindByDueItems(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	applied := make(map[uuid.UUID]valueobject.Money)
	for _, a := range existing {
		if a.Type == ledger.AdjustmentLateFee {
			applied[a.DueItemID] = applied[a.DueItemID].Add(a.Amount)
		}
	}

	adjs, changed, err := planLateFees(items, fs, reference, applied)
	if err != nil {
		return nil, err
	}
	if len(adjs) == 0 {
		return nil, nil
	}
	if err := repos.AdjustmentRepo().CreateBatch(ctx, adjs); err != nil {
		return nil, err
	}
	for _, item := range changed {
		if err := repos.DueItemRepo().SaveWithLock(ctx, item); err != nil {
			return nil, err
		}
	}
	return adjs, nil
}

// planLateFees applies, in memory, the late fee each item owes at reference
// beyond what is already applied. It returns the new adjustments and the
// items they changed. Items without a late-fee line are left alone.
func planLateFees(
	items []*ledger.DueItem,
	fs *ledger.FeeStructure,
	reference time.Time,
	applied map[uuid.UUID]valueobject.Money,
) ([]*ledger.DueAdjustment, []*ledger.DueItem, error) {
	var (
		adjs    []*ledger.DueAdjustment
		changed []*ledger.DueItem
	)
	for _, item := range items {
		if item.FeeLineID == nil || !item.Status.IsOpen() {
			continue
		}
		line, ok := fs.Line(*item.FeeLineID)
		if !ok || !line.LateFee.Enabled {
			continue
		}
		delta := line.LateFee.AmountFor(item.Period, reference).Sub(applied[item.ID])
		if !delta.IsPositive() {
			continue
		}
		reason := fmt.Sprintf("Late fee for %s (%d days late)", item.Period, line.LateFee.DaysLate(item.Period, reference))
		adj, err := item.Adjust(ledger.AdjustmentLateFee, delta, reason, ledger.SystemActor, line.CategoryID)
		if err != nil {
			return nil, nil, fmt.Errorf("late fee on due item %s: %w", item.ID, err)
		}
		adjs = append(adjs, adj)
		changed = append(changed, item)
	}
	return adjs, changed, nil
}

// requireActor rejects anonymous writes
func requireActor(actor string) error {
	if actor == "" {
		return shared.ValidationFailed("actor is required")
	}
	return nil
}
