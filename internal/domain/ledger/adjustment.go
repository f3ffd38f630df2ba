package ledger

import (
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AdjustmentType is the kind of modifier applied to a due item
type AdjustmentType string

const (
	AdjustmentDiscount AdjustmentType = "DISCOUNT" // decreases final amount
	AdjustmentWaiver   AdjustmentType = "WAIVER"   // decreases final amount
	AdjustmentFine     AdjustmentType = "FINE"     // increases final amount
	AdjustmentLateFee  AdjustmentType = "LATE_FEE" // increases final amount
)

// IsValid checks if the type is known
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentDiscount, AdjustmentWaiver, AdjustmentFine, AdjustmentLateFee:
		return true
	}
	return false
}

// Increases reports whether the adjustment adds to the final amount
func (t AdjustmentType) Increases() bool {
	return t == AdjustmentFine || t == AdjustmentLateFee
}

// AdjustmentStatus is the lifecycle state of an adjustment
type AdjustmentStatus string

// AdjustmentStatusApplied is the only state; adjustments are immutable.
const AdjustmentStatusApplied AdjustmentStatus = "APPLIED"

// SystemActor is recorded as AppliedBy for adjustments made by background jobs
const SystemActor = "system"

// DueAdjustment is an immutable modifier of a due item's final amount.
// Amount is a positive magnitude; Type gives the sign.
type DueAdjustment struct {
	shared.TenantEntity
	DueItemID  uuid.UUID
	Type       AdjustmentType
	Amount     valueobject.Money
	CategoryID *uuid.UUID
	Status     AdjustmentStatus
	Reason     string
	AppliedBy  string
}

// NewDueAdjustment validates and builds an adjustment
func NewDueAdjustment(
	tenantID, dueItemID uuid.UUID,
	adjType AdjustmentType,
	amount valueobject.Money,
	reason, appliedBy string,
	categoryID *uuid.UUID,
) (*DueAdjustment, error) {
	if !adjType.IsValid() {
		return nil, shared.ValidationFailed("unknown adjustment type %q", adjType)
	}
	if !amount.IsPositive() {
		return nil, shared.ValidationFailed("%s amount must be positive, got %s", adjType, amount)
	}
	if appliedBy == "" {
		return nil, shared.ValidationFailed("applied by cannot be empty")
	}
	return &DueAdjustment{
		TenantEntity: shared.NewTenantEntity(tenantID),
		DueItemID:    dueItemID,
		Type:         adjType,
		Amount:       amount,
		CategoryID:   categoryID,
		Status:       AdjustmentStatusApplied,
		Reason:       reason,
		AppliedBy:    appliedBy,
	}, nil
}

// SignedAmount returns +Amount for FINE/LATE_FEE and -Amount otherwise
func (a *DueAdjustment) SignedAmount() valueobject.Money {
	if a.Type.Increases() {
		return a.Amount
	}
	return a.Amount.Neg()
}
