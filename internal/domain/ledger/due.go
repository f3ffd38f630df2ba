package ledger

import (
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DueStatus represents the payment state of a due item
type DueStatus string

const (
	DueStatusPending DueStatus = "PENDING" // nothing paid
	DueStatusPartial DueStatus = "PARTIAL" // 0 < paid < final
	DueStatusPaid    DueStatus = "PAID"    // paid >= final
	DueStatusOverdue DueStatus = "OVERDUE" // set by the overdue sweep, cleared only by full payment
	DueStatusWaived  DueStatus = "WAIVED"  // set when a waiver clears the outstanding amount
)

// IsValid checks if the status is a valid DueStatus
func (s DueStatus) IsValid() bool {
	switch s {
	case DueStatusPending, DueStatusPartial, DueStatusPaid, DueStatusOverdue, DueStatusWaived:
		return true
	}
	return false
}

// String returns the string representation of DueStatus
func (s DueStatus) String() string {
	return string(s)
}

// IsOpen returns true while money can still be collected
func (s DueStatus) IsOpen() bool {
	return s == DueStatusPending || s == DueStatusPartial || s == DueStatusOverdue
}

// OpenDueStatuses lists the statuses IsOpen accepts, for queries
func OpenDueStatuses() []DueStatus {
	return []DueStatus{DueStatusPending, DueStatusPartial, DueStatusOverdue}
}

// DeriveDueStatus computes the status implied by paid vs final
func DeriveDueStatus(paid, final valueobject.Money) DueStatus {
	switch {
	case paid.GreaterThanOrEqual(final):
		return DueStatusPaid
	case paid.IsPositive():
		return DueStatusPartial
	default:
		return DueStatusPending
	}
}

// StudentDue is the billing-period container for one student and month
type StudentDue struct {
	shared.TenantEntity
	StudentID uuid.UUID
	Period    BillingPeriod
}

// NewStudentDue creates a billing period container
func NewStudentDue(tenantID, studentID uuid.UUID, period BillingPeriod) *StudentDue {
	return &StudentDue{
		TenantEntity: shared.NewTenantEntity(tenantID),
		StudentID:    studentID,
		Period:       period,
	}
}

// DueItem is one billable line for a student in one billing period.
//
// FinalAmount always equals OriginalAmount plus increasing adjustments minus
// decreasing ones; Status is recomputed by every method touching PaidAmount
// or FinalAmount.
type DueItem struct {
	shared.TenantAggregateRoot
	StudentDueID   uuid.UUID
	StudentID      uuid.UUID
	Period         BillingPeriod
	Title          string
	OriginalAmount valueobject.Money
	FinalAmount    valueobject.Money
	PaidAmount     valueobject.Money
	Status         DueStatus
	CategoryID     *uuid.UUID
	FeeLineID      *uuid.UUID
}

// NewDueItem creates a PENDING due item under a StudentDue
func NewDueItem(due *StudentDue, title string, amount valueobject.Money, categoryID, feeLineID *uuid.UUID) (*DueItem, error) {
	if title == "" {
		return nil, shared.ValidationFailed("due item title cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.ValidationFailed("due item %q amount cannot be negative: %s", title, amount)
	}
	item := &DueItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(due.TenantID),
		StudentDueID:        due.ID,
		StudentID:           due.StudentID,
		Period:              due.Period,
		Title:               title,
		OriginalAmount:      amount,
		FinalAmount:         amount,
		PaidAmount:          valueobject.Zero(),
		CategoryID:          categoryID,
		FeeLineID:           feeLineID,
	}
	item.Status = DeriveDueStatus(item.PaidAmount, item.FinalAmount)
	return item, nil
}

// Outstanding returns the amount still payable
func (d *DueItem) Outstanding() valueobject.Money {
	return d.FinalAmount.Sub(d.PaidAmount)
}

// Adjust creates an adjustment and applies it to the item in one step, so
// an adjustment never exists without its effect on FinalAmount.
func (d *DueItem) Adjust(adjType AdjustmentType, amount valueobject.Money, reason, appliedBy string, categoryID *uuid.UUID) (*DueAdjustment, error) {
	adj, err := NewDueAdjustment(d.TenantID, d.ID, adjType, amount, reason, appliedBy, categoryID)
	if err != nil {
		return nil, err
	}
	if err := d.apply(adj); err != nil {
		return nil, err
	}
	return adj, nil
}

func (d *DueItem) apply(adj *DueAdjustment) error {
	if d.Status == DueStatusWaived {
		return shared.InvalidState("due item %q is waived and cannot be adjusted", d.Title)
	}
	final := d.FinalAmount.Add(adj.SignedAmount())
	if final.IsNegative() {
		return shared.ValidationFailed("%s of %s on due item %q would make its final amount negative (%s)",
			adj.Type, adj.Amount, d.Title, d.FinalAmount)
	}
	if final.LessThan(d.PaidAmount) {
		return shared.ValidationFailed("%s of %s on due item %q would reduce its final amount below the %s already paid",
			adj.Type, adj.Amount, d.Title, d.PaidAmount)
	}
	d.FinalAmount = final
	if adj.Type == AdjustmentWaiver && d.Outstanding().IsZero() {
		d.Status = DueStatusWaived
	} else {
		d.refreshStatus()
	}
	d.Touch(time.Now().UTC())
	return nil
}

// ApplyPayment adds a collected amount. Paying more than the outstanding
// amount is rejected; credit-forward is not supported.
func (d *DueItem) ApplyPayment(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.ValidationFailed("payment amount for due item %q must be positive", d.Title)
	}
	if !d.Status.IsOpen() {
		return shared.InvalidState("due item %q is %s and cannot accept payments", d.Title, d.Status)
	}
	if amount.GreaterThan(d.Outstanding()) {
		return shared.ValidationFailed("payment of %s exceeds the outstanding %s on due item %q",
			amount, d.Outstanding(), d.Title)
	}
	d.PaidAmount = d.PaidAmount.Add(amount)
	d.refreshStatus()
	d.Touch(time.Now().UTC())
	return nil
}

// MarkOverdue flags an unpaid item as overdue. Returns false when the
// status does not allow it.
func (d *DueItem) MarkOverdue() bool {
	if d.Status != DueStatusPending && d.Status != DueStatusPartial {
		return false
	}
	d.Status = DueStatusOverdue
	d.Touch(time.Now().UTC())
	return true
}

// refreshStatus re-derives Status. OVERDUE sticks until the item is paid
// in full; WAIVED never changes.
func (d *DueItem) refreshStatus() {
	if d.Status == DueStatusWaived {
		return
	}
	derived := DeriveDueStatus(d.PaidAmount, d.FinalAmount)
	if d.Status == DueStatusOverdue && derived != DueStatusPaid {
		return
	}
	d.Status = derived
}

// CheckInvariant verifies FinalAmount against the adjustments applied to it
func (d *DueItem) CheckInvariant(adjustments []DueAdjustment) error {
	expected := d.OriginalAmount
	for _, a := range adjustments {
		expected = expected.Add(a.SignedAmount())
	}
	if !expected.Equals(d.FinalAmount) {
		return shared.InvalidState("due item %q final amount %s does not match original plus adjustments %s",
			d.Title, d.FinalAmount, expected)
	}
	return nil
}
