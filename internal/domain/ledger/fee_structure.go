package ledger

import (
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FeeFrequency controls which billing periods a fee line is charged in
type FeeFrequency string

const (
	FeeFrequencyMonthly    FeeFrequency = "MONTHLY"
	FeeFrequencyQuarterly  FeeFrequency = "QUARTERLY"   // every 3rd month from admission
	FeeFrequencyHalfYearly FeeFrequency = "HALF_YEARLY" // every 6th month from admission
	FeeFrequencyYearly     FeeFrequency = "YEARLY"      // every 12th month from admission
	FeeFrequencyOneTime    FeeFrequency = "ONE_TIME"    // admission month only
)

// IsValid checks if the frequency is known
func (f FeeFrequency) IsValid() bool {
	switch f {
	case FeeFrequencyMonthly, FeeFrequencyQuarterly, FeeFrequencyHalfYearly,
		FeeFrequencyYearly, FeeFrequencyOneTime:
		return true
	}
	return false
}

// interval returns the charging interval in months, 0 for one-time fees
func (f FeeFrequency) interval() int {
	switch f {
	case FeeFrequencyQuarterly:
		return 3
	case FeeFrequencyHalfYearly:
		return 6
	case FeeFrequencyYearly:
		return 12
	case FeeFrequencyOneTime:
		return 0
	default:
		return 1
	}
}

// LateFeeFrequency controls how a late fee scales with days late
type LateFeeFrequency string

const (
	LateFeeOneTime LateFeeFrequency = "ONE_TIME" // flat amount once late
	LateFeeDaily   LateFeeFrequency = "DAILY"    // amount per day
	LateFeeWeekly  LateFeeFrequency = "WEEKLY"   // amount per started week
	LateFeeMonthly LateFeeFrequency = "MONTHLY"  // amount per started 30 days
)

// IsValid checks if the late fee frequency is known
func (f LateFeeFrequency) IsValid() bool {
	switch f {
	case LateFeeOneTime, LateFeeDaily, LateFeeWeekly, LateFeeMonthly:
		return true
	}
	return false
}

// LateFeeRule describes the late fee attached to a fee line
type LateFeeRule struct {
	Enabled   bool
	Amount    valueobject.Money
	Frequency LateFeeFrequency
	GraceDays int
}

// DaysLate counts whole days between the end of the grace window
// (period end + grace days) and the reference date. Zero when not late.
func (r LateFeeRule) DaysLate(period BillingPeriod, reference time.Time) int {
	deadline := period.End().AddDate(0, 0, r.GraceDays)
	days := int(DateOnly(reference).Sub(deadline).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// AmountFor returns the late fee owed for period at the reference date.
// The amount is a multiple of the rule amount and never compounds.
func (r LateFeeRule) AmountFor(period BillingPeriod, reference time.Time) valueobject.Money {
	if !r.Enabled || !r.Amount.IsPositive() {
		return valueobject.Zero()
	}
	days := r.DaysLate(period, reference)
	if days <= 0 {
		return valueobject.Zero()
	}
	switch r.Frequency {
	case LateFeeDaily:
		return r.Amount.MulInt(int64(days))
	case LateFeeWeekly:
		return r.Amount.MulInt(int64(ceilDiv(days, 7)))
	case LateFeeMonthly:
		return r.Amount.MulInt(int64(ceilDiv(days, 30)))
	default:
		return r.Amount
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// FeeLine is one line of a fee structure template
type FeeLine struct {
	ID         uuid.UUID
	Position   int
	Name       string
	Amount     valueobject.Money
	Frequency  FeeFrequency
	CategoryID *uuid.UUID
	LateFee    LateFeeRule
}

// AppliesTo reports whether the line is charged in period for a student
// admitted in admission. Intervals are counted from the admission month.
func (l FeeLine) AppliesTo(admission, period BillingPeriod) bool {
	offset := period.MonthsSince(admission)
	if offset < 0 {
		return false
	}
	interval := l.Frequency.interval()
	if interval == 0 {
		return offset == 0
	}
	return offset%interval == 0
}

// Validate checks a line is usable for generation
func (l FeeLine) Validate() error {
	if l.Name == "" {
		return shared.ValidationFailed("fee line name cannot be empty")
	}
	if l.Amount.IsNegative() {
		return shared.ValidationFailed("fee line %q has a negative amount %s", l.Name, l.Amount)
	}
	if !l.Frequency.IsValid() {
		return shared.ValidationFailed("fee line %q has unknown frequency %q", l.Name, l.Frequency)
	}
	if l.LateFee.Enabled {
		if !l.LateFee.Frequency.IsValid() {
			return shared.ValidationFailed("fee line %q has unknown late fee frequency %q", l.Name, l.LateFee.Frequency)
		}
		if l.LateFee.GraceDays < 0 {
			return shared.ValidationFailed("fee line %q has negative grace days", l.Name)
		}
	}
	return nil
}

// FeeStructure is an ordered template of fee lines assigned to students
type FeeStructure struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Lines    []FeeLine
}

// Validate checks the structure can drive generation
func (fs *FeeStructure) Validate() error {
	if len(fs.Lines) == 0 {
		return shared.MissingPrerequisite("fee structure %q has no fee lines", fs.Name)
	}
	for _, l := range fs.Lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LinesFor returns the lines charged in period, in template order
func (fs *FeeStructure) LinesFor(admission, period BillingPeriod) []FeeLine {
	lines := make([]FeeLine, 0, len(fs.Lines))
	for _, l := range fs.Lines {
		if l.AppliesTo(admission, period) {
			lines = append(lines, l)
		}
	}
	return lines
}

// Line looks up a line by id
func (fs *FeeStructure) Line(id uuid.UUID) (FeeLine, bool) {
	for _, l := range fs.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return FeeLine{}, false
}
