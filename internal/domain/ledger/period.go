package ledger

import (
	"fmt"
	"time"

	"github.com/campus/backend/internal/domain/shared"
)

// BillingPeriod is one calendar month. StudentDue rows are unique per
// (student, period), which makes the period the idempotency key for
// recurring generation.
type BillingPeriod struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewBillingPeriod validates and builds a period
func NewBillingPeriod(year, month int) (BillingPeriod, error) {
	if month < 1 || month > 12 {
		return BillingPeriod{}, shared.ValidationFailed("month must be between 1 and 12, got %d", month)
	}
	if year < 1900 || year > 9999 {
		return BillingPeriod{}, shared.ValidationFailed("year %d is out of range", year)
	}
	return BillingPeriod{Year: year, Month: time.Month(month)}, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) BillingPeriod {
	return BillingPeriod{Year: t.Year(), Month: t.Month()}
}

// Key returns the canonical "YYYY-MM" form
func (p BillingPeriod) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// String implements fmt.Stringer
func (p BillingPeriod) String() string {
	return p.Key()
}

// Index is a monotonically increasing month counter, handy for ordering
// and range queries (year*12 + month-1).
func (p BillingPeriod) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Start returns the first day of the period at midnight UTC
func (p BillingPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last calendar day of the period at midnight UTC
func (p BillingPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Next returns the following month
func (p BillingPeriod) Next() BillingPeriod {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Before reports whether p is strictly earlier than other
func (p BillingPeriod) Before(other BillingPeriod) bool {
	return p.Index() < other.Index()
}

// MonthsSince returns how many months p is after origin (negative if before)
func (p BillingPeriod) MonthsSince(origin BillingPeriod) int {
	return p.Index() - origin.Index()
}

// PeriodsBetween enumerates every calendar month from the month of `from`
// to the month of `to`, inclusive. Empty when from is after to.
func PeriodsBetween(from, to time.Time) []BillingPeriod {
	first, last := PeriodOf(from), PeriodOf(to)
	if last.Before(first) {
		return nil
	}
	periods := make([]BillingPeriod, 0, last.MonthsSince(first)+1)
	for p := first; !last.Before(p); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// EndOfMonth returns the last calendar day of t's month at midnight UTC
func EndOfMonth(t time.Time) time.Time {
	return PeriodOf(t).End()
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
