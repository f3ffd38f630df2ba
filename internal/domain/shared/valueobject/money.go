package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits persisted for every amount.
// Columns are decimal(18,4).
const Scale int32 = 4

// DisplayScale is the number of fractional digits shown to users.
const DisplayScale int32 = 2

// ErrTooPrecise is returned when an amount carries more digits than Scale.
var ErrTooPrecise = fmt.Errorf("amount has more than %d fractional digits", Scale)

// Money is a value object representing a monetary amount in the tenant's
// single operating currency. It is immutable - all operations return new
// Money instances.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromInt creates Money from a whole amount
func NewMoneyFromInt(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// NewMoneyFromString parses a decimal string such as "450.00".
// Amounts finer than Scale are rejected rather than silently rounded.
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	if !d.Equal(d.Truncate(Scale)) {
		return Money{}, ErrTooPrecise
	}
	return Money{amount: d}, nil
}

// MustMoney parses amount and panics on error. Intended for constants and tests.
func MustMoney(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns the difference m - other
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulInt returns m multiplied by an integer factor
func (m Money) MulInt(factor int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(factor))}
}

// Neg returns the amount with the sign reversed
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Min returns the smaller of m and other
func (m Money) Min(other Money) Money {
	if other.amount.LessThan(m.amount) {
		return other
	}
	return m
}

// Round rounds half away from zero to the persisted scale
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(Scale)}
}

// Cmp returns -1, 0 or +1
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equals returns true if both amounts are numerically equal (100 == 100.00)
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan returns true if m < other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// LessThanOrEqual returns true if m <= other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

// GreaterThan returns true if m > other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual returns true if m >= other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String returns the amount with DisplayScale fractional digits
func (m Money) String() string {
	return m.amount.StringFixed(DisplayScale)
}

// StringFixed returns the amount as a string with fixed decimal places
func (m Money) StringFixed(places int32) string {
	return m.amount.StringFixed(places)
}

// Sum adds a list of amounts
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.amount)
	}
	return Money{amount: total}
}

// MarshalJSON encodes the amount as a decimal string so no client ever
// parses it as a float.
func (m Money) MarshalJSON() ([]byte, error) {
	if m.amount.Equal(m.amount.Round(DisplayScale)) {
		return json.Marshal(m.String())
	}
	return json.Marshal(m.amount.StringFixed(Scale))
}

// UnmarshalJSON accepts a decimal string ("12.50") or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.amount = decimal.Zero
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := NewMoneyFromString(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(Scale), nil
}

// Scan implements sql.Scanner. Postgres returns numeric as text; sqlite may
// hand back integers or floats for the same column.
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.amount = decimal.Zero
		return nil
	case string:
		return m.scanString(v)
	case []byte:
		return m.scanString(string(v))
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	case float64:
		return m.scanString(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) scanString(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = d
	return nil
}

// ErrNonPositive is returned by RequirePositive.
var ErrNonPositive = errors.New("amount must be greater than zero")

// RequirePositive returns ErrNonPositive unless m > 0
func (m Money) RequirePositive() error {
	if !m.IsPositive() {
		return ErrNonPositive
	}
	return nil
}
