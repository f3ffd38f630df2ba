package ledger

import (
	"testing"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeLine_AppliesTo(t *testing.T) {
	admission := BillingPeriod{Year: 2024, Month: time.January}
	periods := PeriodsBetween(date(2024, time.January, 1), date(2025, time.January, 1))

	count := func(f FeeFrequency) []string {
		line := FeeLine{Name: "x", Frequency: f}
		var keys []string
		for _, p := range periods {
			if line.AppliesTo(admission, p) {
				keys = append(keys, p.Key())
			}
		}
		return keys
	}

	assert.Len(t, count(FeeFrequencyMonthly), 13)
	assert.Equal(t, []string{"2024-01", "2024-04", "2024-07", "2024-10", "2025-01"}, count(FeeFrequencyQuarterly))
	assert.Equal(t, []string{"2024-01", "2024-07", "2025-01"}, count(FeeFrequencyHalfYearly))
	assert.Equal(t, []string{"2024-01", "2025-01"}, count(FeeFrequencyYearly))
	assert.Equal(t, []string{"2024-01"}, count(FeeFrequencyOneTime))

	line := FeeLine{Name: "x", Frequency: FeeFrequencyMonthly}
	assert.False(t, line.AppliesTo(admission, BillingPeriod{Year: 2023, Month: time.December}))
}

func TestLateFeeRule_DaysLate(t *testing.T) {
	jan := BillingPeriod{Year: 2024, Month: time.January}

	rule := LateFeeRule{Enabled: true, GraceDays: 0}
	assert.Equal(t, 0, rule.DaysLate(jan, date(2024, time.January, 31)))
	assert.Equal(t, 1, rule.DaysLate(jan, date(2024, time.February, 1)))
	assert.Equal(t, 0, rule.DaysLate(jan, date(2024, time.January, 10)))

	rule.GraceDays = 5
	assert.Equal(t, 0, rule.DaysLate(jan, date(2024, time.February, 5)))
	assert.Equal(t, 5, rule.DaysLate(jan, date(2024, time.February, 10)))
	// time of day does not matter
	assert.Equal(t, 5, rule.DaysLate(jan, time.Date(2024, time.February, 10, 23, 59, 0, 0, time.UTC)))
}

func TestLateFeeRule_AmountFor(t *testing.T) {
	jan := BillingPeriod{Year: 2024, Month: time.January}
	ref := date(2024, time.February, 10) // 10 days late with no grace

	tests := []struct {
		name      string
		frequency LateFeeFrequency
		want      string
	}{
		{"one time", LateFeeOneTime, "25.00"},
		{"daily", LateFeeDaily, "250.00"},
		{"weekly rounds weeks up", LateFeeWeekly, "50.00"},
		{"monthly rounds months up", LateFeeMonthly, "25.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := LateFeeRule{Enabled: true, Amount: valueobject.MustMoney("25"), Frequency: tt.frequency}
			assert.Equal(t, tt.want, rule.AmountFor(jan, ref).String())
		})
	}

	t.Run("disabled", func(t *testing.T) {
		rule := LateFeeRule{Enabled: false, Amount: valueobject.MustMoney("25"), Frequency: LateFeeDaily}
		assert.True(t, rule.AmountFor(jan, ref).IsZero())
	})

	t.Run("within grace", func(t *testing.T) {
		rule := LateFeeRule{Enabled: true, Amount: valueobject.MustMoney("25"), Frequency: LateFeeDaily, GraceDays: 15}
		assert.True(t, rule.AmountFor(jan, ref).IsZero())
	})

	t.Run("monthly beyond thirty days", func(t *testing.T) {
		rule := LateFeeRule{Enabled: true, Amount: valueobject.MustMoney("25"), Frequency: LateFeeMonthly}
		assert.Equal(t, "50.00", rule.AmountFor(jan, date(2024, time.March, 2)).String()) // 31 days
	})
}

func TestFeeStructure_Validate(t *testing.T) {
	t.Run("no lines is a missing prerequisite", func(t *testing.T) {
		fs := &FeeStructure{ID: uuid.New(), Name: "Empty"}
		err := fs.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMissingPrerequisite)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		fs := &FeeStructure{Name: "Bad", Lines: []FeeLine{{Name: "Tuition", Amount: valueobject.MustMoney("10"), Frequency: "SOMETIMES"}}}
		assert.ErrorIs(t, fs.Validate(), shared.ErrValidationFailed)
	})

	t.Run("valid", func(t *testing.T) {
		fs := &FeeStructure{Name: "Std", Lines: []FeeLine{{Name: "Tuition", Amount: valueobject.MustMoney("500"), Frequency: FeeFrequencyMonthly}}}
		assert.NoError(t, fs.Validate())
	})
}

func TestFeeStructure_LinesFor(t *testing.T) {
	admission := BillingPeriod{Year: 2024, Month: time.January}
	fs := &FeeStructure{Lines: []FeeLine{
		{ID: uuid.New(), Name: "Tuition", Frequency: FeeFrequencyMonthly},
		{ID: uuid.New(), Name: "Admission", Frequency: FeeFrequencyOneTime},
		{ID: uuid.New(), Name: "Exam", Frequency: FeeFrequencyQuarterly},
	}}

	assert.Len(t, fs.LinesFor(admission, admission), 3)
	lines := fs.LinesFor(admission, BillingPeriod{Year: 2024, Month: time.February})
	require.Len(t, lines, 1)
	assert.Equal(t, "Tuition", lines[0].Name)

	l, ok := fs.Line(fs.Lines[2].ID)
	assert.True(t, ok)
	assert.Equal(t, "Exam", l.Name)
}
