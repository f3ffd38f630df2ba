package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDueItem(t *testing.T, amount string) *DueItem {
	t.Helper()
	due := NewStudentDue(uuid.New(), uuid.New(), BillingPeriod{Year: 2024, Month: time.January})
	item, err := NewDueItem(due, "Tuition", valueobject.MustMoney(amount), nil, nil)
	require.NoError(t, err)
	return item
}

func TestDeriveDueStatus(t *testing.T) {
	final := valueobject.MustMoney("500")
	assert.Equal(t, DueStatusPending, DeriveDueStatus(valueobject.Zero(), final))
	assert.Equal(t, DueStatusPartial, DeriveDueStatus(valueobject.MustMoney("0.01"), final))
	assert.Equal(t, DueStatusPaid, DeriveDueStatus(valueobject.MustMoney("500.00"), final))
}

func TestNewDueItem(t *testing.T) {
	item := newTestDueItem(t, "500.00")
	assert.Equal(t, DueStatusPending, item.Status)
	assert.True(t, item.OriginalAmount.Equals(item.FinalAmount))
	assert.True(t, item.PaidAmount.IsZero())
	assert.Equal(t, 1, item.Version)
	assert.Equal(t, "2024-01", item.Period.Key())

	due := NewStudentDue(uuid.New(), uuid.New(), BillingPeriod{Year: 2024, Month: time.January})
	_, err := NewDueItem(due, "", valueobject.MustMoney("1"), nil, nil)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
	_, err = NewDueItem(due, "Tuition", valueobject.MustMoney("-1"), nil, nil)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestDueItem_Adjust(t *testing.T) {
	t.Run("discount then full payment", func(t *testing.T) {
		item := newTestDueItem(t, "500.00")
		adj, err := item.Adjust(AdjustmentDiscount, valueobject.MustMoney("50.00"), "sibling", "admin", nil)
		require.NoError(t, err)
		assert.Equal(t, item.ID, adj.DueItemID)
		assert.Equal(t, AdjustmentStatusApplied, adj.Status)
		assert.Equal(t, "450.00", item.FinalAmount.String())
		assert.Equal(t, "500.00", item.OriginalAmount.String())

		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("450.00")))
		assert.Equal(t, DueStatusPaid, item.Status)
	})

	t.Run("fine on a paid item reopens it", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("100")))
		_, err := item.Adjust(AdjustmentFine, valueobject.MustMoney("10"), "damage", "admin", nil)
		require.NoError(t, err)
		assert.Equal(t, DueStatusPartial, item.Status)
		assert.Equal(t, "10.00", item.Outstanding().String())
	})

	t.Run("decrease below paid is rejected", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("80")))
		_, err := item.Adjust(AdjustmentDiscount, valueobject.MustMoney("30"), "", "admin", nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		assert.Equal(t, "100.00", item.FinalAmount.String())
	})

	t.Run("decrease below zero is rejected", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		_, err := item.Adjust(AdjustmentDiscount, valueobject.MustMoney("100.01"), "", "admin", nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("waiver clearing outstanding sets WAIVED", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("40")))
		_, err := item.Adjust(AdjustmentWaiver, valueobject.MustMoney("60"), "hardship", "principal", nil)
		require.NoError(t, err)
		assert.Equal(t, DueStatusWaived, item.Status)

		_, err = item.Adjust(AdjustmentFine, valueobject.MustMoney("5"), "", "admin", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, item.ApplyPayment(valueobject.MustMoney("1")), shared.ErrInvalidState)
	})

	t.Run("partial waiver derives status", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		_, err := item.Adjust(AdjustmentWaiver, valueobject.MustMoney("60"), "", "admin", nil)
		require.NoError(t, err)
		assert.Equal(t, DueStatusPending, item.Status)
	})

	t.Run("invalid input", func(t *testing.T) {
		item := newTestDueItem(t, "100")
		_, err := item.Adjust("BONUS", valueobject.MustMoney("1"), "", "admin", nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		_, err = item.Adjust(AdjustmentFine, valueobject.Zero(), "", "admin", nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		_, err = item.Adjust(AdjustmentFine, valueobject.MustMoney("1"), "", "", nil)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestDueItem_AdjustmentInvariant_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []AdjustmentType{AdjustmentDiscount, AdjustmentWaiver, AdjustmentFine, AdjustmentLateFee}

	for run := 0; run < 200; run++ {
		item := newTestDueItem(t, "500.00")
		var applied []DueAdjustment
		for step := 0; step < 20 && item.Status != DueStatusWaived; step++ {
			amount := valueobject.MustMoney(centsString(rng.Int63n(20000) + 1))
			if rng.Intn(4) == 0 {
				// payments interleave with adjustments; rejected ones change nothing
				_ = item.ApplyPayment(amount)
				continue
			}
			adj, err := item.Adjust(types[rng.Intn(len(types))], amount, "random", "prop", nil)
			if err != nil {
				continue
			}
			applied = append(applied, *adj)
		}
		require.NoError(t, item.CheckInvariant(applied), "run %d", run)
		assert.False(t, item.FinalAmount.IsNegative())
		assert.True(t, item.PaidAmount.LessThanOrEqual(item.FinalAmount))
		if item.Status != DueStatusWaived {
			assert.Equal(t, DeriveDueStatus(item.PaidAmount, item.FinalAmount), item.Status)
		}
	}
}

func centsString(cents int64) string {
	return valueobject.NewMoneyFromInt(cents).Amount().Shift(-2).StringFixed(2)
}

func TestDueItem_ApplyPayment(t *testing.T) {
	t.Run("partial then paid", func(t *testing.T) {
		item := newTestDueItem(t, "500")
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("300")))
		assert.Equal(t, DueStatusPartial, item.Status)
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("200")))
		assert.Equal(t, DueStatusPaid, item.Status)
		assert.True(t, item.Outstanding().IsZero())
	})

	t.Run("over-payment is rejected", func(t *testing.T) {
		item := newTestDueItem(t, "500")
		err := item.ApplyPayment(valueobject.MustMoney("500.01"))
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		assert.True(t, item.PaidAmount.IsZero())
	})

	t.Run("paid item accepts nothing more", func(t *testing.T) {
		item := newTestDueItem(t, "10")
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("10")))
		assert.ErrorIs(t, item.ApplyPayment(valueobject.MustMoney("1")), shared.ErrInvalidState)
	})

	t.Run("non-positive", func(t *testing.T) {
		item := newTestDueItem(t, "10")
		assert.ErrorIs(t, item.ApplyPayment(valueobject.Zero()), shared.ErrValidationFailed)
	})

	t.Run("overdue stays overdue until fully paid", func(t *testing.T) {
		item := newTestDueItem(t, "500")
		require.True(t, item.MarkOverdue())
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("100")))
		assert.Equal(t, DueStatusOverdue, item.Status)
		require.NoError(t, item.ApplyPayment(valueobject.MustMoney("400")))
		assert.Equal(t, DueStatusPaid, item.Status)
		assert.False(t, item.MarkOverdue())
	})
}
