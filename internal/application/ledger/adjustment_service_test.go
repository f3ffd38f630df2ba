package ledger_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/infrastructure/persistence"
	"github.com/campus/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAdjustment(t *testing.T) {
	env := newLedgerEnv(t)
	f := newPaymentFixture(t, env)

	apply := func(itemID uuid.UUID, typ ledger.AdjustmentType, amount string) (*ledger.DueAdjustment, error) {
		return env.adjustments.ApplyAdjustment(env.ctx(), appledger.ApplyAdjustmentRequest{
			TenantID:  env.tenantID,
			DueItemID: itemID,
			Type:      typ,
			Amount:    money(amount),
			Reason:    "test",
			AppliedBy: "bursar",
		})
	}

	t.Run("fine increases the final amount", func(t *testing.T) {
		adj, err := apply(f.tuition.ID, ledger.AdjustmentFine, "25")
		require.NoError(t, err)
		assert.Equal(t, ledger.AdjustmentStatusApplied, adj.Status)
		assert.Equal(t, "525.00", env.item(f.tuition.ID).FinalAmount.String())
	})

	t.Run("decrease below the paid amount is rejected", func(t *testing.T) {
		_, err := env.payments.ProcessPayment(env.ctx(), appledger.ProcessPaymentRequest{
			Allocations: []appledger.PaymentAllocation{f.alloc(env, f.tuition, f.cash, "400")},
		})
		require.NoError(t, err)

		_, err = apply(f.tuition.ID, ledger.AdjustmentDiscount, "200")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		assert.Equal(t, "525.00", env.item(f.tuition.ID).FinalAmount.String())
	})

	t.Run("discount down to the paid amount settles the item", func(t *testing.T) {
		_, err := apply(f.tuition.ID, ledger.AdjustmentDiscount, "125")
		require.NoError(t, err)
		assert.Equal(t, ledger.DueStatusPaid, env.item(f.tuition.ID).Status)
	})

	t.Run("waiver clearing the outstanding amount waives the item", func(t *testing.T) {
		_, err := apply(f.transport.ID, ledger.AdjustmentWaiver, "200")
		require.NoError(t, err)
		assert.Equal(t, ledger.DueStatusWaived, env.item(f.transport.ID).Status)

		_, err = apply(f.transport.ID, ledger.AdjustmentFine, "5")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("missing due item", func(t *testing.T) {
		_, err := apply(uuid.New(), ledger.AdjustmentFine, "5")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := apply(f.tuition.ID, ledger.AdjustmentFine, "0")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

// Random adjustment and payment sequences must always leave
// final = original + increases - decreases, with status matching paid vs final.
func TestApplyAdjustment_InvariantUnderRandomSequences(t *testing.T) {
	env := newLedgerEnv(t)
	admission := testutil.Date(2024, time.January, 10)
	studentID := env.admit(admission, testutil.FeeLine{Name: "Tuition", Amount: "1000"})
	env.generate(studentID, admission, testutil.Date(2024, time.January, 31))
	itemID := env.openItems(studentID)[0].ID
	cash := env.openAccount("Cash Box", "0")
	adjRepo := persistence.NewGormDueAdjustmentRepository(env.db)

	rng := rand.New(rand.NewSource(42))
	types := []ledger.AdjustmentType{ledger.AdjustmentDiscount, ledger.AdjustmentWaiver, ledger.AdjustmentFine, ledger.AdjustmentLateFee}

	for step := 0; step < 60; step++ {
		amount := money(fmt.Sprintf("%d.%02d", rng.Intn(300), rng.Intn(100)))
		if rng.Intn(4) == 0 {
			_, _ = env.payments.ProcessPayment(env.ctx(), appledger.ProcessPaymentRequest{
				Allocations: []appledger.PaymentAllocation{{
					TenantID: env.tenantID, StudentID: studentID, CollectedBy: "bursar",
					DueItemID: itemID, AccountID: cash.ID, Amount: amount, Method: ledger.PaymentMethodCash,
				}},
			})
		} else {
			_, _ = env.adjustments.ApplyAdjustment(env.ctx(), appledger.ApplyAdjustmentRequest{
				TenantID: env.tenantID, DueItemID: itemID, Type: types[rng.Intn(len(types))],
				Amount: amount, Reason: "random", AppliedBy: "fuzz",
			})
		}

		item := env.item(itemID)
		adjs, err := adjRepo.FindByDueItem(env.ctx(), env.tenantID, itemID)
		require.NoError(t, err)
		require.NoError(t, item.CheckInvariant(adjs), "step %d", step)
		require.False(t, item.FinalAmount.LessThan(item.PaidAmount), "step %d", step)
		require.Equal(t, item.PaidAmount.String(), env.balance(cash.ID).String(), "step %d", step)

		switch item.Status {
		case ledger.DueStatusWaived, ledger.DueStatusOverdue:
		default:
			require.Equal(t, ledger.DeriveDueStatus(item.PaidAmount, item.FinalAmount), item.Status, "step %d", step)
		}
	}
}
