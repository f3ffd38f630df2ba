package handler_test

import (
	"net/http"
	"testing"

	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	cash := e.openAccount("Cash Box", "CASH", "1000.00")
	assert.Equal(t, "1000.00", cash.Balance.String())
	bank := e.openAccount("Bank", "BANK", "")
	assert.Equal(t, "0.00", bank.Balance.String())

	t.Run("overdraw is rejected with the account named", func(t *testing.T) {
		status, env := e.call(http.MethodPost, "/accounts/"+cash.ID.String()+"/withdraw", map[string]string{"amount": "1200"})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeInsufficientBalance, env.Error.Code)
		assert.Contains(t, env.Error.Message, "Cash Box")
	})

	t.Run("transfer moves money both ways", func(t *testing.T) {
		status, env := e.call(http.MethodPost, "/transfers", map[string]string{
			"from_account_id": cash.ID.String(),
			"to_account_id":   bank.ID.String(),
			"amount":          "250.50",
		})
		require.Equal(t, http.StatusCreated, status, env.Error)
		tx := decode[dto.TransactionResponse](t, env)
		assert.Equal(t, "FUND_TRANSFER", tx.Type)
		assert.Equal(t, "749.50", tx.BalanceAfter.String())
		require.NotNil(t, tx.CounterAccountID)
		assert.Equal(t, bank.ID, *tx.CounterAccountID)
	})

	t.Run("income and expense", func(t *testing.T) {
		status, _ := e.call(http.MethodPost, "/accounts/"+bank.ID.String()+"/income", map[string]string{"amount": "100", "label": "Donation"})
		require.Equal(t, http.StatusCreated, status)
		status, env := e.call(http.MethodPost, "/accounts/"+bank.ID.String()+"/expense", map[string]string{"amount": "50.25", "label": "Stationery"})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "300.25", decode[dto.TransactionResponse](t, env).BalanceAfter.String())
	})

	t.Run("journal sorted by amount", func(t *testing.T) {
		status, env := e.call(http.MethodGet, "/accounts/"+bank.ID.String()+"/transactions?order_by=amount&order_dir=desc", nil)
		require.Equal(t, http.StatusOK, status)
		txs := decode[[]dto.TransactionResponse](t, env)
		require.GreaterOrEqual(t, len(txs), 3)
		assert.Equal(t, "250.50", txs[0].Amount.String())
		assert.Equal(t, "100.00", txs[1].Amount.String())

		// unknown keys fall back to newest first
		status, _ = e.call(http.MethodGet, "/accounts/"+bank.ID.String()+"/transactions?order_by=label", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("accounts are listed by title", func(t *testing.T) {
		status, env := e.call(http.MethodGet, "/accounts", nil)
		require.Equal(t, http.StatusOK, status)
		list := decode[[]dto.AccountResponse](t, env)
		require.Len(t, list, 2)
		assert.Equal(t, "Bank", list[0].Title)
		assert.Equal(t, "300.25", list[0].Balance.String())
		assert.Equal(t, "749.50", list[1].Balance.String())
	})

	t.Run("journal filtered by type", func(t *testing.T) {
		status, env := e.call(http.MethodGet, "/accounts/"+cash.ID.String()+"/transactions?type=FUND_TRANSFER&page_size=10", nil)
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Len(t, decode[[]dto.TransactionResponse](t, env), 1)

		status, env = e.call(http.MethodGet, "/accounts/"+cash.ID.String()+"/transactions?type=REFUND", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	})

	t.Run("input errors", func(t *testing.T) {
		status, env := e.call(http.MethodPost, "/accounts/"+cash.ID.String()+"/deposit", map[string]string{"amount": "12.34567"})
		assert.Equal(t, http.StatusBadRequest, status)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "amount", env.Error.Details[0].Field)

		status, env = e.call(http.MethodPost, "/accounts/not-a-uuid/deposit", map[string]string{"amount": "1"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeInvalidID, env.Error.Code)

		status, env = e.call(http.MethodGet, "/accounts/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)

		status, env = e.call(http.MethodPost, "/accounts", map[string]string{"title": "Vault", "type": "GOLD"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "type", env.Error.Details[0].Field)
	})

	t.Run("accounts of another tenant are invisible", func(t *testing.T) {
		other := *e
		other.tenantID = uuid.New()
		status, _ := other.call(http.MethodGet, "/accounts/"+cash.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
