package persistence_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/migration"
	"github.com/campus/backend/internal/infrastructure/persistence"
	"github.com/campus/backend/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
)

// newPostgres starts a throwaway PostgreSQL, applies the embedded migrations
// and returns a connection to it.
func newPostgres(t *testing.T) *persistence.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// the migrate driver closes the handle it is given
	migrateDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(migrateDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := persistence.Open(postgres.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	db := newPostgres(t)
	accounts := appledger.NewAccountService(persistence.NewGormTransactionScope(db.DB), zaptest.NewLogger(t))
	ctx := context.Background()
	tenantID := uuid.New()

	acc, err := accounts.OpenAccount(ctx, appledger.OpenAccountRequest{
		TenantID:       tenantID,
		Title:          "Cash",
		Type:           ledger.AccountTypeCash,
		OpeningBalance: valueobject.MustMoney("100"),
		Actor:          "setup",
	})
	require.NoError(t, err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := accounts.Withdraw(ctx, appledger.MovementRequest{
				TenantID:  tenantID,
				AccountID: acc.ID,
				Amount:    valueobject.MustMoney("15"),
				Actor:     "teller",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientBalance):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 4, refused)

	got, err := accounts.GetAccount(ctx, tenantID, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Balance.String())

	page, err := accounts.ListTransactions(ctx, tenantID, acc.ID, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.Total, "opening deposit plus six withdrawals")
}

func TestPostgres_OppositeTransfersDoNotDeadlock(t *testing.T) {
	db := newPostgres(t)
	accounts := appledger.NewAccountService(persistence.NewGormTransactionScope(db.DB), zaptest.NewLogger(t))
	ctx := context.Background()
	tenantID := uuid.New()

	open := func(title string) uuid.UUID {
		acc, err := accounts.OpenAccount(ctx, appledger.OpenAccountRequest{
			TenantID:       tenantID,
			Title:          title,
			Type:           ledger.AccountTypeBank,
			OpeningBalance: valueobject.MustMoney("1000"),
			Actor:          "setup",
		})
		require.NoError(t, err)
		return acc.ID
	}
	a, b := open("A"), open("B")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := accounts.Transfer(ctx, appledger.TransferRequest{
				TenantID:      tenantID,
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        valueobject.MustMoney("10"),
				Actor:         "teller",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	accA, err := accounts.GetAccount(ctx, tenantID, a)
	require.NoError(t, err)
	accB, err := accounts.GetAccount(ctx, tenantID, b)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", accA.Balance.String())
	assert.Equal(t, "1000.00", accB.Balance.String())
}
