package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/persistence"
	"github.com/campus/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func money(s string) valueobject.Money {
	return valueobject.MustMoney(s)
}

// recordingCache remembers every tag it was asked to drop
type recordingCache struct {
	mu   sync.Mutex
	tags []string
	err  error
}

func (c *recordingCache) Invalidate(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tags...)
	return c.err
}

func (c *recordingCache) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tags...)
}

type ledgerEnv struct {
	t        *testing.T
	db       *gorm.DB
	tenantID uuid.UUID
	clock    *testutil.FixedClock
	cache    *recordingCache

	scope       appledger.TransactionScope
	students    *persistence.GormStudentDirectory
	fees        *persistence.GormFeeStructureProvider
	adjustments *appledger.AdjustmentService
	generation  *appledger.DueGenerationService
	payments    *appledger.PaymentService
	accounts    *appledger.AccountService
	feeService  *appledger.FeeService
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return newLedgerEnvWithScope(t, db, persistence.NewGormTransactionScope(db))
}

func newLedgerEnvWithScope(t *testing.T, db *gorm.DB, scope appledger.TransactionScope) *ledgerEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	env := &ledgerEnv{
		t:        t,
		db:       db,
		tenantID: uuid.New(),
		clock:    testutil.NewFixedClock(testutil.Date(2024, time.March, 15)),
		cache:    &recordingCache{},
		scope:    scope,
		students: persistence.NewGormStudentDirectory(db),
		fees:     persistence.NewGormFeeStructureProvider(db),
	}
	env.adjustments = appledger.NewAdjustmentService(scope, log)
	env.generation = appledger.NewDueGenerationService(scope, env.adjustments, env.students, env.fees, env.clock, time.Second, log)
	env.payments = appledger.NewPaymentService(scope, env.clock, appledger.PaymentConfig{ReceiptPrefix: "RCT"}, log)
	env.accounts = appledger.NewAccountService(scope, log)
	env.feeService = appledger.NewFeeService(scope, env.students, log)

	env.adjustments.SetCacheInvalidator(env.cache)
	env.generation.SetCacheInvalidator(env.cache)
	env.payments.SetCacheInvalidator(env.cache)
	env.accounts.SetCacheInvalidator(env.cache)
	env.feeService.SetCacheInvalidator(env.cache)
	return env
}

func (e *ledgerEnv) ctx() context.Context {
	return context.Background()
}

// admit seeds a student on a single-line monthly fee structure
func (e *ledgerEnv) admit(admission time.Time, lines ...testutil.FeeLine) uuid.UUID {
	e.t.Helper()
	if len(lines) == 0 {
		lines = []testutil.FeeLine{{Name: "Tuition", Amount: "500"}}
	}
	fsID := testutil.SeedFeeStructure(e.t, e.db, e.tenantID, "Standard", lines...)
	return testutil.SeedStudent(e.t, e.db, e.tenantID, "Student "+uuid.NewString()[:4], &admission, &fsID)
}

func (e *ledgerEnv) generate(studentID uuid.UUID, admission, target time.Time) *appledger.DueCreationResult {
	e.t.Helper()
	student, err := e.students.GetStudent(e.ctx(), e.tenantID, studentID)
	require.NoError(e.t, err)
	res, err := e.generation.GenerateForStudent(e.ctx(), appledger.GenerateDuesRequest{
		TenantID:       e.tenantID,
		StudentID:      studentID,
		AdmissionDate:  &admission,
		TargetDate:     target,
		FeeStructureID: student.FeeStructureID,
	})
	require.NoError(e.t, err)
	return res
}

func (e *ledgerEnv) openItems(studentID uuid.UUID) []ledger.DueItem {
	e.t.Helper()
	items, err := persistence.NewGormDueItemRepository(e.db).FindOpenByStudent(e.ctx(), e.tenantID, studentID)
	require.NoError(e.t, err)
	return items
}

func (e *ledgerEnv) item(id uuid.UUID) *ledger.DueItem {
	e.t.Helper()
	item, err := persistence.NewGormDueItemRepository(e.db).FindByIDForTenant(e.ctx(), e.tenantID, id)
	require.NoError(e.t, err)
	return item
}

func (e *ledgerEnv) openAccount(title string, opening string) *ledger.TenantAccount {
	e.t.Helper()
	account, err := e.accounts.OpenAccount(e.ctx(), appledger.OpenAccountRequest{
		TenantID:       e.tenantID,
		Title:          title,
		Type:           ledger.AccountTypeCash,
		OpeningBalance: money(opening),
		Actor:          "bursar",
	})
	require.NoError(e.t, err)
	return account
}

func (e *ledgerEnv) balance(accountID uuid.UUID) valueobject.Money {
	e.t.Helper()
	account, err := persistence.NewGormTenantAccountRepository(e.db).FindByIDForTenant(e.ctx(), e.tenantID, accountID)
	require.NoError(e.t, err)
	return account.Balance
}

func (e *ledgerEnv) count(model any) int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(model).Count(&n).Error)
	return n
}

var errInjected = errors.New("injected failure")

// failingScope runs the real transaction but breaks the journal insert, so
// everything written before it must roll back.
type failingScope struct {
	inner appledger.TransactionScope
}

func (s failingScope) Execute(ctx context.Context, fn func(appledger.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		return fn(failingRepos{repos})
	})
}

type failingRepos struct {
	appledger.TransactionalRepositories
}

func (r failingRepos) LedgerTxRepo() ledger.LedgerTransactionRepository {
	return failingJournal{r.TransactionalRepositories.LedgerTxRepo()}
}

type failingJournal struct {
	ledger.LedgerTransactionRepository
}

func (failingJournal) Create(context.Context, *ledger.LedgerTransaction) error {
	return errInjected
}

func (failingJournal) CreateBatch(context.Context, []*ledger.LedgerTransaction) error {
	return errInjected
}
