package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/infrastructure/persistence/models"
	"github.com/campus/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantAccountRepository implements ledger.TenantAccountRepository using GORM
type GormTenantAccountRepository struct {
	db *gorm.DB
}

// NewGormTenantAccountRepository creates a new GormTenantAccountRepository
func NewGormTenantAccountRepository(db *gorm.DB) *GormTenantAccountRepository {
	return &GormTenantAccountRepository{db: db}
}

// Create inserts a new account
func (r *GormTenantAccountRepository) Create(ctx context.Context, account *ledger.TenantAccount) error {
	if err := r.db.WithContext(ctx).Create(models.TenantAccountModelFromDomain(account)).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// FindByIDForTenant finds an account without locking
func (r *GormTenantAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.TenantAccount, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds and row-locks an account until the transaction ends
func (r *GormTenantAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ledger.TenantAccount, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormTenantAccountRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*ledger.TenantAccount, error) {
	var row models.TenantAccountModel
	if err := db.Scopes(tenant.TenantScope(tenantID)).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NotFound("account", id)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return row.ToDomain(), nil
}

// FindByIDsForUpdate locks all ids in one query. Rows are locked in id order
// so two transactions touching the same accounts cannot deadlock.
func (r *GormTenantAccountRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ledger.TenantAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.TenantAccountModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	accounts := make([]ledger.TenantAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// FindAllForTenant lists the tenant's accounts by title
func (r *GormTenantAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.TenantAccount, error) {
	var rows []models.TenantAccountModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Order("title ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]ledger.TenantAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// SaveWithLock writes the balance guarded by the current version and bumps it
func (r *GormTenantAccountRepository) SaveWithLock(ctx context.Context, account *ledger.TenantAccount) error {
	result := r.db.WithContext(ctx).
		Model(&models.TenantAccountModel{}).
		Scopes(tenant.TenantScope(account.TenantID)).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]any{
			"balance":    account.Balance.Amount(),
			"version":    account.Version + 1,
			"updated_at": account.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ConcurrencyConflict("account "+account.Title, account.ID)
	}
	account.IncrementVersion()
	return nil
}

// GormLedgerTransactionRepository implements ledger.LedgerTransactionRepository using GORM
type GormLedgerTransactionRepository struct {
	db *gorm.DB
}

// NewGormLedgerTransactionRepository creates a new GormLedgerTransactionRepository
func NewGormLedgerTransactionRepository(db *gorm.DB) *GormLedgerTransactionRepository {
	return &GormLedgerTransactionRepository{db: db}
}

// Create inserts one journal entry
func (r *GormLedgerTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	if err := r.db.WithContext(ctx).Create(models.LedgerTransactionModelFromDomain(tx)).Error; err != nil {
		return fmt.Errorf("create ledger transaction: %w", err)
	}
	return nil
}

// CreateBatch inserts all entries in one statement
func (r *GormLedgerTransactionRepository) CreateBatch(ctx context.Context, txs []*ledger.LedgerTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*models.LedgerTransactionModel, len(txs))
	for i, t := range txs {
		rows[i] = models.LedgerTransactionModelFromDomain(t)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create ledger transactions: %w", err)
	}
	return nil
}

// FindByAccount pages through entries touching an account, including
// transfers where it is the counter account.
func (r *GormLedgerTransactionRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.TransactionFilter) ([]ledger.LedgerTransaction, int64, error) {
	page := filter.Filter.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.LedgerTransactionModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("(account_id = ? OR counter_account_id = ?)", accountID, accountID)
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ledger transactions: %w", err)
	}

	var rows []models.LedgerTransactionModel
	if err := query.
		Order(transactionSortColumns.orderClause(page)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list ledger transactions: %w", err)
	}
	txs := make([]ledger.LedgerTransaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, total, nil
}
