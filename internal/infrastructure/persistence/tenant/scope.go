// Package tenant scopes ledger queries to one tenant.
//
// A row of another tenant is indistinguishable from a missing row, and a
// query without a tenant fails instead of reading across tenants.
//
//	db.Scopes(tenant.TenantScope(tenantID)).Find(&items)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant discriminator column present on every ledger table
const Column = "tenant_id"

// ErrMissingTenant is added to a query scoped with the zero tenant id.
var ErrMissingTenant = errors.New("tenant: query scoped without a tenant id")

// TenantScope restricts a query to tenantID. The zero id poisons the
// statement with ErrMissingTenant so it never runs unfiltered.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrMissingTenant)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}
