package shared

import (
	"github.com/google/uuid"
)

// TenantAggregateRoot is a mutable tenant-scoped record (due item, account,
// receipt). Version guards every update: a write succeeds only against the
// version it was read at.
type TenantAggregateRoot struct {
	TenantEntity
	Version int
}

// NewTenantAggregateRoot creates a new tenant-scoped aggregate at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		TenantEntity: NewTenantEntity(tenantID),
		Version:      1,
	}
}

// IncrementVersion records a successful guarded write
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}
