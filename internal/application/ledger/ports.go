package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CacheInvalidator drops cached read models registered under any of the tags.
// Calls happen after commit and are best effort.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// TenantTag covers every cached view of a tenant
func TenantTag(tenantID uuid.UUID) string {
	return "tenant:" + tenantID.String()
}

// StudentTag covers the cached views of one student (dues, receipts)
func StudentTag(tenantID, studentID uuid.UUID) string {
	return TenantTag(tenantID) + ":student:" + studentID.String()
}

// AccountTag covers the cached views of one account (balance, journal)
func AccountTag(tenantID, accountID uuid.UUID) string {
	return TenantTag(tenantID) + ":account:" + accountID.String()
}

// NoopCacheInvalidator ignores invalidations
type NoopCacheInvalidator struct{}

// Invalidate does nothing
func (NoopCacheInvalidator) Invalidate(context.Context, ...string) error { return nil }

// Metrics receives the ledger's business counters.
// telemetry.LedgerMetrics implements it.
type Metrics interface {
	RecordPayment(ctx context.Context, tenantID uuid.UUID, method string, allocations int, amount float64)
	RecordDuesGenerated(ctx context.Context, tenantID uuid.UUID, items int)
	RecordAdjustments(ctx context.Context, tenantID uuid.UUID, adjustmentType string, n int)
	RecordAccountMovement(ctx context.Context, tenantID uuid.UUID, transactionType string)
	RecordBatch(ctx context.Context, job string, d time.Duration, failures int)
}

type noopMetrics struct{}

func (noopMetrics) RecordPayment(context.Context, uuid.UUID, string, int, float64) {}
func (noopMetrics) RecordDuesGenerated(context.Context, uuid.UUID, int)            {}
func (noopMetrics) RecordAdjustments(context.Context, uuid.UUID, string, int)      {}
func (noopMetrics) RecordAccountMovement(context.Context, uuid.UUID, string)       {}
func (noopMetrics) RecordBatch(context.Context, string, time.Duration, int)        {}
