package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a nil meter is provided.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics records the business counters of the ledger.
type LedgerMetrics struct {
	paymentsTotal    *Counter
	paymentAmount    *FloatCounter
	duesGenerated    *Counter
	adjustmentsTotal *Counter
	movementsTotal   *Counter
	batchDuration    *Histogram
	batchFailures    *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.paymentsTotal, err = NewCounter(meter, "ledger_payments_total", "Payment allocations committed", "{allocations}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewFloatCounter(meter, "ledger_payment_amount_total", "Amount collected by payments", "{currency}"); err != nil {
		return nil, err
	}
	if m.duesGenerated, err = NewCounter(meter, "ledger_due_items_generated_total", "Due items created by generation", "{items}"); err != nil {
		return nil, err
	}
	if m.adjustmentsTotal, err = NewCounter(meter, "ledger_adjustments_total", "Due adjustments applied", "{adjustments}"); err != nil {
		return nil, err
	}
	if m.movementsTotal, err = NewCounter(meter, "ledger_account_movements_total", "Journal entries written against accounts", "{entries}"); err != nil {
		return nil, err
	}
	if m.batchDuration, err = NewHistogram(meter, "ledger_batch_duration_seconds", "Duration of scheduled and batch ledger jobs", "s", BatchDurationBuckets...); err != nil {
		return nil, err
	}
	if m.batchFailures, err = NewCounter(meter, "ledger_batch_failures_total", "Per-student failures inside batch jobs", "{failures}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment counts the allocations of one committed payment and its total.
func (m *LedgerMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, method string, allocations int, amount float64) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrPaymentMethod.String(method)}
	m.paymentsTotal.Add(ctx, int64(allocations), attrs...)
	m.paymentAmount.Add(ctx, amount, attrs...)
}

// RecordDuesGenerated counts due items created for a tenant.
func (m *LedgerMetrics) RecordDuesGenerated(ctx context.Context, tenantID uuid.UUID, items int) {
	if items == 0 {
		return
	}
	m.duesGenerated.Add(ctx, int64(items), AttrTenantID.String(tenantID.String()))
}

// RecordAdjustments counts adjustments of one type.
func (m *LedgerMetrics) RecordAdjustments(ctx context.Context, tenantID uuid.UUID, adjustmentType string, n int) {
	if n == 0 {
		return
	}
	m.adjustmentsTotal.Add(ctx, int64(n),
		AttrTenantID.String(tenantID.String()),
		AttrAdjustmentType.String(adjustmentType),
	)
}

// RecordAccountMovement counts one journal entry.
func (m *LedgerMetrics) RecordAccountMovement(ctx context.Context, tenantID uuid.UUID, transactionType string) {
	m.movementsTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrTransactionType.String(transactionType),
	)
}

// RecordBatch records the duration and failures of a batch job.
func (m *LedgerMetrics) RecordBatch(ctx context.Context, job string, d time.Duration, failures int) {
	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
		m.batchFailures.Add(ctx, int64(failures), attribute.String("job", job))
	}
	m.batchDuration.RecordDuration(ctx, d, attribute.String("job", job), AttrOutcome.String(outcome))
}
