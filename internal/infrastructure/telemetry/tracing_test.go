package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "process",
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrCount, 3,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment.process", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, tenantID.String(), attrs["tenant_id"])
	assert.Equal(t, "3", attrs["count"])
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "account", "deposit")
	telemetry.SetAttributes(span, 42, "ignored", telemetry.SpanAttrAmount, "10.00", "dangling")
	span.End()

	attrs := sr.Ended()[0].Attributes()
	require.Len(t, attrs, 1)
	assert.Equal(t, "amount", string(attrs[0].Key))
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	record := func(err error) sdktrace.ReadOnlySpan {
		_, span := telemetry.StartServiceSpan(context.Background(), "account", "withdraw")
		telemetry.RecordError(span, err)
		span.End()
		ended := sr.Ended()
		return ended[len(ended)-1]
	}
	errorCode := func(s sdktrace.ReadOnlySpan) string {
		for _, kv := range s.Attributes() {
			if string(kv.Key) == telemetry.SpanAttrErrorCode {
				return kv.Value.AsString()
			}
		}
		return ""
	}

	t.Run("infrastructure failure marks the span", func(t *testing.T) {
		s := record(errors.New("connection reset"))
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.Equal(t, "connection reset", s.Status().Description)
		require.Len(t, s.Events(), 1)
		assert.Empty(t, errorCode(s))
	})

	t.Run("ledger rejection is tagged, not failed", func(t *testing.T) {
		err := fmt.Errorf("withdraw: %w", shared.InsufficientBalance("Cash Box",
			valueobject.MustMoney("5"), valueobject.MustMoney("10")))
		s := record(err)
		assert.Equal(t, codes.Unset, s.Status().Code)
		assert.Equal(t, shared.CodeInsufficientBalance, errorCode(s))
		require.Len(t, s.Events(), 1)
	})

	t.Run("concurrency conflict still fails the span", func(t *testing.T) {
		s := record(shared.ConcurrencyConflict("tenant account", uuid.New()))
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.Equal(t, shared.CodeConcurrencyConflict, errorCode(s))
	})

	t.Run("nil is ignored", func(t *testing.T) {
		s := record(nil)
		assert.Equal(t, codes.Unset, s.Status().Code)
		assert.Empty(t, s.Events())
	})
}

func TestStartServiceSpan_MoneyUsesDisplayScale(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "process",
		telemetry.SpanAttrAmount, valueobject.MustMoney("1250.5"))
	span.End()

	attrs := sr.Ended()[0].Attributes()
	require.Len(t, attrs, 1)
	assert.Equal(t, "1250.50", attrs[0].Value.AsString())
}
