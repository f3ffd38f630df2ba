package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of application spans.
const TracerName = "campus-ledger"

// StartServiceSpan starts a span named {service}.{method}, for example
// "payment.process". The caller ends the span.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "account", "transfer")
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, keyValues ...any) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx,
		service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toAttributes(keyValues)...),
	)
}

// SetAttributes adds alternating key/value pairs to the span.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(toAttributes(keyValues)...)
}

// RecordError records err on the span. A ledger rejection (a domain error
// such as INSUFFICIENT_BALANCE) is tagged with its code and leaves the span
// status alone, except for concurrency conflicts; anything else marks the
// span failed.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		span.SetAttributes(attribute.String(SpanAttrErrorCode, domainErr.Code))
		if domainErr.Code != shared.CodeConcurrencyConflict {
			return
		}
	}
	span.SetStatus(codes.Error, err.Error())
}

func toAttributes(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// Span attribute keys used by the ledger services.
const (
	SpanAttrTenantID      = "tenant_id"
	SpanAttrStudentID     = "student_id"
	SpanAttrAccountID     = "account_id"
	SpanAttrDueItemID     = "due_item_id"
	SpanAttrReceiptNumber = "receipt_number"
	SpanAttrAmount        = "amount"
	SpanAttrCount         = "count"
	SpanAttrErrorCode     = "ledger.error_code"
)
