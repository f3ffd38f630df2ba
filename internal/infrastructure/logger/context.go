package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	tenantIDKey  contextKey = "tenant_id"
	actorKey     contextKey = "actor"
)

// WithContext returns a new context carrying the logger
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id for log correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithTenant stores the tenant id for log correlation
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithActor stores the acting user for log correlation
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// RequestID returns the request id stored in ctx
func RequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// TenantID returns the tenant id stored in ctx
func TenantID(ctx context.Context) string { return stringValue(ctx, tenantIDKey) }

// Actor returns the acting user stored in ctx
func Actor(ctx context.Context) string { return stringValue(ctx, actorKey) }

// Fields returns the correlation fields present in ctx: trace and span ids
// from the active span, then request, tenant and actor.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if v := RequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := TenantID(ctx); v != "" {
		fields = append(fields, zap.String("tenant_id", v))
	}
	if v := Actor(ctx); v != "" {
		fields = append(fields, zap.String("actor", v))
	}
	return fields
}

// L returns the context logger enriched with the correlation fields.
//
//	logger.L(ctx).Info("payment processed", zap.String("receipt", no))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(Fields(ctx)...)
}

// For enriches an explicitly injected logger with the correlation fields of ctx.
// Services hold their own *zap.Logger and use this to keep trace correlation.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		return L(ctx)
	}
	return l.With(Fields(ctx)...)
}
