package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_DefaultsToNop(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFields(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTenant(ctx, "tenant-a")
	ctx = WithActor(ctx, "bursar")

	fields := Fields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"request_id", "tenant_id", "actor"}, keys)
}

func TestFields_WithSpan(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := Fields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, traceID.String(), fields[0].String)
}

func TestL(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithTenant(ctx, "tenant-a")

	L(ctx).Info("dues generated")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tenant-a", entries[0].ContextMap()["tenant_id"])
}

func TestFor(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithActor(context.Background(), "bursar")

	For(ctx, zap.New(core)).Warn("cache invalidation failed")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bursar", entries[0].ContextMap()["actor"])
}
