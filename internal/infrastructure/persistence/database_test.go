package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

func TestOpen(t *testing.T) {
	t.Run("plain connection", func(t *testing.T) {
		d, err := Open(sqlite.Open("file::memory:"))
		require.NoError(t, err)
		defer d.Close()

		assert.NoError(t, d.Ping(context.Background()))
		assert.True(t, d.DB.Config.SkipDefaultTransaction)
		assert.Equal(t, time.UTC, d.DB.Config.NowFunc().Location())
	})

	t.Run("with logger and tracing", func(t *testing.T) {
		d, err := Open(sqlite.Open("file::memory:"),
			WithLogger(zap.NewNop(), gormlogger.Warn, 100*time.Millisecond),
			WithTracing(telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"}),
		)
		require.NoError(t, err)
		defer d.Close()

		assert.NotNil(t, d.DB.Callback().Query().Get("ledger_timing:after_query"))
	})

	t.Run("closed connection fails ping", func(t *testing.T) {
		d, err := Open(sqlite.Open("file::memory:"))
		require.NoError(t, err)
		require.NoError(t, d.Close())

		assert.Error(t, d.Ping(context.Background()))
	})
}
