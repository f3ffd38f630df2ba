package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/infrastructure/cache"
	"github.com/campus/backend/internal/infrastructure/persistence"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/campus/backend/internal/interfaces/http/handler"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/campus/backend/internal/interfaces/http/router"
	"github.com/campus/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type apiEnv struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	tenantID uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewFixedClock(testutil.Date(2024, time.March, 15))

	scope := persistence.NewGormTransactionScope(db)
	students := persistence.NewGormStudentDirectory(db)
	fees := persistence.NewGormFeeStructureProvider(db)

	adjustments := appledger.NewAdjustmentService(scope, log)
	generation := appledger.NewDueGenerationService(scope, adjustments, students, fees, clock, time.Second, log)
	payments := appledger.NewPaymentService(scope, clock, appledger.PaymentConfig{ReceiptPrefix: "RCT"}, log)
	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })
	payments.SetIdempotencyStore(idem)
	accounts := appledger.NewAccountService(scope, log)
	feeService := appledger.NewFeeService(scope, students, log)

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Auth:   middleware.AuthConfig{Disabled: true, Logger: log},
		Health: handler.NewHealthHandler("test", nil),
		Ledger: router.LedgerHandlers{
			Dues:     handler.NewDuesHandler(generation, feeService, adjustments, students),
			Payments: handler.NewPaymentHandler(payments),
			Accounts: handler.NewAccountHandler(accounts),
		},
	})
	require.NoError(t, err)

	return &apiEnv{t: t, db: db, engine: engine, tenantID: uuid.New()}
}

func (e *apiEnv) call(method, path string, body any, headers ...string) (int, envelope) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, e.tenantID.String())
	req.Header.Set(middleware.ActorHeaderKey, "bursar")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (e *apiEnv) openAccount(title, accountType, opening string) dto.AccountResponse {
	e.t.Helper()
	status, env := e.call(http.MethodPost, "/accounts", map[string]string{
		"title": title, "type": accountType, "opening_balance": opening,
	})
	require.Equal(e.t, http.StatusCreated, status, env.Error)
	return decode[dto.AccountResponse](e.t, env)
}

func (e *apiEnv) openItems(studentID uuid.UUID) []ledger.DueItem {
	e.t.Helper()
	items, err := persistence.NewGormDueItemRepository(e.db).
		FindOpenByStudent(context.Background(), e.tenantID, studentID)
	require.NoError(e.t, err)
	return items
}
