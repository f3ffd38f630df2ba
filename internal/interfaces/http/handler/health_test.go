package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/campus/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(checks map[string]handler.Pinger) (*httptest.ResponseRecorder, dto.Response) {
		r := gin.New()
		r.GET("/health", handler.NewHealthHandler("1.2.3", checks).Health)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	t.Run("healthy", func(t *testing.T) {
		w, resp := serve(map[string]handler.Pinger{
			"database": pingFunc(func(context.Context) error { return nil }),
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		assert.Contains(t, w.Body.String(), "1.2.3")
	})

	t.Run("degraded dependency", func(t *testing.T) {
		w, resp := serve(map[string]handler.Pinger{
			"database": pingFunc(func(context.Context) error { return nil }),
			"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeServiceUnavailable, resp.Error.Code)
		assert.Contains(t, w.Body.String(), "redis")
	})
}
