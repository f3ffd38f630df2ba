package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func validationRouter() *gin.Engine {
	type line struct {
		Amount string `json:"amount" binding:"required,money"`
		Method string `json:"method" binding:"required,payment_method"`
	}
	type input struct {
		Amount string `json:"amount" binding:"required,money"`
		Type   string `json:"type" binding:"required,oneof=CASH BANK"`
		On     string `json:"on" binding:"omitempty,datetime=2006-01-02"`
		Lines  []line `json:"lines" binding:"omitempty,dive"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req input
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req))
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := validationRouter()

	post := func(body string) (*httptest.ResponseRecorder, dto.Response) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	t.Run("field errors are listed by json name", func(t *testing.T) {
		w, resp := post(`{"type": "GOLD", "on": "15/01/2024"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["amount"])
		assert.Equal(t, "Must be one of: CASH BANK", fields["type"])
		assert.Equal(t, "Must be a date in the format 2006-01-02", fields["on"])
	})

	t.Run("ledger tags report nested paths", func(t *testing.T) {
		w, resp := post(`{"amount": "12.34567", "type": "CASH", "lines": [` +
			`{"amount": "5", "method": "cash"},` +
			`{"amount": "abc", "method": "CHEQUE"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Len(t, fields, 3)
		assert.Equal(t, "Must be a decimal amount such as 1250.00", fields["amount"])
		assert.Equal(t, "Must be a decimal amount such as 1250.00", fields["lines[1].amount"])
		assert.Equal(t, "Must be one of: CASH BANK MOBILE_WALLET ONLINE OTHER", fields["lines[1].method"])
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		w, resp := post(`{"amount": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid input passes", func(t *testing.T) {
		w, resp := post(`{"amount": "10.00", "type": "CASH", "on": "2024-01-15", "lines": [{"amount": "1.5", "method": "mobile-wallet"}]}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
	})
}
