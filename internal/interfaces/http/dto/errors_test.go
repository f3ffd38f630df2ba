package dto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err      *shared.DomainError
		code     string
		expected int
	}{
		{shared.ErrNotFound, ErrCodeNotFound, http.StatusNotFound},
		{shared.ErrConcurrencyConflict, ErrCodeConcurrencyConflict, http.StatusConflict},
		{shared.ErrDuplicateSubmission, ErrCodeDuplicateSubmission, http.StatusConflict},
		{shared.ErrInsufficientBalance, ErrCodeInsufficientBalance, http.StatusUnprocessableEntity},
		{shared.ErrInvalidState, ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{shared.ErrInconsistentBatch, ErrCodeInconsistentBatch, http.StatusUnprocessableEntity},
		{shared.ErrMissingPrerequisite, ErrCodeMissingPrerequisite, http.StatusUnprocessableEntity},
		{shared.ErrValidationFailed, ErrCodeDomainValidation, http.StatusUnprocessableEntity},
		{shared.ErrUnauthorized, ErrCodeUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			code := NormalizeErrorCode(tt.err.Code)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.expected, GetHTTPStatus(code))
		})
	}
}

func TestGetHTTPStatus_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ELSE"))
	assert.Equal(t, "SOMETHING_ELSE", NormalizeErrorCode("SOMETHING_ELSE"))
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "amount", Message: "This field is required"},
	})

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.False(t, decoded.Success)
	assert.Equal(t, ErrCodeValidation, decoded.Error.Code)
	assert.Equal(t, "req-1", decoded.Error.RequestID)
	require.Len(t, decoded.Error.Details, 1)
	assert.Equal(t, "amount", decoded.Error.Details[0].Field)
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated([]int{1, 2, 3}, 23, 2, 3)
	resp := NewPageResponse(page, func(i int) string { return fmt.Sprintf("#%d", i) })

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"#1", "#2", "#3"}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(23), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 8, resp.Meta.TotalPages)
}

func TestListRequestFilter(t *testing.T) {
	f := ListRequest{}.Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)

	f = ListRequest{Page: 3, PageSize: 50, OrderDir: "asc"}.Filter()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
}
