package persistence

import (
	"testing"

	"github.com/campus/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC ", "ASC"},
		{"desc", "DESC"},
		{"ASC; DROP TABLE tenant_accounts;--", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sortDirection(tt.input))
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		cols     sortColumns
		filter   shared.Filter
		expected string
	}{
		{
			name:     "transactions default newest first",
			cols:     transactionSortColumns,
			filter:   shared.Filter{},
			expected: "created_at DESC, id DESC",
		},
		{
			name:     "transactions by amount ascending",
			cols:     transactionSortColumns,
			filter:   shared.Filter{OrderBy: "Amount", OrderDir: "asc"},
			expected: "amount ASC, id ASC",
		},
		{
			name:     "unknown key falls back",
			cols:     transactionSortColumns,
			filter:   shared.Filter{OrderBy: "note", OrderDir: "asc"},
			expected: "created_at ASC, id ASC",
		},
		{
			name:     "injection attempt falls back",
			cols:     receiptSortColumns,
			filter:   shared.Filter{OrderBy: "total_amount; DELETE FROM payment_transactions"},
			expected: "transaction_date DESC, id DESC",
		},
		{
			name:     "receipts by number",
			cols:     receiptSortColumns,
			filter:   shared.Filter{OrderBy: "receipt_number", OrderDir: "desc"},
			expected: "receipt_number DESC, id DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cols.orderClause(tt.filter))
		})
	}
}
