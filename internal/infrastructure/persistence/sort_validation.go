package persistence

import (
	"strings"

	"github.com/campus/backend/internal/domain/shared"
)

// sortColumns whitelists the sort keys a listing accepts. Keys come from
// query strings, so only mapped columns ever reach ORDER BY.
type sortColumns struct {
	columns  map[string]string
	fallback string
}

var (
	transactionSortColumns = sortColumns{
		columns: map[string]string{
			"created_at":    "created_at",
			"amount":        "amount",
			"balance_after": "balance_after",
			"type":          "type",
		},
		fallback: "created_at",
	}
	receiptSortColumns = sortColumns{
		columns: map[string]string{
			"transaction_date": "transaction_date",
			"total_amount":     "total_amount",
			"receipt_number":   "receipt_number",
		},
		fallback: "transaction_date",
	}
)

// column resolves key, falling back for unknown or empty keys.
func (s sortColumns) column(key string) string {
	if col, ok := s.columns[strings.ToLower(strings.TrimSpace(key))]; ok {
		return col
	}
	return s.fallback
}

// orderClause renders the ORDER BY expression for a page. id breaks ties
// so rows written in the same instant page deterministically.
func (s sortColumns) orderClause(f shared.Filter) string {
	dir := sortDirection(f.OrderDir)
	return s.column(f.OrderBy) + " " + dir + ", id " + dir
}

// sortDirection normalizes to ASC or DESC, defaulting to DESC so the newest
// ledger entries come first.
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}
