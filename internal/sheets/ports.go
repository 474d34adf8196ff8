// Package sheets holds the ports of the spreadsheet exporter.
package sheets

import (
	"context"

	"unidiary/internal/core"
)

// ExpenseMirror keeps an external copy of the expenses table, one row per
// expense keyed by id.
type ExpenseMirror interface {
	// UpsertExpense writes the expense, replacing any row with the same id.
	UpsertExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	// RemoveExpense drops the row of id. Unknown ids are not an error.
	RemoveExpense(ctx context.Context, id string) error
}
