package google

import (
	"fmt"
	"strings"

	"unidiary/internal/core"
)

// header is the first row of the mirror sheet; columns follow it.
var header = []any{
	"ID", "Date", "Category", "Description", "Amount",
	"Recurring", "Interval", "Next due", "Paid", "Owner",
}

// lastColumn is the letter of the last mirrored column.
const lastColumn = "J"

func expenseRow(e core.Expense) []any {
	next := ""
	if e.NextDueDate != nil && !e.NextDueDate.IsEmpty() {
		next = e.NextDueDate.String()
	}
	return []any{
		e.ID,
		e.Date.String(),
		string(e.Category),
		e.Description,
		e.Amount.Units(),
		e.IsRecurring,
		string(e.RecurrenceInterval),
		next,
		e.IsPaid,
		e.OwnerID,
	}
}

// findRow returns the 1-based sheet row whose first cell is id, or 0.
// values is column A read from row 1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

func hasHeader(values [][]any) bool {
	return len(values) > 0 && len(values[0]) > 0 &&
		strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][0])), fmt.Sprint(header[0]))
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}

// quoteSheet quotes sheet names that A1 notation would otherwise misread.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
