package aggregate

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"unidiary/internal/core"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders whole dollars with thousands grouping, e.g. "$1,235".
func FormatCurrency(m core.Money) string {
	units := m.Decimal().Round(0).IntPart()
	if units < 0 {
		return printer.Sprintf("-$%d", -units)
	}
	return printer.Sprintf("$%d", units)
}

// UrgencyLabel is the short due-date caption of an upcoming expense.
func UrgencyLabel(u core.UpcomingExpense) string {
	if u.DaysUntilDue < 0 {
		return fmt.Sprintf("%d days overdue", -u.DaysUntilDue)
	}
	return fmt.Sprintf("Due in %d days", u.DaysUntilDue)
}
