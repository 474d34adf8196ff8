package aggregate

import (
	"sort"
	"time"

	"unidiary/internal/core"
)

// Days until due at or below which an unpaid item is urgent.
const urgentWithinDays = 3

// UpcomingExpenses lists unpaid recurring expenses that have a next due date,
// soonest (or most overdue) first.
func UpcomingExpenses(expenses []core.Expense, now time.Time) []core.UpcomingExpense {
	today := core.DateOf(now)
	out := make([]core.UpcomingExpense, 0)
	for _, e := range expenses {
		if !e.IsRecurring || e.NextDueDate == nil || e.NextDueDate.IsEmpty() || e.IsPaid {
			continue
		}
		days := e.NextDueDate.DaysSince(today)
		out = append(out, core.UpcomingExpense{
			Expense:      e,
			DaysUntilDue: days,
			Urgency:      ClassifyUrgency(days),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntilDue < out[j].DaysUntilDue
	})
	return out
}

// ClassifyUrgency maps a signed day distance onto an urgency level.
func ClassifyUrgency(daysUntilDue int) core.Urgency {
	switch {
	case daysUntilDue < 0:
		return core.UrgencyOverdue
	case daysUntilDue <= urgentWithinDays:
		return core.UrgencyUrgent
	default:
		return core.UrgencyUpcoming
	}
}
