// Package aggregate derives the read-only views (category breakdowns, monthly
// trends, due-date alerts, budget consumption) from in-memory expense and
// budget collections.
//
// Every function is pure: inputs are never mutated and anything that depends
// on the current date takes it as an explicit argument.
package aggregate

import (
	"sort"
	"time"

	"unidiary/internal/core"
)

// CategoryStats groups expenses by category. Entries are ordered by descending
// total; equal totals keep the order in which their category first appeared.
func CategoryStats(expenses []core.Expense) []core.CategoryStat {
	var (
		order  []core.Category
		totals = make(map[core.Category]core.Money)
		counts = make(map[core.Category]int)
		grand  core.Money
	)
	for _, e := range expenses {
		if _, seen := counts[e.Category]; !seen {
			order = append(order, e.Category)
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
		counts[e.Category]++
		grand = grand.Add(e.Amount)
	}

	stats := make([]core.CategoryStat, 0, len(order))
	for _, c := range order {
		stats = append(stats, core.CategoryStat{
			Category:   c,
			Total:      totals[c],
			Count:      counts[c],
			Percentage: percentOf(totals[c], grand),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Total.Cents > stats[j].Total.Cents
	})
	return stats
}

// ExpensesInMonth keeps the expenses dated within the calendar month of ref,
// first and last day included.
func ExpensesInMonth(expenses []core.Expense, ref time.Time) []core.Expense {
	start := monthStart(ref)
	end := start.AddMonths(1).AddDays(-1)
	out := make([]core.Expense, 0)
	for _, e := range expenses {
		if inRange(e.Date, start, end) {
			out = append(out, e)
		}
	}
	return out
}

// MonthlyTrends returns exactly monthsBack points, oldest first, the last one
// being the month of now. Each point carries the amount of the first monthly
// budget found, whatever its category.
func MonthlyTrends(expenses []core.Expense, budgets []core.Budget, monthsBack int, now time.Time) []core.MonthlyTrend {
	if monthsBack <= 0 {
		return []core.MonthlyTrend{}
	}
	budget := firstMonthlyBudget(budgets, "")

	current := monthStart(now)
	trends := make([]core.MonthlyTrend, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		month := current.AddMonths(-i)
		trends = append(trends, core.MonthlyTrend{
			Month:  month.Format("Jan"),
			Year:   month.Year(),
			Amount: sum(ExpensesInMonth(expenses, month.Time)),
			Budget: budget,
		})
	}
	return trends
}

// RecentExpenses returns at most n expenses, newest date first.
func RecentExpenses(expenses []core.Expense, n int) []core.Expense {
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if n < 0 {
		n = 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// monthStart anchors at day 1 so stepping back from the 31st never skips a month.
func monthStart(t time.Time) core.Date {
	y, m, _ := t.Date()
	return core.NewDate(y, int(m), 1)
}

func inRange(d core.Date, start, end core.Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func sum(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func percentOf(part, whole core.Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return float64(part.Cents) / float64(whole.Cents) * 100
}

// firstMonthlyBudget returns the amount of the first monthly budget, optionally
// restricted to a category.
func firstMonthlyBudget(budgets []core.Budget, category core.Category) core.Money {
	for _, b := range budgets {
		if b.Period != core.PeriodMonthly {
			continue
		}
		if category != "" && b.Category != category {
			continue
		}
		return b.Amount
	}
	return core.Money{}
}
