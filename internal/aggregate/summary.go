package aggregate

import (
	"time"

	"unidiary/internal/core"
)

const (
	DefaultTrendMonths = 6
	DefaultRecentLimit = 10
)

// SummaryOptions tunes the series lengths of Summarize. Zero values fall back
// to the defaults.
type SummaryOptions struct {
	TrendMonths int
	RecentLimit int
}

// Summarize computes the whole dashboard from the current collections.
func Summarize(expenses []core.Expense, budgets []core.Budget, now time.Time, opts SummaryOptions) core.DashboardSummary {
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = DefaultTrendMonths
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	thisMonth := ExpensesInMonth(expenses, now)
	monthly := sum(thisMonth)
	upcoming := UpcomingExpenses(expenses, now)

	var remaining core.Money
	if limit := firstMonthlyBudget(budgets, core.CategoryTotal); limit.Cents > 0 {
		remaining = limit.Sub(monthly)
	}

	return core.DashboardSummary{
		TotalExpenses:   sum(expenses),
		MonthlyExpenses: monthly,
		RemainingBudget: remaining,
		UpcomingCount:   len(upcoming),
		CategoryStats:   CategoryStats(thisMonth),
		Trends:          MonthlyTrends(expenses, budgets, opts.TrendMonths, now),
		Upcoming:        upcoming,
		Budgets:         BudgetOverview(expenses, budgets, now),
		Recent:          RecentExpenses(expenses, opts.RecentLimit),
	}
}
