package aggregate

import (
	"time"

	"unidiary/internal/core"
)

const (
	warningPercent  = 80
	exceededPercent = 100
)

// BudgetSpent sums the expenses a budget covers. Monthly budgets only count
// the month of now; yearly budgets are not bounded by date.
func BudgetSpent(expenses []core.Expense, budget core.Budget, now time.Time) core.Money {
	relevant := expenses
	if budget.Category != core.CategoryTotal {
		relevant = make([]core.Expense, 0, len(expenses))
		for _, e := range expenses {
			if e.Category == budget.Category {
				relevant = append(relevant, e)
			}
		}
	}
	if budget.Period == core.PeriodMonthly {
		relevant = ExpensesInMonth(relevant, now)
	}
	return sum(relevant)
}

// BudgetProgressPercent is spent/amount*100, 0 for a zero-amount budget.
// It is not clamped: overspending yields values above 100.
func BudgetProgressPercent(expenses []core.Expense, budget core.Budget, now time.Time) float64 {
	return percentOf(BudgetSpent(expenses, budget, now), budget.Amount)
}

// ClassifyBudget maps a consumption percentage onto a budget status.
func ClassifyBudget(percent float64) core.BudgetStatus {
	switch {
	case percent >= exceededPercent:
		return core.BudgetExceeded
	case percent >= warningPercent:
		return core.BudgetWarning
	default:
		return core.BudgetOK
	}
}

// BudgetOverview computes progress for every budget, in input order.
func BudgetOverview(expenses []core.Expense, budgets []core.Budget, now time.Time) []core.BudgetProgress {
	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		spent := BudgetSpent(expenses, b, now)
		pct := percentOf(spent, b.Amount)
		out = append(out, core.BudgetProgress{
			Budget:     b,
			Spent:      spent,
			Percentage: pct,
			Status:     ClassifyBudget(pct),
		})
	}
	return out
}
