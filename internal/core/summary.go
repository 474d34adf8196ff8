package core

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyUpcoming Urgency = "upcoming"
)

const (
	BudgetOK       BudgetStatus = "ok"
	BudgetWarning  BudgetStatus = "warning"
	BudgetExceeded BudgetStatus = "exceeded"
)

type (
	Urgency      string
	BudgetStatus string
)

// CategoryStat is the spend of one category within a set of expenses.
type CategoryStat struct {
	Category   Category `json:"category"`
	Total      Money    `json:"total"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// MonthlyTrend is one point of the spend-versus-budget series.
type MonthlyTrend struct {
	Month  string `json:"month"` // three-letter label, e.g. "Jan"
	Year   int    `json:"year"`
	Amount Money  `json:"amount"`
	Budget Money  `json:"budget"`
}

type UpcomingExpense struct {
	Expense
	DaysUntilDue int     `json:"daysUntilDue"`
	Urgency      Urgency `json:"urgency"`
}

type BudgetProgress struct {
	Budget     Budget       `json:"budget"`
	Spent      Money        `json:"spent"`
	Percentage float64      `json:"percentage"`
	Status     BudgetStatus `json:"status"`
}

// DashboardSummary groups every derived view shown on the home screen.
type DashboardSummary struct {
	TotalExpenses   Money             `json:"totalExpenses"`
	MonthlyExpenses Money             `json:"monthlyExpenses"`
	RemainingBudget Money             `json:"remainingBudget"`
	UpcomingCount   int               `json:"upcomingCount"`
	CategoryStats   []CategoryStat    `json:"categoryStats"`
	Trends          []MonthlyTrend    `json:"trends"`
	Upcoming        []UpcomingExpense `json:"upcoming"`
	Budgets         []BudgetProgress  `json:"budgets"`
	Recent          []Expense         `json:"recent"`
}
