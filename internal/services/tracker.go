package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"unidiary/internal/aggregate"
	"unidiary/internal/collection"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
)

// Tracker bundles the synchronized collections of one principal and derives
// the dashboard from them on demand.
type Tracker struct {
	Expenses *collection.Synchronizer[core.Expense]
	Budgets  *collection.Synchronizer[core.Budget]
	Profile  *collection.Profile

	summary aggregate.SummaryOptions
	logger  *log.Logger
}

type TrackerConfig struct {
	Scope       collection.Scope
	TrendMonths int
	Logger      *log.Logger
	Clock       func() time.Time
}

func NewTracker(gw gateway.Gateway, cfg TrackerConfig) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	opts := []collection.Option{collection.WithLogger(logger)}
	if cfg.Clock != nil {
		opts = append(opts, collection.WithClock(cfg.Clock))
	}
	return &Tracker{
		Expenses: collection.New[core.Expense](gw, gateway.TableExpenses, cfg.Scope, opts...),
		Budgets:  collection.New[core.Budget](gw, gateway.TableBudgets, cfg.Scope, opts...),
		Profile:  collection.NewProfile(gw, cfg.Scope, opts...),
		summary:  aggregate.SummaryOptions{TrendMonths: cfg.TrendMonths},
		logger:   logger.WithComponent(log.ComponentCollection),
	}
}

// Load refreshes all three collections concurrently. Each collection keeps its
// own error; the first one is returned.
func (t *Tracker) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return t.Expenses.Load(ctx) })
	g.Go(func() error { return t.Budgets.Load(ctx) })
	g.Go(func() error { return t.Profile.Load(ctx) })
	if err := g.Wait(); err != nil {
		t.logger.WarnContext(ctx, "Tracker load incomplete", log.FieldError, err)
		return err
	}
	return nil
}

// Dashboard derives every view from the current local state.
func (t *Tracker) Dashboard(now time.Time) core.DashboardSummary {
	return aggregate.Summarize(t.Expenses.Items(), t.Budgets.Items(), now, t.summary)
}

func (t *Tracker) Upcoming(now time.Time) []core.UpcomingExpense {
	return aggregate.UpcomingExpenses(t.Expenses.Items(), now)
}

// MarkPaid flags an expense as paid.
func (t *Tracker) MarkPaid(ctx context.Context, id string) (core.Expense, error) {
	return t.Expenses.Update(ctx, id, gateway.Row{"isPaid": true})
}
