package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"unidiary/internal/collection"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/gateway/memory"
	"unidiary/internal/log"
)

var now = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func newTracker(gw gateway.Gateway, scope collection.Scope) *Tracker {
	return NewTracker(gw, TrackerConfig{Scope: scope, Logger: log.Nop()})
}

func addRecurring(t *testing.T, tr *Tracker, due core.Date, paid bool, interval core.RecurrenceInterval) core.Expense {
	t.Helper()
	e, err := tr.Expenses.Add(context.Background(), core.Expense{
		Amount:             core.Money{Cents: 4900},
		Category:           core.CategorySoftware,
		Description:        "hosting",
		Date:               core.NewDate(2025, 1, 31),
		IsRecurring:        true,
		RecurrenceInterval: interval,
		NextDueDate:        &due,
		IsPaid:             paid,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return e
}

func TestTrackerLoadAndDashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := newTracker(store, collection.OwnedBy("alice"))

	if _, err := writer.Budgets.Add(ctx, core.Budget{
		Category: core.CategoryTotal, Amount: core.Money{Cents: 20000}, Period: core.PeriodMonthly, StartDate: core.NewDate(2025, 1, 1),
	}); err != nil {
		t.Fatalf("add budget: %v", err)
	}
	for _, cents := range []int64{10000, 5000} {
		if _, err := writer.Expenses.Add(ctx, core.Expense{
			Amount: core.Money{Cents: cents}, Category: core.CategoryOffice, Date: core.NewDate(2025, 3, 2),
			RecurrenceInterval: core.RecurrenceNone,
		}); err != nil {
			t.Fatalf("add expense: %v", err)
		}
	}
	if _, err := writer.Profile.Save(ctx, gateway.Row{"company": "Acme"}); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	reader := newTracker(store, collection.OwnedBy("alice"))
	if err := reader.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	d := reader.Dashboard(now)
	if d.MonthlyExpenses.Cents != 15000 || d.RemainingBudget.Cents != 5000 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.Budgets) != 1 || d.Budgets[0].Percentage != 75 {
		t.Fatalf("expected 75%% budget progress, got %+v", d.Budgets)
	}
	if reader.Profile.Current().Company != "Acme" {
		t.Fatalf("profile not loaded")
	}

	stranger := newTracker(store, collection.OwnedBy("mallory"))
	if err := stranger.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stranger.Expenses.Items()) != 0 || stranger.Profile.Current().Company != "" {
		t.Fatalf("scoped tracker leaked other owners' data")
	}
}

type failingSelect struct{ gateway.Gateway }

func (failingSelect) Select(context.Context, gateway.Table, gateway.Query) ([]gateway.Row, error) {
	return nil, gateway.Transport("select", gateway.TableExpenses, errors.New("offline"))
}

func TestTrackerLoadReportsErrors(t *testing.T) {
	tr := newTracker(failingSelect{memory.New()}, collection.OwnedBy("alice"))
	if err := tr.Load(context.Background()); !errors.Is(err, gateway.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if tr.Expenses.Err() == nil || tr.Budgets.Err() == nil {
		t.Fatalf("each collection should record its own failure")
	}
}

func TestMarkPaid(t *testing.T) {
	tr := newTracker(memory.New(), collection.Unscoped())
	e := addRecurring(t, tr, core.NewDate(2025, 3, 16), false, core.RecurrenceMonthly)
	if got := tr.Upcoming(now); len(got) != 1 {
		t.Fatalf("expected one upcoming expense, got %d", len(got))
	}

	paid, err := tr.MarkPaid(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.IsPaid {
		t.Fatalf("expected paid expense")
	}
	if got := tr.Upcoming(now); len(got) != 0 {
		t.Fatalf("paid expenses must leave the upcoming list, got %d", len(got))
	}
}

func TestProcessDue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tr := newTracker(store, collection.Unscoped())

	due := addRecurring(t, tr, core.NewDate(2025, 2, 28), true, core.RecurrenceMonthly)
	dueToday := addRecurring(t, tr, core.NewDate(2025, 3, 15), true, core.RecurrenceWeekly)
	unpaid := addRecurring(t, tr, core.NewDate(2025, 3, 1), false, core.RecurrenceMonthly)
	future := addRecurring(t, tr, core.NewDate(2025, 4, 1), true, core.RecurrenceMonthly)

	p := NewRecurringProcessor(tr.Expenses, time.Hour, log.Nop())
	n, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rolled over, got %d", n)
	}

	check := func(id string, wantDue core.Date, wantPaid bool) {
		t.Helper()
		e, ok := tr.Expenses.Get(id)
		if !ok {
			t.Fatalf("expense %s missing", id)
		}
		if e.NextDueDate == nil || !e.NextDueDate.Equal(wantDue.Time) || e.IsPaid != wantPaid {
			t.Fatalf("expense %s: expected due %s paid=%v, got %v paid=%v", id, wantDue, wantPaid, e.NextDueDate, e.IsPaid)
		}
	}
	check(due.ID, core.NewDate(2025, 3, 31), false)
	check(dueToday.ID, core.NewDate(2025, 3, 22), false)
	check(unpaid.ID, core.NewDate(2025, 3, 1), false)
	check(future.ID, core.NewDate(2025, 4, 1), true)

	n, err = p.ProcessDue(ctx, now)
	if err != nil || n != 0 {
		t.Fatalf("second run must be a no-op, got %d (err=%v)", n, err)
	}
}

func TestRecurringProcessorLifecycle(t *testing.T) {
	tr := newTracker(memory.New(), collection.Unscoped())
	p := NewRecurringProcessor(tr.Expenses, time.Hour, log.Nop())
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.IsRunning() {
		t.Fatalf("expected running processor")
	}
	if err := p.Start(ctx); err == nil {
		t.Fatalf("second start must fail")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatalf("expected stopped processor")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stopping twice should be a no-op: %v", err)
	}
}

type blockingSelect struct {
	gateway.Gateway
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSelect) Select(ctx context.Context, table gateway.Table, q gateway.Query) ([]gateway.Row, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.Gateway.Select(ctx, table, q)
}

func TestRecurringProcessorStopTimeout(t *testing.T) {
	gw := &blockingSelect{Gateway: memory.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	tr := newTracker(gw, collection.Unscoped())
	p := NewRecurringProcessor(tr.Expenses, time.Hour, log.Nop())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-gw.entered

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := p.Stop(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("stop %d: expected timeout, got %v", i, err)
		}
		if !p.IsRunning() {
			t.Fatalf("stop %d: processor still busy, must report running", i)
		}
	}

	close(gw.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("final stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatalf("expected stopped processor")
	}
}

func TestRecurringProcessorRestartsAfterCancel(t *testing.T) {
	tr := newTracker(memory.New(), collection.Unscoped())
	p := NewRecurringProcessor(tr.Expenses, time.Hour, log.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for p.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatalf("processor kept running after its context was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
