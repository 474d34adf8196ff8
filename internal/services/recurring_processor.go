package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"unidiary/internal/collection"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
)

// RecurringProcessor rolls paid recurring expenses over to their next
// occurrence once the paid due date has been reached.
type RecurringProcessor struct {
	expenses *collection.Synchronizer[core.Expense]
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringProcessor(expenses *collection.Synchronizer[core.Expense], interval time.Duration, logger *log.Logger) *RecurringProcessor {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RecurringProcessor{
		expenses: expenses,
		interval: interval,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue reloads the expenses and advances every paid recurring expense
// whose next due date is today or earlier by one interval, marking it unpaid.
// It returns how many expenses were rolled over.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if err := p.expenses.Load(ctx); err != nil {
		return 0, err
	}
	today := core.DateOf(now)

	var (
		processed int
		errs      []error
	)
	for _, e := range p.expenses.Items() {
		if !rollOverDue(e, today) {
			continue
		}
		stepper, err := GetStepper(e.RecurrenceInterval)
		if err != nil {
			errs = append(errs, fmt.Errorf("expense %s: %w", e.ID, err))
			continue
		}
		next := stepper.Next(*e.NextDueDate, e.Date)
		if _, err := p.expenses.Update(ctx, e.ID, gateway.Row{
			"nextDueDate": next,
			"isPaid":      false,
		}); err != nil {
			p.logger.ErrorContext(ctx, "Failed to roll over recurring expense",
				log.FieldRecordID, e.ID, log.FieldError, err)
			errs = append(errs, err)
			continue
		}
		processed++
		p.logger.InfoContext(ctx, "Recurring expense rolled over",
			log.FieldRecordID, e.ID,
			"previous_due", e.NextDueDate.String(),
			"next_due", next.String())
	}

	p.logger.InfoContext(ctx, "Recurring expenses processed",
		log.FieldOperation, log.OpRollOver,
		log.FieldCount, processed,
		"processing_date", today.String())
	return processed, errors.Join(errs...)
}

func rollOverDue(e core.Expense, today core.Date) bool {
	return e.IsRecurring && e.IsPaid && e.NextDueDate != nil && !e.NextDueDate.IsEmpty() &&
		!e.NextDueDate.After(today.Time)
}

// Start begins the processing loop. Returns an error if already running.
// The loop also ends when ctx is cancelled, after which Start may be called again.
func (p *RecurringProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recurring processor is already running")
	}
	p.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stopCh, p.doneCh = stop, done
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	p.logger.InfoContext(ctx, "Recurring processor started", "interval", p.interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
// Calling it again after a timeout keeps waiting on the same run.
func (p *RecurringProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		p.logger.InfoContext(ctx, "Recurring processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Recurring processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *RecurringProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RecurringProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.doneCh == done {
			p.running = false
			p.stopCh = nil
		}
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Process immediately on startup
	p.runOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RecurringProcessor) runOnce(ctx context.Context) {
	if _, err := p.ProcessDue(ctx, p.now()); err != nil {
		p.logger.ErrorContext(ctx, "Recurring run finished with errors", log.FieldError, err)
	}
}
