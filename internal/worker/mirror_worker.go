// Package worker consumes the change feed and keeps the spreadsheet mirror
// in step with the expenses table.
package worker

import (
	"context"
	"errors"
	"fmt"

	"unidiary/internal/amqp"
	"unidiary/internal/collection"
	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
	"unidiary/internal/sheets"
)

type MirrorWorker struct {
	expenses *collection.Synchronizer[core.Expense]
	mirror   sheets.ExpenseMirror
	logger   *log.Logger
}

func NewMirrorWorker(expenses *collection.Synchronizer[core.Expense], mirror sheets.ExpenseMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &MirrorWorker{
		expenses: expenses,
		mirror:   mirror,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange mirrors one change message. Changes of other tables are
// acknowledged without work. A returned error requeues the message.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Table != gateway.TableExpenses {
		return nil
	}

	switch msg.Operation {
	case gateway.OpInsert, gateway.OpUpdate:
		expenses, err := collection.DecodeRows[core.Expense](msg.Rows)
		if err != nil {
			// Undecodable rows will not get better on redelivery.
			w.logger.ErrorContext(ctx, "Dropping change with malformed rows",
				log.FieldOperation, msg.Operation, log.FieldError, err)
			return nil
		}
		var errs []error
		for _, e := range expenses {
			if err := w.upsert(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	case gateway.OpDelete:
		ids := msg.RecordIDs()
		if len(ids) == 0 {
			w.logger.WarnContext(ctx, "Delete without id filter cannot be mirrored, run a resync",
				"filters", msg.Filters)
			return nil
		}
		var errs []error
		for _, id := range ids {
			if err := w.mirror.RemoveExpense(ctx, id); err != nil {
				w.logger.ErrorContext(ctx, "Failed to remove mirrored expense",
					log.FieldRecordID, id, log.FieldError, err)
				errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
				continue
			}
			w.logger.InfoContext(ctx, "Mirrored expense removed", log.FieldRecordID, id)
		}
		return errors.Join(errs...)

	default:
		w.logger.WarnContext(ctx, "Unknown change operation", log.FieldOperation, msg.Operation)
		return nil
	}
}

// Resync reloads every expense and upserts it into the mirror. It recovers
// from missed messages or worker downtime.
func (w *MirrorWorker) Resync(ctx context.Context) (int, error) {
	if err := w.expenses.Load(ctx); err != nil {
		return 0, fmt.Errorf("load expenses for resync: %w", err)
	}

	var (
		synced int
		errs   []error
	)
	for _, e := range w.expenses.Items() {
		if err := w.upsert(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Mirror resync completed",
		log.FieldOperation, log.OpMirror,
		"total", len(w.expenses.Items()),
		"synced", synced,
		"errors", len(errs))
	return synced, errors.Join(errs...)
}

func (w *MirrorWorker) upsert(ctx context.Context, e core.Expense) error {
	ref, err := w.mirror.UpsertExpense(ctx, e)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror expense",
			log.FieldRecordID, e.ID, log.FieldError, err)
		return fmt.Errorf("mirror %s: %w", e.ID, err)
	}
	w.logger.InfoContext(ctx, "Expense mirrored",
		log.FieldRecordID, e.ID,
		"sheets_ref", ref,
		"amount_cents", e.Amount.Cents)
	return nil
}
