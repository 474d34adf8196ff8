package gateway

import (
	"context"
	"time"

	"unidiary/internal/log"
)

type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Change describes a mutation the store has accepted.
type Change struct {
	Table     Table
	Operation Operation
	Rows      []Row    // authoritative rows for insert/update
	Filters   []Filter // selection for delete
	At        time.Time
}

type ChangePublisher interface {
	PublishChange(ctx context.Context, change Change) error
}

// Publishing decorates a Gateway and announces successful mutations.
// A failed publish is logged and never fails the mutation itself.
type Publishing struct {
	next      Gateway
	publisher ChangePublisher
	logger    *log.Logger
	now       func() time.Time
}

var _ Gateway = (*Publishing)(nil)

func NewPublishing(next Gateway, publisher ChangePublisher, logger *log.Logger) *Publishing {
	if logger == nil {
		logger = log.Default()
	}
	return &Publishing{
		next:      next,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentGateway),
		now:       time.Now,
	}
}

func (p *Publishing) Select(ctx context.Context, table Table, q Query) ([]Row, error) {
	return p.next.Select(ctx, table, q)
}

func (p *Publishing) Insert(ctx context.Context, table Table, rows []Row) ([]Row, error) {
	out, err := p.next.Insert(ctx, table, rows)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, Change{Table: table, Operation: OpInsert, Rows: out})
	return out, nil
}

func (p *Publishing) Update(ctx context.Context, table Table, filters []Filter, patch Row) ([]Row, error) {
	out, err := p.next.Update(ctx, table, filters, patch)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		p.publish(ctx, Change{Table: table, Operation: OpUpdate, Rows: out, Filters: filters})
	}
	return out, nil
}

func (p *Publishing) Delete(ctx context.Context, table Table, filters []Filter) error {
	if err := p.next.Delete(ctx, table, filters); err != nil {
		return err
	}
	p.publish(ctx, Change{Table: table, Operation: OpDelete, Filters: filters})
	return nil
}

func (p *Publishing) publish(ctx context.Context, change Change) {
	change.At = p.now().UTC()
	if err := p.publisher.PublishChange(ctx, change); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish change",
			log.FieldTable, change.Table,
			log.FieldOperation, change.Operation,
			log.FieldError, err)
	}
}
