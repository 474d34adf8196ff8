// Package collection keeps local copies of remote tables in step with the
// gateway. Local state only ever changes after the gateway has confirmed a
// mutation; failures are recorded and leave the items untouched.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"unidiary/internal/gateway"
	"unidiary/internal/log"
)

// Record is anything a synchronizer can hold: a value with a stable identity.
type Record interface {
	RecordID() string
}

// Scope restricts queries and mutations to the rows of one owner. The zero
// value is unscoped.
type Scope struct {
	owner string
}

func Unscoped() Scope { return Scope{} }

func OwnedBy(ownerID string) Scope { return Scope{owner: ownerID} }

func (s Scope) Owner() (string, bool) { return s.owner, s.owner != "" }

// Synchronizer mirrors one remote table as an ordered slice of T.
type Synchronizer[T Record] struct {
	gw          gateway.Gateway
	table       gateway.Table
	scope       Scope
	keyColumn   string
	ownerColumn string
	now         func() time.Time
	logger      *log.Logger

	mu      sync.RWMutex
	items   []T
	loading int
	lastErr error
}

type Option func(*options)

type options struct {
	keyColumn   string
	ownerColumn string
	now         func() time.Time
	logger      *log.Logger
}

// WithKeyColumn sets the identity column (default "id").
func WithKeyColumn(column string) Option {
	return func(o *options) { o.keyColumn = column }
}

// WithOwnerColumn sets the column scoped rows are filtered on (default "ownerId").
func WithOwnerColumn(column string) Option {
	return func(o *options) { o.ownerColumn = column }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func New[T Record](gw gateway.Gateway, table gateway.Table, scope Scope, opts ...Option) *Synchronizer[T] {
	o := options{
		keyColumn:   gateway.ColumnID,
		ownerColumn: gateway.ColumnOwnerID,
		now:         time.Now,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Synchronizer[T]{
		gw:          gw,
		table:       table,
		scope:       scope,
		keyColumn:   o.keyColumn,
		ownerColumn: o.ownerColumn,
		now:         o.now,
		logger:      o.logger.WithComponent(log.ComponentCollection).With(log.FieldTable, table),
		items:       []T{},
	}
}

// Load replaces the local items with the table contents, newest first.
func (s *Synchronizer[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	rows, err := s.gw.Select(ctx, s.table, gateway.Query{
		Filters: s.scopeFilters(),
		Order:   &gateway.Order{Column: gateway.ColumnCreatedAt, Descending: true},
	})
	var items []T
	if err == nil {
		items, err = DecodeRows[T](rows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		return s.failLocked(ctx, log.OpLoad, fmt.Errorf("load %s: %w", s.table, err))
	}
	s.items = items
	s.lastErr = nil
	s.logger.DebugContext(ctx, "Collection loaded", log.FieldCount, len(items))
	return nil
}

// Add inserts item and, once the gateway confirms, prepends the stored rows.
// The identity is left for the gateway to assign; the creation time is stamped
// here when the item does not carry one.
func (s *Synchronizer[T]) Add(ctx context.Context, item T) (T, error) {
	var zero T
	row, err := encodeRow(item)
	if err != nil {
		s.recordErr(ctx, log.OpCreate, err)
		return zero, err
	}
	if s.keyColumn == gateway.ColumnID {
		delete(row, gateway.ColumnID)
	}
	if t, _ := row[gateway.ColumnCreatedAt].(string); t == "" || t == zeroTimestamp {
		row[gateway.ColumnCreatedAt] = s.now().UTC().Format(time.RFC3339Nano)
	}
	if owner, ok := s.scope.Owner(); ok {
		row[s.ownerColumn] = owner
	}

	rows, err := s.gw.Insert(ctx, s.table, []gateway.Row{row})
	if err == nil && len(rows) == 0 {
		err = gateway.Transport("insert", s.table, fmt.Errorf("no rows returned"))
	}
	var added []T
	if err == nil {
		added, err = DecodeRows[T](rows)
	}
	if err != nil {
		err = fmt.Errorf("add to %s: %w", s.table, err)
		s.recordErr(ctx, log.OpCreate, err)
		return zero, err
	}

	s.mu.Lock()
	s.items = append(added, s.items...)
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Record added", log.FieldRecordID, added[0].RecordID())
	return added[0], nil
}

// Update sends a partial update for id and swaps in the stored row. An id the
// gateway does not know is reported as NotFound.
func (s *Synchronizer[T]) Update(ctx context.Context, id string, patch gateway.Row) (T, error) {
	var zero T
	rows, err := s.gw.Update(ctx, s.table, s.keyFilters(id), patch)
	if err == nil && len(rows) == 0 {
		err = gateway.NotFound("update", s.table, fmt.Errorf("%s %q", s.keyColumn, id))
	}
	var updated []T
	if err == nil {
		updated, err = DecodeRows[T](rows)
	}
	if err != nil {
		err = fmt.Errorf("update %s: %w", s.table, err)
		s.recordErr(ctx, log.OpUpdate, err)
		return zero, err
	}

	fresh := updated[0]
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].RecordID() == id {
			s.items[i] = fresh
		}
	}
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Record updated", log.FieldRecordID, id)
	return fresh, nil
}

// Delete removes id remotely and then locally.
func (s *Synchronizer[T]) Delete(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, s.table, s.keyFilters(id)); err != nil {
		err = fmt.Errorf("delete from %s: %w", s.table, err)
		s.recordErr(ctx, log.OpDelete, err)
		return err
	}

	s.mu.Lock()
	kept := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if it.RecordID() != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Record deleted", log.FieldRecordID, id)
	return nil
}

// Items returns a snapshot of the local collection.
func (s *Synchronizer[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Synchronizer[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Loading reports whether a Load is in flight.
func (s *Synchronizer[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Err returns the most recent failure; a successful Load clears it.
func (s *Synchronizer[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Synchronizer[T]) Table() gateway.Table { return s.table }

func (s *Synchronizer[T]) Scope() Scope { return s.scope }

func (s *Synchronizer[T]) scopeFilters() []gateway.Filter {
	if owner, ok := s.scope.Owner(); ok {
		return []gateway.Filter{gateway.Eq(s.ownerColumn, owner)}
	}
	return nil
}

func (s *Synchronizer[T]) keyFilters(id string) []gateway.Filter {
	filters := []gateway.Filter{gateway.Eq(s.keyColumn, id)}
	if s.ownerColumn != s.keyColumn {
		filters = append(filters, s.scopeFilters()...)
	}
	return filters
}

func (s *Synchronizer[T]) recordErr(ctx context.Context, op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(ctx, op, err)
}

func (s *Synchronizer[T]) failLocked(ctx context.Context, op string, err error) error {
	s.lastErr = err
	s.logger.WarnContext(ctx, "Collection operation failed", log.FieldOperation, op, log.FieldError, err)
	return err
}

var zeroTimestamp = time.Time{}.Format(time.RFC3339Nano)

// encodeRow turns a record into a gateway row via its JSON form.
func encodeRow(v any) (gateway.Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var row gateway.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return row, nil
}

// DecodeRows converts gateway rows into records via their JSON form.
func DecodeRows[T any](rows []gateway.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		var item T
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
