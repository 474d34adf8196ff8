// Package memory is an in-process gateway.Gateway, used for local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"unidiary/internal/gateway"
)

type Store struct {
	mu     sync.RWMutex
	tables map[gateway.Table][]gateway.Row
	now    func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the time source of server-populated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[gateway.Table][]gateway.Row),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFile seeds the store from a JSON document mapping table names to
// arrays of rows. A missing file yields an empty store.
func NewFromFile(path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var seed map[gateway.Table][]gateway.Row
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for table, rows := range seed {
		if _, err := s.Insert(context.Background(), table, rows); err != nil {
			return nil, fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return s, nil
}

func (s *Store) Select(ctx context.Context, table gateway.Table, q gateway.Query) ([]gateway.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.Transport("select", table, err)
	}
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	filters, err := schema.PrepareFilters(q.Filters)
	if err != nil {
		return nil, gateway.Validation("select", table, err)
	}
	var orderCol gateway.Column
	if q.Order != nil {
		c, ok := schema.Column(q.Order.Column)
		if !ok {
			return nil, gateway.Validation("select", table, fmt.Errorf("unknown order column %q", q.Order.Column))
		}
		orderCol = c
	}

	s.mu.RLock()
	out := make([]gateway.Row, 0)
	for _, r := range s.tables[table] {
		if matches(r, filters) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	if q.Order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(orderCol, out[i][orderCol.Key], out[j][orderCol.Key])
			if q.Order.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table gateway.Table, rows []gateway.Row) ([]gateway.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.Transport("insert", table, err)
	}
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	now := s.now()
	prepared := make([]gateway.Row, 0, len(rows))
	for _, r := range rows {
		p, err := schema.PrepareInsert(r, now)
		if err != nil {
			return nil, gateway.Validation("insert", table, err)
		}
		prepared = append(prepared, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prepared {
		key := p[schema.Key]
		for _, existing := range s.tables[table] {
			if existing[schema.Key] == key {
				return nil, gateway.Validation("insert", table, fmt.Errorf("duplicate %s %v", schema.Key, key))
			}
		}
	}
	out := make([]gateway.Row, 0, len(prepared))
	for _, p := range prepared {
		s.tables[table] = append(s.tables[table], p)
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table gateway.Table, filters []gateway.Filter, patch gateway.Row) ([]gateway.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, gateway.Transport("update", table, err)
	}
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, gateway.Validation("update", table, fmt.Errorf("refusing unfiltered update"))
	}
	fs, err := schema.PrepareFilters(filters)
	if err != nil {
		return nil, gateway.Validation("update", table, err)
	}
	p, err := schema.PreparePatch(patch, s.now())
	if err != nil {
		return nil, gateway.Validation("update", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]

	// Validate every merged row before touching any of them.
	var idx []int
	merged := make([]gateway.Row, 0)
	for i, r := range rows {
		if !matches(r, fs) {
			continue
		}
		m := r.Clone()
		for k, v := range p {
			m[k] = v
		}
		if schema.Validate != nil {
			if err := schema.Validate(m); err != nil {
				return nil, gateway.Validation("update", table, err)
			}
		}
		idx = append(idx, i)
		merged = append(merged, m)
	}

	out := make([]gateway.Row, 0, len(merged))
	for n, i := range idx {
		rows[i] = merged[n]
		out = append(out, merged[n].Clone())
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, table gateway.Table, filters []gateway.Filter) error {
	if err := ctx.Err(); err != nil {
		return gateway.Transport("delete", table, err)
	}
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return gateway.Validation("delete", table, fmt.Errorf("refusing unfiltered delete"))
	}
	fs, err := schema.PrepareFilters(filters)
	if err != nil {
		return gateway.Validation("delete", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if !matches(r, fs) {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	return nil
}

func matches(r gateway.Row, filters []gateway.Filter) bool {
	for _, f := range filters {
		if r[f.Column] != f.Value {
			return false
		}
	}
	return true
}

// compare orders canonical values; nil sorts first.
func compare(c gateway.Column, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch c.Type {
	case gateway.TypeBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case gateway.TypeMoney:
		am, _ := gateway.MoneyOf(a)
		bm, _ := gateway.MoneyOf(b)
		switch {
		case am.Cents < bm.Cents:
			return -1
		case am.Cents > bm.Cents:
			return 1
		}
		return 0
	}
	// Text, dates and fixed-width timestamps order lexically.
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
