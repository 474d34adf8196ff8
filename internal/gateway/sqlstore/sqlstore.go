// Package sqlstore implements gateway.Gateway on top of database/sql. The
// SQLite and Postgres gateways share it and only differ in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"unidiary/internal/core"
	"unidiary/internal/gateway"
)

// Dialect captures the few differences between supported databases.
type Dialect struct {
	Name string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// TimeAsText stores timestamps as canonical strings instead of time.Time.
	TimeAsText bool
	// LockRows appends FOR UPDATE to the read that precedes an update.
	LockRows bool
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		TimeAsText:  true,
	}
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		LockRows:    true,
	}
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// SetClock overrides the time source of server-populated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) Select(ctx context.Context, table gateway.Table, q gateway.Query) ([]gateway.Row, error) {
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	filters, err := schema.PrepareFilters(q.Filters)
	if err != nil {
		return nil, gateway.Validation("select", table, err)
	}
	query, args, err := s.dialect.selectQuery(schema, filters, q.Order, q.Limit)
	if err != nil {
		return nil, gateway.Validation("select", table, err)
	}
	out, err := s.query(ctx, s.db, schema, query, args)
	if err != nil {
		return nil, gateway.Transport("select", table, err)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table gateway.Table, rows []gateway.Row) ([]gateway.Row, error) {
	schema, err := gateway.SchemaFor(table)
	if err != nil {
		return nil, err
	}
	now := s.now()
	statements := make([]statement, 0, len(rows))
	for _, r := range rows {
		p, err := schema.PrepareInsert(r, now)
		if err != nil {
			return nil, gateway.Validation("insert", table, err)
		}
		query, args, err := s.dialect.insertQuery(schema, p)
		if err != nil {
			return nil, gateway.Validation("insert", table, err)
		}
		statements = append(statements, statement{query, args})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, gateway.Transport("insert", table, err)
	}
	defer tx.Rollback()

	out := make([]gateway.Row, 0, len(statements))
	for _, st := range statements {
		inserted, err := s.query(ctx, tx, schema, st.query, st.args)
		if err != nil {
			return nil, gateway.Transport("insert", table, err)
		}
		out = append(out, inserted...)
	}
	if err := tx.Commit(); err != nil {
		return nil, gateway.Transport("insert", table, err)
	}
	return out, nil
}

// Update merges patch into every matching row and checks the whole-row rules
// before writing, all inside one transaction.
func (s *Store) Update(ctx context.Context, table gateway.Table, filters []gateway.Filter, patch gateway.Row) ([]gateway.Row, error) {
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
	query, args, err := s.dialect.updateQuery(schema, fs, p)
	if err != nil {
		return nil, gateway.Validation("update", table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, gateway.Transport("update", table, err)
	}
	defer tx.Rollback()

	if schema.Validate != nil {
		current, err := s.selectIn(ctx, tx, schema, fs)
		if err != nil {
			return nil, gateway.Transport("update", table, err)
		}
		if len(current) == 0 {
			return []gateway.Row{}, nil
		}
		for _, r := range current {
			for k, v := range p {
				r[k] = v
			}
			if err := schema.Validate(r); err != nil {
				return nil, gateway.Validation("update", table, err)
			}
		}
	}

	out, err := s.query(ctx, tx, schema, query, args)
	if err != nil {
		return nil, gateway.Transport("update", table, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, gateway.Transport("update", table, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, table gateway.Table, filters []gateway.Filter) error {
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
	query, args, err := s.dialect.deleteQuery(schema, fs)
	if err != nil {
		return gateway.Validation("delete", table, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return gateway.Transport("delete", table, err)
	}
	return nil
}

func (s *Store) selectIn(ctx context.Context, q queryer, schema gateway.Schema, filters []gateway.Filter) ([]gateway.Row, error) {
	query, args, err := s.dialect.selectQuery(schema, filters, nil, 0)
	if err != nil {
		return nil, err
	}
	if s.dialect.LockRows {
		query += " FOR UPDATE"
	}
	return s.query(ctx, q, schema, query, args)
}

func (s *Store) query(ctx context.Context, q queryer, schema gateway.Schema, query string, args []any) ([]gateway.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(schema, rows)
}

type statement struct {
	query string
	args  []any
}

func (d Dialect) selectQuery(schema gateway.Schema, filters []gateway.Filter, order *gateway.Order, limit int) (string, []any, error) {
	b := builder{dialect: d}
	b.sql.WriteString("SELECT " + columnList(schema) + " FROM " + string(schema.Table))
	if err := b.where(schema, filters); err != nil {
		return "", nil, err
	}
	if order != nil {
		c, ok := schema.Column(order.Column)
		if !ok {
			return "", nil, fmt.Errorf("unknown order column %q", order.Column)
		}
		b.sql.WriteString(" ORDER BY " + c.Name)
		if order.Descending {
			b.sql.WriteString(" DESC")
		}
	}
	if limit > 0 {
		b.sql.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	return b.sql.String(), b.args, nil
}

func (d Dialect) insertQuery(schema gateway.Schema, row gateway.Row) (string, []any, error) {
	b := builder{dialect: d}
	names := make([]string, 0, len(schema.Columns))
	marks := make([]string, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		v, err := toDBValue(c, row[c.Key], d.TimeAsText)
		if err != nil {
			return "", nil, err
		}
		names = append(names, c.Name)
		marks = append(marks, b.bind(v))
	}
	b.sql.WriteString("INSERT INTO " + string(schema.Table) + " (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING " + columnList(schema))
	return b.sql.String(), b.args, nil
}

func (d Dialect) updateQuery(schema gateway.Schema, filters []gateway.Filter, patch gateway.Row) (string, []any, error) {
	b := builder{dialect: d}
	sets := make([]string, 0, len(patch))
	// Walk schema order so statements are deterministic.
	for _, c := range schema.Columns {
		v, ok := patch[c.Key]
		if !ok {
			continue
		}
		dbv, err := toDBValue(c, v, d.TimeAsText)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, c.Name+" = "+b.bind(dbv))
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("empty patch")
	}
	b.sql.WriteString("UPDATE " + string(schema.Table) + " SET " + strings.Join(sets, ", "))
	if err := b.where(schema, filters); err != nil {
		return "", nil, err
	}
	b.sql.WriteString(" RETURNING " + columnList(schema))
	return b.sql.String(), b.args, nil
}

func (d Dialect) deleteQuery(schema gateway.Schema, filters []gateway.Filter) (string, []any, error) {
	b := builder{dialect: d}
	b.sql.WriteString("DELETE FROM " + string(schema.Table))
	if err := b.where(schema, filters); err != nil {
		return "", nil, err
	}
	return b.sql.String(), b.args, nil
}

type builder struct {
	dialect Dialect
	sql     strings.Builder
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *builder) where(schema gateway.Schema, filters []gateway.Filter) error {
	for i, f := range filters {
		c, _ := schema.Column(f.Column)
		if i == 0 {
			b.sql.WriteString(" WHERE ")
		} else {
			b.sql.WriteString(" AND ")
		}
		if f.Value == nil {
			b.sql.WriteString(c.Name + " IS NULL")
			continue
		}
		v, err := toDBValue(c, f.Value, b.dialect.TimeAsText)
		if err != nil {
			return err
		}
		b.sql.WriteString(c.Name + " = " + b.bind(v))
	}
	return nil
}

func columnList(schema gateway.Schema) string {
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// toDBValue converts a canonical row value to a driver argument.
func toDBValue(c gateway.Column, v any, timeAsText bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case gateway.TypeMoney:
		m, err := gateway.MoneyOf(v)
		if err != nil {
			return nil, err
		}
		return m.Cents, nil
	case gateway.TypeTimestamp:
		if timeAsText {
			return v, nil
		}
		return gateway.ParseTimestamp(v.(string))
	}
	return v, nil
}

func scanAll(schema gateway.Schema, rows *sql.Rows) ([]gateway.Row, error) {
	out := make([]gateway.Row, 0)
	for rows.Next() {
		vals := make([]any, len(schema.Columns))
		ptrs := make([]any, len(schema.Columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r := make(gateway.Row, len(schema.Columns))
		for i, c := range schema.Columns {
			v, err := fromDBValue(c, vals[i])
			if err != nil {
				return nil, err
			}
			r[c.Key] = v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// fromDBValue converts whatever the driver returned back to canonical form.
func fromDBValue(c gateway.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch c.Type {
	case gateway.TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case int64:
			return t != 0, nil
		}
	case gateway.TypeMoney:
		if cents, ok := v.(int64); ok {
			return json.Number(core.Money{Cents: cents}.Decimal().String()), nil
		}
	case gateway.TypeDate:
		switch t := v.(type) {
		case time.Time:
			return core.DateOf(t).String(), nil
		case string:
			return gateway.Canonical(c, t)
		}
	case gateway.TypeTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(gateway.TimestampLayout), nil
		case string:
			return gateway.Canonical(c, t)
		}
	case gateway.TypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("column %s: unexpected %T", c.Name, v)
}
