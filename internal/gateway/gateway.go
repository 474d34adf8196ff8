// Package gateway defines the narrow CRUD contract between the collection
// synchronizers and a remote table store, together with the table schemas
// every implementation enforces.
package gateway

import (
	"context"
)

type Table string

const (
	TableExpenses Table = "expenses"
	TableBudgets  Table = "budgets"
	TableProfiles Table = "profiles"
)

// Row is one record keyed by field name. Values are kept in canonical form:
// string, bool, json.Number (money), "2006-01-02" (dates), TimestampLayout
// strings (timestamps) or nil.
type Row map[string]any

// Clone returns a shallow copy; canonical values are immutable.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter is an equality predicate on one column.
type Filter struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

type Order struct {
	Column     string
	Descending bool
}

type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int // zero means no limit
}

// Gateway is the remote table store. Mutations return the authoritative rows
// as stored, server-populated fields included.
type Gateway interface {
	Select(ctx context.Context, table Table, q Query) ([]Row, error)
	Insert(ctx context.Context, table Table, rows []Row) ([]Row, error)
	Update(ctx context.Context, table Table, filters []Filter, patch Row) ([]Row, error)
	Delete(ctx context.Context, table Table, filters []Filter) error
}

// First returns the first row matching q, or a NotFound error.
func First(ctx context.Context, g Gateway, table Table, q Query) (Row, error) {
	q.Limit = 1
	rows, err := g.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NotFound("select", table, nil)
	}
	return rows[0], nil
}
