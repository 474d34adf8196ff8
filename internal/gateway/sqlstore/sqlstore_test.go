package sqlstore

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"unidiary/internal/gateway"
)

var stamp = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func schemaOf(t *testing.T, table gateway.Table) gateway.Schema {
	t.Helper()
	s, err := gateway.SchemaFor(table)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func filters(t *testing.T, s gateway.Schema, fs ...gateway.Filter) []gateway.Filter {
	t.Helper()
	out, err := s.PrepareFilters(fs)
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	return out
}

func TestSelectQuery(t *testing.T) {
	s := schemaOf(t, gateway.TableProfiles)
	fs := filters(t, s, gateway.Eq(gateway.ColumnUserID, "alice"), gateway.Eq("company", "Acme"))
	order := &gateway.Order{Column: gateway.ColumnCreatedAt, Descending: true}

	tests := []struct {
		dialect Dialect
		want    string
	}{
		{Postgres, "SELECT user_id, bio, location, company, phone, created_at, updated_at FROM profiles WHERE user_id = $1 AND company = $2 ORDER BY created_at DESC LIMIT 5"},
		{SQLite, "SELECT user_id, bio, location, company, phone, created_at, updated_at FROM profiles WHERE user_id = ? AND company = ? ORDER BY created_at DESC LIMIT 5"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name, func(t *testing.T) {
			got, args, err := tt.dialect.selectQuery(s, fs, order, 5)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected query\n got: %s\nwant: %s", got, tt.want)
			}
			if !reflect.DeepEqual(args, []any{"alice", "Acme"}) {
				t.Fatalf("unexpected args %v", args)
			}
		})
	}

	t.Run("unknown order column", func(t *testing.T) {
		if _, _, err := Postgres.selectQuery(s, nil, &gateway.Order{Column: "nope"}, 0); err == nil {
			t.Fatalf("expected error for unknown order column")
		}
	})
}

func TestWhereNullFilter(t *testing.T) {
	s := schemaOf(t, gateway.TableExpenses)
	fs := filters(t, s, gateway.Eq("nextDueDate", nil), gateway.Eq("isPaid", true))
	got, args, err := Postgres.deleteQuery(s, fs)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if want := "DELETE FROM expenses WHERE next_due_date IS NULL AND is_paid = $1"; got != want {
		t.Fatalf("unexpected query %s", got)
	}
	if !reflect.DeepEqual(args, []any{true}) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestUpdateQuery(t *testing.T) {
	s := schemaOf(t, gateway.TableProfiles)
	patch, err := s.PreparePatch(gateway.Row{"company": "Acme"}, stamp)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	fs := filters(t, s, gateway.Eq(gateway.ColumnUserID, "alice"))
	returning := " RETURNING user_id, bio, location, company, phone, created_at, updated_at"

	t.Run("postgres binds timestamps as time values", func(t *testing.T) {
		got, args, err := Postgres.updateQuery(s, fs, patch)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if want := "UPDATE profiles SET company = $1, updated_at = $2 WHERE user_id = $3" + returning; got != want {
			t.Fatalf("unexpected query\n got: %s\nwant: %s", got, want)
		}
		if len(args) != 3 || args[0] != "Acme" || args[2] != "alice" {
			t.Fatalf("unexpected args %v", args)
		}
		ts, ok := args[1].(time.Time)
		if !ok || !ts.Equal(stamp) {
			t.Fatalf("expected time.Time %v, got %T %v", stamp, args[1], args[1])
		}
	})

	t.Run("sqlite binds timestamps as text", func(t *testing.T) {
		got, args, err := SQLite.updateQuery(s, fs, patch)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if want := "UPDATE profiles SET company = ?, updated_at = ? WHERE user_id = ?" + returning; got != want {
			t.Fatalf("unexpected query\n got: %s\nwant: %s", got, want)
		}
		if !reflect.DeepEqual(args, []any{"Acme", "2025-03-15T10:00:00.000000Z", "alice"}) {
			t.Fatalf("unexpected args %v", args)
		}
	})
}

func TestInsertQuery(t *testing.T) {
	s := schemaOf(t, gateway.TableExpenses)
	row, err := s.PrepareInsert(gateway.Row{
		"amount":   "19.99",
		"category": "software",
		"date":     "2025-03-01",
	}, stamp)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	got, args, err := Postgres.insertQuery(s, row)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	want := "INSERT INTO expenses (id, owner_id, amount_cents, category, description, expense_date, is_recurring, recurrence_interval, next_due_date, is_paid, created_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) " +
		"RETURNING id, owner_id, amount_cents, category, description, expense_date, is_recurring, recurrence_interval, next_due_date, is_paid, created_at"
	if got != want {
		t.Fatalf("unexpected query\n got: %s\nwant: %s", got, want)
	}
	if len(args) != 11 {
		t.Fatalf("expected 11 args, got %d", len(args))
	}
	if args[0] == "" || args[1] != nil || args[8] != nil {
		t.Fatalf("unexpected id/owner/nextDueDate args %v", args)
	}
	if args[2] != int64(1999) {
		t.Fatalf("expected amount in cents, got %T %v", args[2], args[2])
	}
	if args[5] != "2025-03-01" || args[7] != "none" || args[6] != false {
		t.Fatalf("unexpected args %v", args)
	}
	if ts, ok := args[10].(time.Time); !ok || !ts.Equal(stamp) {
		t.Fatalf("expected createdAt as time.Time, got %T %v", args[10], args[10])
	}
}

func TestFromDBValue(t *testing.T) {
	s := schemaOf(t, gateway.TableExpenses)
	col := func(key string) gateway.Column {
		c, ok := s.Column(key)
		if !ok {
			t.Fatalf("no column %s", key)
		}
		return c
	}

	tests := []struct {
		name string
		key  string
		in   any
		want any
	}{
		{"postgres date", "date", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "2025-03-01"},
		{"sqlite date", "date", "2025-03-01", "2025-03-01"},
		{"postgres timestamp", gateway.ColumnCreatedAt, stamp, "2025-03-15T10:00:00.000000Z"},
		{"sqlite timestamp", gateway.ColumnCreatedAt, "2025-03-15T10:00:00.000000Z", "2025-03-15T10:00:00.000000Z"},
		{"postgres bool", "isPaid", true, true},
		{"sqlite bool", "isPaid", int64(1), true},
		{"money", "amount", int64(1999), json.Number("19.99")},
		{"bytes as text", "category", []byte("travel"), "travel"},
		{"null", "nextDueDate", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromDBValue(col(tt.key), tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}

	if _, err := fromDBValue(col("isPaid"), "yes"); err == nil {
		t.Fatalf("expected error for unexpected driver type")
	}
}
