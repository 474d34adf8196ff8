package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"unidiary/internal/gateway"
)

func ticking(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func newStore() *Store {
	return New(WithClock(ticking(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))))
}

func insertExpense(t *testing.T, s *Store, owner string, amount float64) gateway.Row {
	t.Helper()
	rows, err := s.Insert(context.Background(), gateway.TableExpenses, []gateway.Row{{
		"ownerId":  owner,
		"amount":   amount,
		"category": "office",
		"date":     "2025-03-01",
	}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return rows[0]
}

func TestInsertAndSelect(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	first := insertExpense(t, s, "alice", 10)
	second := insertExpense(t, s, "alice", 20)
	insertExpense(t, s, "bob", 30)

	rows, err := s.Select(ctx, gateway.TableExpenses, gateway.Query{
		Filters: []gateway.Filter{gateway.Eq(gateway.ColumnOwnerID, "alice")},
		Order:   &gateway.Order{Column: gateway.ColumnCreatedAt, Descending: true},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0][gateway.ColumnID] != second[gateway.ColumnID] || rows[1][gateway.ColumnID] != first[gateway.ColumnID] {
		t.Fatalf("expected newest first, got %v", rows)
	}

	rows[0]["amount"] = "mutated"
	again, _ := s.Select(ctx, gateway.TableExpenses, gateway.Query{Filters: []gateway.Filter{gateway.Eq("id", second["id"])}})
	if again[0]["amount"] == "mutated" {
		t.Fatalf("select must return copies")
	}

	limited, _ := s.Select(ctx, gateway.TableExpenses, gateway.Query{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d rows", len(limited))
	}
}

func TestSelectOrderByMoney(t *testing.T) {
	s := newStore()
	insertExpense(t, s, "", 9)
	insertExpense(t, s, "", 100)
	insertExpense(t, s, "", 25.5)

	rows, err := s.Select(context.Background(), gateway.TableExpenses, gateway.Query{Order: &gateway.Order{Column: "amount"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r["amount"].(interface{ String() string }).String())
	}
	if got[0] != "9" || got[1] != "25.5" || got[2] != "100" {
		t.Fatalf("unexpected numeric order %v", got)
	}
}

func TestInsertValidation(t *testing.T) {
	s := newStore()
	_, err := s.Insert(context.Background(), gateway.TableExpenses, []gateway.Row{
		{"amount": 1, "category": "office", "date": "2025-03-01"},
		{"amount": -1, "category": "office", "date": "2025-03-01"},
	})
	if !errors.Is(err, gateway.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	rows, _ := s.Select(context.Background(), gateway.TableExpenses, gateway.Query{})
	if len(rows) != 0 {
		t.Fatalf("batch must be all-or-nothing, found %d rows", len(rows))
	}
}

func TestUpdate(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	row := insertExpense(t, s, "alice", 10)
	id := row[gateway.ColumnID]

	updated, err := s.Update(ctx, gateway.TableExpenses, []gateway.Filter{gateway.Eq("id", id)}, gateway.Row{"isPaid": true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated) != 1 || updated[0]["isPaid"] != true || updated[0]["amount"] != row["amount"] {
		t.Fatalf("unexpected update result %v", updated)
	}

	t.Run("no match returns no rows", func(t *testing.T) {
		rows, err := s.Update(ctx, gateway.TableExpenses, []gateway.Filter{gateway.Eq("id", "missing")}, gateway.Row{"isPaid": true})
		if err != nil || len(rows) != 0 {
			t.Fatalf("expected empty result, got %v (err=%v)", rows, err)
		}
	})

	t.Run("merged row is validated", func(t *testing.T) {
		_, err := s.Update(ctx, gateway.TableExpenses, []gateway.Filter{gateway.Eq("id", id)}, gateway.Row{"isRecurring": true})
		if !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unfiltered update is refused", func(t *testing.T) {
		if _, err := s.Update(ctx, gateway.TableExpenses, nil, gateway.Row{"isPaid": false}); !errors.Is(err, gateway.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	keep := insertExpense(t, s, "alice", 10)
	drop := insertExpense(t, s, "alice", 20)

	if err := s.Delete(ctx, gateway.TableExpenses, []gateway.Filter{gateway.Eq("id", drop["id"])}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ := s.Select(ctx, gateway.TableExpenses, gateway.Query{})
	if len(rows) != 1 || rows[0]["id"] != keep["id"] {
		t.Fatalf("unexpected rows after delete %v", rows)
	}
}

func TestCancelledContext(t *testing.T) {
	s := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Select(ctx, gateway.TableExpenses, gateway.Query{}); !errors.Is(err, gateway.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	seed := `{
  "budgets": [{"category": "total", "amount": 200, "period": "monthly", "startDate": "2025-01-01"}],
  "profiles": [{"userId": "alice", "company": "Acme"}]
}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	profile, err := gateway.First(context.Background(), s, gateway.TableProfiles, gateway.Query{
		Filters: []gateway.Filter{gateway.Eq(gateway.ColumnUserID, "alice")},
	})
	if err != nil || profile["company"] != "Acme" {
		t.Fatalf("unexpected profile %v (err=%v)", profile, err)
	}
	if _, err := gateway.First(context.Background(), s, gateway.TableProfiles, gateway.Query{
		Filters: []gateway.Filter{gateway.Eq(gateway.ColumnUserID, "bob")},
	}); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	empty, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil || empty == nil {
		t.Fatalf("missing seed file should yield an empty store, err=%v", err)
	}
}
