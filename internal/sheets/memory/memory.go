// Package memory is an in-process ExpenseMirror for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"unidiary/internal/core"
	ports "unidiary/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Expense
}

var _ ports.ExpenseMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[string]core.Expense)}
}

// UpsertExpense stores the expense and returns a synthetic row reference.
func (m *Mirror) UpsertExpense(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", errors.New("expense without id cannot be mirrored")
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.rows[e.ID] = e
	return fmt.Sprintf("mem:%d", m.indexLocked(e.ID)+1), nil
}

func (m *Mirror) RemoveExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	i := m.indexLocked(id)
	m.order = append(m.order[:i], m.order[i+1:]...)
	return nil
}

// Expenses returns the mirrored rows in sheet order.
func (m *Mirror) Expenses() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}

func (m *Mirror) Get(id string) (core.Expense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	return e, ok
}

func (m *Mirror) indexLocked(id string) int {
	for i, v := range m.order {
		if v == id {
			return i
		}
	}
	return -1
}
