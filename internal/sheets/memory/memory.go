// Package memory is an in-process expense mirror used by tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"brokeometer/internal/core"
	ports "brokeometer/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.Expense
}

var (
	_ ports.ExpenseMirror = (*Mirror)(nil)
	_ ports.ExpenseLister = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{}
}

// Append stores the expense once and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == e.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, e)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ports.ErrRowNotFound)
}

func (m *Mirror) ListExpenses(context.Context) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.rows...), nil
}
