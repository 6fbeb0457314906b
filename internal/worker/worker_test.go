package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokeometer/internal/amqp"
	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	"brokeometer/internal/sheets/memory"
	"brokeometer/internal/storage"
)

func expense(id string, amount float64) core.Expense {
	return core.Expense{ID: id, Date: time.Now(), Category: core.Food, Amount: amount}
}

func TestDispatcherSheetsMessages(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	d := &Dispatcher{Sheets: NewSheetsWorker(mirror, storage.NewMemoryStore(), log.Discard()), Logger: log.Discard()}

	require.NoError(t, d.Handle(ctx, amqp.NewExpenseSyncMessage(expense("a", 10))))
	require.NoError(t, d.Handle(ctx, amqp.NewExpenseSyncMessage(expense("a", 10))), "redelivery is harmless")

	rows, _ := mirror.ListExpenses(ctx)
	assert.Len(t, rows, 1)

	require.NoError(t, d.Handle(ctx, amqp.NewExpenseDeleteMessage("a")))
	require.NoError(t, d.Handle(ctx, amqp.NewExpenseDeleteMessage("a")), "already deleted rows are acknowledged")
	rows, _ = mirror.ListExpenses(ctx)
	assert.Empty(t, rows)

	assert.NoError(t, d.Handle(ctx, amqp.NewInsightRefreshMessage("")), "no insight worker configured")
}

func TestDispatcherInsightMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := insight.NewService(store, insight.StaticGenerator("### THE READ\nok"), log.Discard())
	d := &Dispatcher{Insights: NewInsightWorker(svc, log.Discard())}

	require.NoError(t, d.Handle(ctx, amqp.NewInsightRefreshMessage("June 2024")))

	r, err := insight.LatestResult(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "June 2024", r.Period)

	assert.NoError(t, d.Handle(ctx, amqp.NewExpenseSyncMessage(expense("x", 1))), "no sheets worker configured")
}

type failingMirror struct {
	*memory.Mirror
}

func (failingMirror) Append(context.Context, core.Expense) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestSheetsWorkerAppendErrorRequeues(t *testing.T) {
	w := NewSheetsWorker(failingMirror{memory.New()}, storage.NewMemoryStore(), log.Discard())
	err := w.HandleSync(context.Background(), amqp.NewExpenseSyncMessage(expense("a", 1)))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestSheetsWorkerReconcile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	m := budget.NewManager(store, budget.WithLogger(log.Discard()))
	require.NoError(t, m.Load(ctx))

	kept, err := m.AddExpense(ctx, budget.ExpenseInput{Category: core.Food, Amount: 10})
	require.NoError(t, err)
	missing, err := m.AddExpense(ctx, budget.ExpenseInput{Category: core.Misc, Amount: 20})
	require.NoError(t, err)

	mirror := memory.New()
	_, _ = mirror.Append(ctx, kept)
	_, _ = mirror.Append(ctx, expense("stale", 5))

	w := NewSheetsWorker(mirror, store, log.Discard())
	res, err := w.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Appended: 1, Deleted: 1}, res)

	rows, _ := mirror.ListExpenses(ctx)
	ids := []string{}
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{kept.ID, missing.ID}, ids)

	res, err = w.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, res, "second pass has nothing to do")
}

func TestRunReconcileStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewSheetsWorker(memory.New(), storage.NewMemoryStore(), log.Discard())
	assert.ErrorIs(t, w.RunReconcile(ctx, time.Hour), context.Canceled)
}
