package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

type recordingPublisher struct {
	synced  []core.Expense
	deleted []string
	err     error
}

func (p *recordingPublisher) PublishExpenseSync(_ context.Context, e core.Expense) error {
	p.synced = append(p.synced, e)
	return p.err
}

func (p *recordingPublisher) PublishExpenseDelete(_ context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	return p.err
}

type recordingRequester struct {
	calls int
	err   error
}

func (r *recordingRequester) RequestRefresh(context.Context, string) error {
	r.calls++
	return r.err
}

func newTracker(t *testing.T, pub Publisher, req *recordingRequester) *Tracker {
	t.Helper()
	m := budget.NewManager(storage.NewMemoryStore(),
		budget.WithClock(func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local) }),
		budget.WithLogger(log.Discard()))
	require.NoError(t, m.Load(context.Background()))
	if req == nil {
		return NewTracker(m, pub, nil, log.Discard())
	}
	return NewTracker(m, pub, req, log.Discard())
}

func TestTrackerFollowUps(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	req := &recordingRequester{}
	tr := newTracker(t, pub, req)

	e, err := tr.AddExpense(ctx, budget.ExpenseInput{Category: core.Food, Amount: 60})
	require.NoError(t, err)
	require.Len(t, pub.synced, 1)
	assert.Equal(t, e.ID, pub.synced[0].ID)
	assert.Equal(t, 1, req.calls)

	_, err = tr.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, pub.deleted)
	assert.Equal(t, 2, req.calls)

	_, err = tr.DeleteExpense(ctx, "missing")
	assert.ErrorIs(t, err, budget.ErrExpenseNotFound)
	assert.Len(t, pub.deleted, 1, "nothing published for failed deletes")
}

func TestTrackerPublishFailureDoesNotFailChange(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	req := &recordingRequester{err: errors.New("broker down")}
	tr := newTracker(t, pub, req)

	_, err := tr.AddExpense(ctx, budget.ExpenseInput{Category: core.Misc, Amount: 5})
	require.NoError(t, err)
	assert.Len(t, tr.State(ctx).Expenses, 1)

	assert.Error(t, tr.RefreshInsights(ctx), "explicit refresh reports the failure")
}

func TestTrackerWithoutFollowers(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, nil, nil)

	_, err := tr.AddExpense(ctx, budget.ExpenseInput{Category: core.Study, Amount: 300})
	require.NoError(t, err)
	assert.ErrorIs(t, tr.RefreshInsights(ctx), ErrInsightsDisabled)
}
