// Package services wires the budget manager to its asynchronous followers.
package services

import (
	"context"
	"errors"
	"fmt"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
)

// Publisher forwards expense changes to the mirror worker.
type Publisher interface {
	PublishExpenseSync(ctx context.Context, e core.Expense) error
	PublishExpenseDelete(ctx context.Context, id string) error
}

// Tracker is the budget manager plus the follow-up work that each change
// triggers. A change is committed once the manager returns; publishing is
// best effort and never fails the request.
type Tracker struct {
	*budget.Manager
	publisher Publisher
	insights  insight.Requester
	logger    *log.Logger
}

// NewTracker accepts nil publisher or insights to disable that follow-up.
func NewTracker(m *budget.Manager, publisher Publisher, insights insight.Requester, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Tracker{
		Manager:   m,
		publisher: publisher,
		insights:  insights,
		logger:    logger.WithComponent(log.ComponentBudget),
	}
}

// AddExpense applies the expense and, once saved, publishes it for mirroring
// and asks for fresh insights.
func (t *Tracker) AddExpense(ctx context.Context, in budget.ExpenseInput) (core.Expense, error) {
	e, err := t.Manager.AddExpense(ctx, in)
	if err != nil {
		// The log entry is already written when only the tally failed.
		if e.ID == "" {
			return core.Expense{}, err
		}
		t.followUp(ctx, func() error { return t.publishSync(ctx, e) })
		return e, err
	}

	t.followUp(ctx, func() error { return t.publishSync(ctx, e) })
	t.followUp(ctx, func() error { return t.requestInsights(ctx) })
	return e, nil
}

func (t *Tracker) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := t.Manager.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	t.followUp(ctx, func() error {
		if t.publisher == nil {
			return nil
		}
		return t.publisher.PublishExpenseDelete(ctx, id)
	})
	t.followUp(ctx, func() error { return t.requestInsights(ctx) })
	return e, nil
}

// RefreshInsights requests a new insight for the current month.
func (t *Tracker) RefreshInsights(ctx context.Context) error {
	if t.insights == nil {
		return ErrInsightsDisabled
	}
	if err := t.insights.RequestRefresh(ctx, ""); err != nil {
		return fmt.Errorf("request insight refresh: %w", err)
	}
	return nil
}

var ErrInsightsDisabled = errors.New("insight generation is not configured")

func (t *Tracker) publishSync(ctx context.Context, e core.Expense) error {
	if t.publisher == nil {
		return nil
	}
	return t.publisher.PublishExpenseSync(ctx, e)
}

func (t *Tracker) requestInsights(ctx context.Context) error {
	if t.insights == nil {
		return nil
	}
	return t.insights.RequestRefresh(ctx, "")
}

func (t *Tracker) followUp(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		t.logger.ErrorContext(ctx, "Follow-up after expense change failed", log.FieldError, err)
	}
}
