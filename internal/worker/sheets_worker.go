// Package worker runs the asynchronous consumers of expense changes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brokeometer/internal/amqp"
	"brokeometer/internal/budget"
	"brokeometer/internal/log"
	"brokeometer/internal/sheets"
	"brokeometer/internal/storage"
)

// Mirror is a spreadsheet that can be written and read back.
type Mirror interface {
	sheets.ExpenseMirror
	sheets.ExpenseLister
}

// SheetsWorker keeps the spreadsheet mirror in line with the expense log.
type SheetsWorker struct {
	mirror Mirror
	store  storage.RecordStore
	logger *log.Logger
}

func NewSheetsWorker(mirror Mirror, store storage.RecordStore, logger *log.Logger) *SheetsWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &SheetsWorker{
		mirror: mirror,
		store:  store,
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// HandleSync appends the expense carried by msg.
func (w *SheetsWorker) HandleSync(ctx context.Context, msg *amqp.Message) error {
	ref, err := w.mirror.Append(ctx, *msg.Expense)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced expense",
		log.NewFields().
			WithExpense(msg.Expense.ID, string(msg.Expense.Category), msg.Expense.Amount).
			WithOperation(log.OpSync).
			ToSlice()...)
	w.logger.DebugContext(ctx, "Sheets row", log.FieldExpenseID, msg.ExpenseID, "ref", ref)
	return nil
}

// HandleDelete removes the mirrored row. A row that is already gone counts
// as done.
func (w *SheetsWorker) HandleDelete(ctx context.Context, msg *amqp.Message) error {
	err := w.mirror.Delete(ctx, msg.ExpenseID)
	if errors.Is(err, sheets.ErrRowNotFound) {
		w.logger.WarnContext(ctx, "Mirrored row already absent", log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete from sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully deleted mirrored expense",
		log.FieldExpenseID, msg.ExpenseID, log.FieldOperation, log.OpDelete)
	return nil
}

// ReconcileResult counts the rows changed by Reconcile.
type ReconcileResult struct {
	Appended int
	Deleted  int
	Failed   int
}

// Reconcile appends expenses missing from the mirror and removes rows whose
// expense no longer exists. It recovers from messages lost while the worker
// was down.
func (w *SheetsWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	recs, err := budget.ReadRecords(ctx, w.store, time.Now(), w.logger)
	if err != nil {
		return res, fmt.Errorf("read expenses: %w", err)
	}
	rows, err := w.mirror.ListExpenses(ctx)
	if err != nil {
		return res, fmt.Errorf("list mirrored expenses: %w", err)
	}

	mirrored := make(map[string]bool, len(rows))
	for _, r := range rows {
		mirrored[r.ID] = true
	}
	live := make(map[string]bool, len(recs.Expenses))
	for _, e := range recs.Expenses {
		live[e.ID] = true
		if mirrored[e.ID] {
			continue
		}
		if _, err := w.mirror.Append(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to append during reconcile", log.FieldExpenseID, e.ID, log.FieldError, err)
			res.Failed++
			continue
		}
		res.Appended++
	}

	for _, r := range rows {
		if live[r.ID] {
			continue
		}
		if err := w.mirror.Delete(ctx, r.ID); err != nil && !errors.Is(err, sheets.ErrRowNotFound) {
			w.logger.ErrorContext(ctx, "Failed to delete during reconcile", log.FieldExpenseID, r.ID, log.FieldError, err)
			res.Failed++
			continue
		}
		res.Deleted++
	}

	w.logger.InfoContext(ctx, "Sheets reconcile completed",
		"expenses", len(recs.Expenses),
		"rows", len(rows),
		"appended", res.Appended,
		"deleted", res.Deleted,
		"errors", res.Failed)
	return res, nil
}

// RunReconcile reconciles immediately and then every interval until ctx
// is done.
func (w *SheetsWorker) RunReconcile(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Reconcile(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Sheets reconcile failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
