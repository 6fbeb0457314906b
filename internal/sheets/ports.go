// Package sheets defines the outbound spreadsheet mirror of the expense log.
package sheets

import (
	"context"
	"errors"

	"brokeometer/internal/core"
)

// ErrRowNotFound is returned by Delete when no row carries the id.
var ErrRowNotFound = errors.New("expense row not found")

// Columns of a mirrored expense row, in order.
var Header = []string{"ID", "Date", "Category", "Amount", "Payment", "Notes"}

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps one spreadsheet row per expense, keyed by the id in
	// the first column.
	ExpenseMirror interface {
		// Append adds the expense unless a row with its id already exists and
		// returns a reference to the row.
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
		Delete(ctx context.Context, id string) error
	}

	// ExpenseLister reads the mirrored rows back.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}
)
