package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"brokeometer/internal/core"
)

// expenseRow renders e in the column order of sheets.Header.
func expenseRow(e core.Expense) []interface{} {
	return []interface{}{
		e.ID,
		e.Date.Format(time.RFC3339),
		string(e.Category),
		strconv.FormatFloat(e.Amount, 'f', 2, 64),
		e.PaymentMethod,
		e.Notes,
	}
}

// parseRow is the inverse of expenseRow. Header and blank rows yield ok=false.
func parseRow(row []interface{}) (core.Expense, bool, error) {
	cols := toStrings(row)
	if len(cols) < 4 || cols[0] == "" || strings.EqualFold(cols[0], "id") {
		return core.Expense{}, false, nil
	}

	date, err := time.Parse(time.RFC3339, cols[1])
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("row %s: date: %w", cols[0], err)
	}
	cat, err := core.ParseCategory(cols[2])
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("row %s: %w", cols[0], err)
	}
	amount, err := core.ParseAmount(cols[3])
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("row %s: %w", cols[0], err)
	}

	return core.Expense{
		ID:            cols[0],
		Date:          date,
		Category:      cat,
		Amount:        amount,
		PaymentMethod: safeGet(cols, 4),
		Notes:         safeGet(cols, 5),
	}, true, nil
}

// rowIndex returns the zero-based index of the row whose first cell is id.
func rowIndex(values [][]interface{}, id string) int {
	for i, row := range values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
