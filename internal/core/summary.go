package core

import (
	"sort"
	"strings"
	"time"
)

// LowBalanceThreshold is the remaining monthly amount at or below which the
// dashboard warns that survival funds are running low.
const LowBalanceThreshold = 500

// Dashboard holds the derived, never persisted, budget metrics.
type Dashboard struct {
	MonthlyLimit     float64 `json:"monthly_limit"`
	MonthlySpent     float64 `json:"monthly_spent"`
	MonthlyRemaining float64 `json:"monthly_remaining"`
	MonthlyPercent   float64 `json:"monthly_percent"`
	WeeklyLimit      float64 `json:"weekly_limit"`
	WeeklySpent      float64 `json:"weekly_spent"`
	WeeklyRemaining  float64 `json:"weekly_remaining"`
	WeeklyPercent    float64 `json:"weekly_percent"`
	WeekStart        string  `json:"week_start"`
	Savings          float64 `json:"savings"`
	LowBalance       bool    `json:"low_balance"`
	Broke            bool    `json:"broke"`
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
}

// Percent returns spent as a share of limit, capped at 100. A zero or
// negative limit yields 0.
func Percent(spent, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	p := spent * 100 / limit
	if p > 100 {
		return 100
	}
	return p
}

// TotalSpent sums every expense in the log, regardless of date.
func TotalSpent(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// SpentSince sums expenses dated at or after from.
func SpentSince(expenses []Expense, from time.Time) float64 {
	var total float64
	for _, e := range expenses {
		if !e.Date.Before(from) {
			total += e.Amount
		}
	}
	return total
}

// ComputeDashboard derives the dashboard metrics at now. The monthly figure
// is the all-time total; it is not scoped to the calendar month.
func ComputeDashboard(expenses []Expense, b UserBudget, now time.Time) Dashboard {
	monthly := TotalSpent(expenses)
	weekly := SpentSince(expenses, WeekStartTime(now))
	remaining := b.MonthlyLimit - monthly

	return Dashboard{
		MonthlyLimit:     b.MonthlyLimit,
		MonthlySpent:     monthly,
		MonthlyRemaining: remaining,
		MonthlyPercent:   Percent(monthly, b.MonthlyLimit),
		WeeklyLimit:      b.WeeklyLimit,
		WeeklySpent:      weekly,
		WeeklyRemaining:  b.WeeklyLimit - weekly,
		WeeklyPercent:    Percent(weekly, b.WeeklyLimit),
		WeekStart:        WeekStart(now),
		Savings:          b.Savings,
		LowBalance:       remaining > 0 && remaining <= LowBalanceThreshold,
		Broke:            remaining <= 0,
	}
}

// ByCategory aggregates spending per category in enumeration order,
// omitting categories with no expenses.
func ByCategory(expenses []Expense) []CategoryAmount {
	sums := make(map[Category]float64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount
	}
	out := make([]CategoryAmount, 0, len(sums))
	for _, c := range Categories() {
		if v, ok := sums[c]; ok {
			out = append(out, CategoryAmount{Category: c, Amount: v})
		}
	}
	return out
}

// NoteFrequencies counts repeated notes, lowercased and trimmed. Empty notes
// are ignored.
func NoteFrequencies(expenses []Expense) map[string]int {
	freq := make(map[string]int)
	for _, e := range expenses {
		note := strings.ToLower(strings.TrimSpace(e.Notes))
		if note != "" {
			freq[note]++
		}
	}
	return freq
}

// PastWeeks returns the weekly history without the current week, most
// recent first.
func PastWeeks(b UserBudget) []WeeklyBudget {
	out := make([]WeeklyBudget, 0, len(b.WeeklyBudgets))
	for _, w := range b.WeeklyBudgets {
		if w.WeekStart != b.CurrentWeekStart {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeekStart > out[j].WeekStart
	})
	return out
}
