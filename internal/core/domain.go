package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Study         Category = "Study"
	Entertainment Category = "Entertainment"
	Personal      Category = "Personal"
	Misc          Category = "Misc"
)

// DefaultPaymentMethod is used when a submission carries no payment tag.
const DefaultPaymentMethod = "Digital"

type (
	Category string

	// Expense is one spending event. Expenses are never mutated after creation.
	Expense struct {
		ID            string    `json:"id"`
		Date          time.Time `json:"date"`
		Category      Category  `json:"category"`
		Amount        float64   `json:"amount"`
		PaymentMethod string    `json:"paymentMethod"`
		Notes         string    `json:"notes"`
	}

	// WeeklyBudget is one calendar week's allocation record, keyed by WeekStart.
	WeeklyBudget struct {
		WeekStart string  `json:"weekStart"`
		Limit     float64 `json:"limit"`
		Spent     float64 `json:"spent"`
		Saved     float64 `json:"saved"`
	}

	// UserBudget is the singleton budget configuration plus accrual state.
	UserBudget struct {
		MonthlyLimit     float64        `json:"monthlyLimit"`
		WeeklyLimit      float64        `json:"weeklyLimit"`
		Savings          float64        `json:"savings"`
		WeeklyBudgets    []WeeklyBudget `json:"weeklyBudgets"`
		CurrentWeekStart string         `json:"currentWeekStart"`
	}

	// UserProfile is the singleton identity record. Password holds a bcrypt
	// hash when one was supplied at login.
	UserProfile struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyID         = errors.New("empty expense id")
	ErrZeroDate        = errors.New("date cannot be zero")
)

// Categories returns the fixed category enumeration in display order.
func Categories() []Category {
	return []Category{Food, Transport, Study, Entertainment, Personal, Misc}
}

// ParseCategory matches s against the enumeration, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Validate() error {
	if _, err := ParseCategory(string(c)); err != nil {
		return err
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if e.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// EmptyBudget returns the unconfigured budget anchored at weekStart.
func EmptyBudget(weekStart string) UserBudget {
	return UserBudget{
		WeeklyBudgets:    []WeeklyBudget{},
		CurrentWeekStart: weekStart,
	}
}

// Clone returns a deep copy so callers cannot alias the weekly history.
func (b UserBudget) Clone() UserBudget {
	out := b
	out.WeeklyBudgets = append([]WeeklyBudget{}, b.WeeklyBudgets...)
	return out
}

// Week returns the index of the entry for weekStart, or -1.
func (b UserBudget) Week(weekStart string) int {
	for i, w := range b.WeeklyBudgets {
		if w.WeekStart == weekStart {
			return i
		}
	}
	return -1
}
