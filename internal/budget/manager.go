// Package budget owns the expense log, the budget record and the user
// profile, and performs week rollover with savings accrual.
package budget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

type Mode string

const (
	ModeOnboarding  Mode = "onboarding"
	ModeNeedsBudget Mode = "needs_budget"
	ModeReady       Mode = "ready"
)

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrInvalidProfile  = errors.New("name and username are required")
	ErrInvalidLimit    = errors.New("limits must be non-negative numbers")
)

// ExpenseInput is a submitted expense. ID is generated when empty; the date
// is always the time of submission.
type ExpenseInput struct {
	ID            string
	Category      core.Category
	Amount        float64
	PaymentMethod string
	Notes         string
}

// Snapshot is a copy of the owned state. User is nil when logged out and
// never carries the password hash.
type Snapshot struct {
	Expenses []core.Expense    `json:"expenses"`
	Budget   core.UserBudget   `json:"budget"`
	User     *core.UserProfile `json:"user"`
	Mode     Mode              `json:"mode"`
}

// Savings is the accrued total plus the settled weeks, most recent first.
type Savings struct {
	Total float64             `json:"total"`
	Weeks []core.WeeklyBudget `json:"weeks"`
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger.WithComponent(log.ComponentBudget) }
}

// WithIDGenerator replaces the UUID source for new expenses.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// Manager serialises every read and write of the three records. Call Load
// once before anything else.
type Manager struct {
	mu     sync.Mutex
	store  storage.RecordStore
	now    func() time.Time
	newID  func() string
	logger *log.Logger

	expenses []core.Expense
	budget   core.UserBudget
	user     *core.UserProfile
}

func NewManager(store storage.RecordStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentBudget),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.budget = core.EmptyBudget(core.WeekStart(m.now()))
	m.expenses = []core.Expense{}
	return m
}

// Load reads the persisted records, replacing unreadable ones with defaults,
// upgrades old schemas, applies any pending rollover and writes the budget
// back.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	recs, err := ReadRecords(ctx, m.store, now, m.logger)
	if err != nil {
		return err
	}

	m.expenses = recs.Expenses
	m.user = recs.User
	m.budget, _ = m.rollover(recs.Budget, now)

	if err := m.put(ctx, storage.KeyBudget, m.budget); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Budget state loaded",
		"expenses", len(m.expenses),
		log.FieldWeekStart, m.budget.CurrentWeekStart,
		log.FieldSavings, m.budget.Savings,
		"mode", m.mode())
	return nil
}

// Records is the decoded persisted state.
type Records struct {
	Expenses []core.Expense
	Budget   core.UserBudget
	User     *core.UserProfile
}

// ReadRecords decodes the three records without writing anything. Missing or
// malformed records yield defaults; only store failures are returned.
func ReadRecords(ctx context.Context, store storage.RecordStore, now time.Time, logger *log.Logger) (Records, error) {
	recs := Records{
		Expenses: []core.Expense{},
		Budget:   core.EmptyBudget(core.WeekStart(now)),
	}

	var expenses []core.Expense
	if ok, err := readRecord(ctx, store, storage.KeyExpenses, now, logger, &expenses); err != nil {
		return Records{}, err
	} else if ok && expenses != nil {
		recs.Expenses = expenses
	}

	var b core.UserBudget
	if ok, err := readRecord(ctx, store, storage.KeyBudget, now, logger, &b); err != nil {
		return Records{}, err
	} else if ok {
		if b.WeeklyBudgets == nil {
			b.WeeklyBudgets = []core.WeeklyBudget{}
		}
		recs.Budget = b
	}

	var user core.UserProfile
	if ok, err := readRecord(ctx, store, storage.KeyUser, now, logger, &user); err != nil {
		return Records{}, err
	} else if ok && user.Name != "" {
		recs.User = &user
	}

	return recs, nil
}

func readRecord(ctx context.Context, store storage.RecordStore, key string, now time.Time, logger *log.Logger, out any) (bool, error) {
	body, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	upgraded, err := decodeRecord(key, body, now, out)
	if err != nil {
		logger.WarnContext(ctx, "Discarding unreadable record",
			log.NewFields().
				WithRecord(key).
				WithOperation(log.OpLoad).
				WithErrorType(log.ErrorTypeCorrupt).
				WithError(err).
				ToSlice()...)
		return false, nil
	}
	if upgraded {
		logger.InfoContext(ctx, "Record upgraded to current schema",
			log.FieldRecordKey, key, "version", CurrentVersion(key))
	}
	return true, nil
}

// Rollover advances b to the week containing now. When the tracked week
// changed, the unspent part of the last recorded week is added to savings;
// overspending never reduces them. It returns the amount accrued.
func Rollover(b core.UserBudget, now time.Time) (core.UserBudget, float64) {
	current := core.WeekStart(now)
	if b.CurrentWeekStart == current {
		return b, 0
	}

	b = b.Clone()
	var accrued float64
	if b.WeeklyLimit > 0 && len(b.WeeklyBudgets) > 0 {
		last := &b.WeeklyBudgets[len(b.WeeklyBudgets)-1]
		if last.WeekStart != current {
			if saved := last.Limit - last.Spent; saved > 0 {
				last.Saved = saved
				b.Savings += saved
				accrued = saved
			}
		}
	}
	b.CurrentWeekStart = current
	return b, accrued
}

func (m *Manager) rollover(b core.UserBudget, now time.Time) (core.UserBudget, float64) {
	from := b.CurrentWeekStart
	out, accrued := Rollover(b, now)
	if out.CurrentWeekStart != from {
		m.logger.Info("Week rolled over",
			log.FieldOperation, log.OpRollover,
			"from", from,
			log.FieldWeekStart, out.CurrentWeekStart,
			"accrued", accrued,
			log.FieldSavings, out.Savings)
	}
	return out, accrued
}

// reload re-reads the records so that writes made through another Manager on
// the same store are not lost, then rolls the budget over when the clock
// crossed a Monday and persists the result.
func (m *Manager) reload(ctx context.Context) error {
	now := m.now()
	recs, err := ReadRecords(ctx, m.store, now, m.logger)
	if err != nil {
		return err
	}
	m.expenses = recs.Expenses
	m.user = recs.User
	m.budget, _ = m.rollover(recs.Budget, now)
	if m.budget.CurrentWeekStart == recs.Budget.CurrentWeekStart {
		return nil
	}
	return m.put(ctx, storage.KeyBudget, m.budget)
}

// reloadForRead keeps serving the last known state when the store is
// unreachable.
func (m *Manager) reloadForRead(ctx context.Context) {
	if err := m.reload(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to sync budget state", log.FieldError, err)
		if m.budget.CurrentWeekStart != core.WeekStart(m.now()) {
			m.budget, _ = m.rollover(m.budget, m.now())
		}
	}
}

// AddExpense appends an expense dated now and charges it to the current week,
// creating that week's entry with the configured weekly limit when absent.
func (m *Manager) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reload(ctx); err != nil {
		return core.Expense{}, err
	}

	cat, err := core.ParseCategory(string(in.Category))
	if err != nil {
		return core.Expense{}, err
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount < 0 {
		return core.Expense{}, core.ErrInvalidAmount
	}

	now := m.now()
	e := core.Expense{
		ID:            strings.TrimSpace(in.ID),
		Date:          now,
		Category:      cat,
		Amount:        in.Amount,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Notes:         strings.TrimSpace(in.Notes),
	}
	if e.ID == "" {
		e.ID = m.newID()
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = core.DefaultPaymentMethod
	}

	expenses := append(append(make([]core.Expense, 0, len(m.expenses)+1), m.expenses...), e)
	if err := m.put(ctx, storage.KeyExpenses, expenses); err != nil {
		return core.Expense{}, err
	}
	m.expenses = expenses

	b := m.budget.Clone()
	week := core.WeekStart(now)
	i := b.Week(week)
	if i < 0 {
		b.WeeklyBudgets = append(b.WeeklyBudgets, core.WeeklyBudget{WeekStart: week, Limit: b.WeeklyLimit})
		i = len(b.WeeklyBudgets) - 1
	}
	b.WeeklyBudgets[i].Spent += e.Amount
	m.budget = b

	if err := m.put(ctx, storage.KeyBudget, b); err != nil {
		m.logger.ErrorContext(ctx, "Expense saved but weekly tally was not",
			log.NewFields().WithExpense(e.ID, string(e.Category), e.Amount).WithError(err).ToSlice()...)
		return e, err
	}

	log.NewStructuredLogger(m.logger).LogExpenseAdded(ctx, e.ID, string(e.Category), e.Amount)
	return e, nil
}

// DeleteExpense removes the expense with id. Weekly tallies are left as is.
func (m *Manager) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reload(ctx); err != nil {
		return core.Expense{}, err
	}

	idx := -1
	for i, e := range m.expenses {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Expense{}, fmt.Errorf("%s: %w", id, ErrExpenseNotFound)
	}

	removed := m.expenses[idx]
	expenses := make([]core.Expense, 0, len(m.expenses)-1)
	expenses = append(expenses, m.expenses[:idx]...)
	expenses = append(expenses, m.expenses[idx+1:]...)
	if err := m.put(ctx, storage.KeyExpenses, expenses); err != nil {
		return core.Expense{}, err
	}
	m.expenses = expenses

	m.logger.InfoContext(ctx, "Expense deleted",
		log.NewFields().
			WithExpense(removed.ID, string(removed.Category), removed.Amount).
			WithOperation(log.OpDelete).
			ToSlice()...)
	return removed, nil
}

// UpdateLimits sets both limits, keeping savings and weekly history.
func (m *Manager) UpdateLimits(ctx context.Context, monthly, weekly float64) (core.UserBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !validLimit(monthly) || !validLimit(weekly) {
		return core.UserBudget{}, ErrInvalidLimit
	}
	if err := m.reload(ctx); err != nil {
		return core.UserBudget{}, err
	}

	b := m.budget.Clone()
	b.MonthlyLimit = monthly
	b.WeeklyLimit = weekly
	if err := m.put(ctx, storage.KeyBudget, b); err != nil {
		return core.UserBudget{}, err
	}
	m.budget = b

	m.logger.InfoContext(ctx, "Limits updated",
		log.FieldOperation, log.OpUpdate, "monthly_limit", monthly, "weekly_limit", weekly)
	return b.Clone(), nil
}

func validLimit(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ResetSavings zeroes the accrued savings.
func (m *Manager) ResetSavings(ctx context.Context) (core.UserBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reload(ctx); err != nil {
		return core.UserBudget{}, err
	}

	b := m.budget.Clone()
	previous := b.Savings
	b.Savings = 0
	if err := m.put(ctx, storage.KeyBudget, b); err != nil {
		return core.UserBudget{}, err
	}
	m.budget = b

	m.logger.InfoContext(ctx, "Savings reset", log.FieldOperation, log.OpReset, "previous", previous)
	return b.Clone(), nil
}

// Login stores the profile. The password, when given, is kept as a bcrypt
// hash and not checked against anything.
func (m *Manager) Login(ctx context.Context, name, username, password string) (core.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := core.UserProfile{
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
	}
	if p.Name == "" || p.Username == "" {
		return core.UserProfile{}, ErrInvalidProfile
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return core.UserProfile{}, fmt.Errorf("hash password: %w", err)
		}
		p.Password = string(hash)
	}

	if err := m.put(ctx, storage.KeyUser, p); err != nil {
		return core.UserProfile{}, err
	}
	m.user = &p

	m.logger.InfoContext(ctx, "User logged in", log.FieldOperation, log.OpLogin, "username", p.Username)
	return publicProfile(p), nil
}

// Logout removes the profile. Expenses and budget are kept.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, storage.KeyUser); err != nil {
		return fmt.Errorf("delete %s: %w", storage.KeyUser, err)
	}
	m.user = nil

	m.logger.InfoContext(ctx, "User logged out", log.FieldOperation, log.OpLogout)
	return nil
}

func (m *Manager) State(ctx context.Context) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadForRead(ctx)

	s := Snapshot{
		Expenses: append([]core.Expense{}, m.expenses...),
		Budget:   m.budget.Clone(),
		Mode:     m.mode(),
	}
	if m.user != nil {
		p := publicProfile(*m.user)
		s.User = &p
	}
	return s
}

func (m *Manager) Dashboard(ctx context.Context) core.Dashboard {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadForRead(ctx)
	return core.ComputeDashboard(m.expenses, m.budget, m.now())
}

func (m *Manager) SavingsHistory(ctx context.Context) Savings {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadForRead(ctx)
	return Savings{Total: m.budget.Savings, Weeks: core.PastWeeks(m.budget)}
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode()
}

func (m *Manager) mode() Mode {
	switch {
	case m.user == nil:
		return ModeOnboarding
	case m.budget.MonthlyLimit == 0:
		return ModeNeedsBudget
	default:
		return ModeReady
	}
}

func (m *Manager) put(ctx context.Context, key string, v any) error {
	body, err := encodeRecord(key, v)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func publicProfile(p core.UserProfile) core.UserProfile {
	p.Password = ""
	return p
}
