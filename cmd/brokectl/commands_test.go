package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AMQP_URL", "GEMINI_API_KEY", "GOOGLE_SPREADSHEET_ID", "SQLITE_DB_PATH", "DATA_BACKEND"} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func readBack(t *testing.T, path string) budget.Records {
	t.Helper()
	store, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	recs, err := budget.ReadRecords(context.Background(), store, time.Now(), log.Discard())
	require.NoError(t, err)
	return recs
}

func TestCommandsWriteRecords(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "broke.db")

	require.NoError(t, run(t, "login", "--db", db, "--name", "Asha", "--username", "asha", "--password", "pw"))
	require.NoError(t, run(t, "limits", "set", "--db", db, "--monthly", "8,000", "--weekly", "2000"))
	require.NoError(t, run(t, "expenses", "add", "--db", db, "--amount", "150", "--category", "food", "--notes", "chai"))

	recs := readBack(t, db)
	require.NotNil(t, recs.User)
	assert.Equal(t, "Asha", recs.User.Name)
	assert.NotEqual(t, "pw", recs.User.Password, "password must be stored hashed")

	assert.Equal(t, 8000.0, recs.Budget.MonthlyLimit)
	assert.Equal(t, 2000.0, recs.Budget.WeeklyLimit)

	require.Len(t, recs.Expenses, 1)
	e := recs.Expenses[0]
	assert.Equal(t, core.Food, e.Category)
	assert.Equal(t, 150.0, e.Amount)
	assert.Equal(t, core.DefaultPaymentMethod, e.PaymentMethod)

	i := recs.Budget.Week(core.WeekStart(time.Now()))
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, 150.0, recs.Budget.WeeklyBudgets[i].Spent)

	require.NoError(t, run(t, "expenses", "delete", "--db", db, e.ID))
	assert.Empty(t, readBack(t, db).Expenses)

	require.NoError(t, run(t, "logout", "--db", db))
	assert.Nil(t, readBack(t, db).User)
}

func TestCommandErrors(t *testing.T) {
	isolateEnv(t)
	db := filepath.Join(t.TempDir(), "broke.db")

	assert.Error(t, run(t, "expenses", "add", "--db", db, "--amount", "abc"))
	assert.Error(t, run(t, "expenses", "add", "--db", db, "--amount", "12,50"))
	assert.Error(t, run(t, "expenses", "add", "--db", db, "--amount", "10", "--category", "Rent"))
	assert.ErrorContains(t, run(t, "expenses", "delete", "--db", db, "missing"), "no expense with id")
	assert.ErrorContains(t, run(t, "insights", "refresh", "--db", db), "GEMINI_API_KEY")
}

func TestLimitText(t *testing.T) {
	assert.Equal(t, "not set", limitText(0))
	assert.Equal(t, "₹1,250.5", limitText(1250.5))
}
