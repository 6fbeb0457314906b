package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"brokeometer/internal/budget"
	"brokeometer/internal/cli"
	"brokeometer/internal/core"
)

var (
	flagCategory string
	flagFilter   string
	flagAmount   string
	flagPayment  string
	flagNotes    string
	flagLimit    int
)

var expensesCmd = &cobra.Command{
	Use:     "expenses",
	Aliases: []string{"exp"},
	Short:   "List recorded expenses, newest first",
	RunE:    runListExpenses,
}

var addExpenseCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense dated now",
	Long:  "Record an expense dated now and charged to the current week. Categories: " + categoryList() + ".",
	RunE:  runAddExpense,
}

var deleteExpenseCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an expense. Weekly tallies are not recomputed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteExpense,
}

func init() {
	expensesCmd.Flags().StringVarP(&flagFilter, "category", "c", "", "Only show this category")
	expensesCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Maximum rows to show (0 for all)")

	addExpenseCmd.Flags().StringVarP(&flagAmount, "amount", "a", "", "Amount, e.g. 150, 99.50 or 1,250")
	addExpenseCmd.Flags().StringVarP(&flagCategory, "category", "c", string(core.Misc), "Expense category")
	addExpenseCmd.Flags().StringVarP(&flagPayment, "payment", "p", core.DefaultPaymentMethod, "Payment method tag")
	addExpenseCmd.Flags().StringVarP(&flagNotes, "notes", "n", "", "Free-text notes")
	_ = addExpenseCmd.MarkFlagRequired("amount")

	expensesCmd.AddCommand(addExpenseCmd, deleteExpenseCmd)
	rootCmd.AddCommand(expensesCmd)
}

func runListExpenses(_ *cobra.Command, _ []string) error {
	var filter core.Category
	if flagFilter != "" {
		c, err := core.ParseCategory(flagFilter)
		if err != nil {
			return err
		}
		filter = c
	}

	return withSession(func(ctx context.Context, s *session) error {
		t := cli.Table{Headers: []string{"ID", "When", "Category", "Payment", "Amount", "Notes"}}
		total := 0.0
		expenses := s.tracker.State(ctx).Expenses
		for i := len(expenses) - 1; i >= 0; i-- {
			e := expenses[i]
			if filter != "" && e.Category != filter {
				continue
			}
			if flagLimit > 0 && len(t.Rows) == flagLimit {
				break
			}
			total += e.Amount
			t.Rows = append(t.Rows, []string{
				e.ID,
				humanize.Time(e.Date),
				string(e.Category),
				e.PaymentMethod,
				core.FormatAmount(e.Amount),
				e.Notes,
			})
		}

		fmt.Println()
		if len(t.Rows) == 0 {
			fmt.Println("  No expenses recorded.")
			fmt.Println()
			return nil
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Print(cli.RenderField("Shown total", core.FormatAmount(total)))
		fmt.Println()
		return nil
	})
}

func runAddExpense(_ *cobra.Command, _ []string) error {
	amount, err := core.ParseAmount(flagAmount)
	if err != nil {
		return err
	}
	category, err := core.ParseCategory(flagCategory)
	if err != nil {
		return fmt.Errorf("%w (one of %s)", err, categoryList())
	}

	return withSession(func(ctx context.Context, s *session) error {
		e, err := s.tracker.AddExpense(ctx, budget.ExpenseInput{
			Category:      category,
			Amount:        amount,
			PaymentMethod: flagPayment,
			Notes:         flagNotes,
		})
		if err != nil && e.ID == "" {
			return err
		}

		fmt.Printf("  Added %s for %s (%s)\n", core.FormatAmount(e.Amount), e.Category, e.ID)
		if err != nil {
			fmt.Print(cli.RenderWarning("Expense saved but the weekly tally was not updated: " + err.Error()))
			return err
		}
		return nil
	})
}

func runDeleteExpense(_ *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		e, err := s.tracker.DeleteExpense(ctx, args[0])
		if errors.Is(err, budget.ErrExpenseNotFound) {
			return fmt.Errorf("no expense with id %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("  Removed %s for %s\n", core.FormatAmount(e.Amount), e.Category)
		return nil
	})
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
