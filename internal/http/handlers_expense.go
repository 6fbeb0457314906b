package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
)

// handleListExpenses returns the log in insertion order.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.State(r.Context()).Expenses).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	amount, err := p.Amount("amount")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		UnprocessableEntityError(fmt.Sprintf("category: %v", err)).Write(w)
		return
	}

	e, err := s.tracker.AddExpense(r.Context(), budget.ExpenseInput{
		Category:      category,
		Amount:        amount,
		PaymentMethod: p.Get("payment_method"),
		Notes:         p.Get("notes"),
	})
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidCategory):
		UnprocessableEntityError(err.Error()).Write(w)
		return
	case err != nil:
		s.internalError(w, r, "Failed to save expense", log.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		TriggerExpenseCreated(e.ID).
		TriggerSuccessNotification(fmt.Sprintf("Added %s for %s", core.FormatAmount(e.Amount), e.Category)).
		JSON(e).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		BadRequestError("Missing expense id").Write(w)
		return
	}

	e, err := s.tracker.DeleteExpense(r.Context(), id)
	if errors.Is(err, budget.ErrExpenseNotFound) {
		NotFoundError("Expense not found").Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to delete expense", log.OpDelete, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.expensesDeleted, 1)
	NewResponse().
		TriggerExpenseDeleted(e.ID).
		TriggerSuccessNotification(fmt.Sprintf("Removed %s for %s", core.FormatAmount(e.Amount), e.Category)).
		JSON(e).
		Write(w)
}
