package http

import (
	"errors"
	"net/http"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
)

type stateResponse struct {
	User   *core.UserProfile `json:"user"`
	Budget core.UserBudget   `json:"budget"`
	Mode   budget.Mode       `json:"mode"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.State(r.Context())
	NewResponse().JSON(stateResponse{User: snap.User, Budget: snap.Budget, Mode: snap.Mode}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	profile, err := s.tracker.Login(r.Context(), p.Get("name"), p.Get("username"), p.Get("password"))
	if errors.Is(err, budget.ErrInvalidProfile) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to save profile", log.OpLogin, err)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		TriggerSuccessNotification("Welcome, " + profile.Name).
		JSON(profile).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Logout(r.Context()); err != nil {
		s.internalError(w, r, "Failed to remove profile", log.OpLogout, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.State(r.Context()).Budget).Write(w)
}

// handleUpdateBudget sets the limits. A limit missing from the body keeps
// its current value; an empty one clears it.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	current := s.tracker.State(r.Context()).Budget
	monthly, weekly := current.MonthlyLimit, current.WeeklyLimit
	var err error
	if p.Has("monthly_limit") {
		if monthly, err = p.Limit("monthly_limit"); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
	}
	if p.Has("weekly_limit") {
		if weekly, err = p.Limit("weekly_limit"); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
	}

	b, err := s.tracker.UpdateLimits(r.Context(), monthly, weekly)
	if errors.Is(err, budget.ErrInvalidLimit) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to save budget", log.OpUpdate, err)
		return
	}

	NewResponse().
		TriggerBudgetUpdated().
		TriggerSuccessNotification("Budget set to " + core.FormatAmount(b.MonthlyLimit) + " a month").
		JSON(b).
		Write(w)
}

func (s *Server) handleResetSavings(w http.ResponseWriter, r *http.Request) {
	b, err := s.tracker.ResetSavings(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to reset savings", log.OpReset, err)
		return
	}
	NewResponse().
		TriggerBudgetUpdated().
		TriggerSuccessNotification("Savings reset").
		JSON(b).
		Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.Dashboard(r.Context())).Write(w)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.SavingsHistory(r.Context())).Write(w)
}
