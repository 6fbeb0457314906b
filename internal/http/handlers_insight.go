package http

import (
	"errors"
	"net/http"

	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	"brokeometer/internal/services"
	"brokeometer/internal/storage"
)

type insightResponse struct {
	insight.Result
	Sections []insight.Section `json:"sections"`
}

// handleInsights returns the latest stored insight split into sections.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	res, err := insight.LatestResult(r.Context(), s.store)
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("No insight generated yet").Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to read insight", log.OpRead, err)
		return
	}

	sections := insight.Sections(res.Text)
	if sections == nil {
		sections = []insight.Section{}
	}
	NewResponse().JSON(insightResponse{Result: res, Sections: sections}).Write(w)
}

// handleRefreshInsights queues a new generation and returns immediately.
func (s *Server) handleRefreshInsights(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.RefreshInsights(r.Context())
	if errors.Is(err, services.ErrInsightsDisabled) {
		ServiceUnavailableError(err.Error()).Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to request insight", log.OpGenerate, err)
		return
	}
	NewResponse().
		Status(http.StatusAccepted).
		JSON(map[string]string{"status": "queued"}).
		Write(w)
}
