package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListScores(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list scores failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch scores")
		return
	}
	if rows == nil {
		rows = []storage.ScoreRow{}
	}
	httpx.WriteJSON(w, rows)
}

// handleScoresByCohort serves the per-cohort grid. The cohort year picks the
// course version whose window the cohort start date falls into.
func (s *Server) handleScoresByCohort(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		httpx.WriteError(w, http.StatusBadRequest, "year is required")
		return
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "year must be a number")
		return
	}

	rows, err := s.db.ScoresByCohort(r.Context(), year)
	if err != nil {
		s.logger.Error().Err(err).Int("year", year).Msg("cohort scores failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch cohort scores")
		return
	}
	if rows == nil {
		rows = []storage.CohortScoreRow{}
	}
	httpx.WriteJSON(w, rows)
}

type updateScoreRequest struct {
	Attempt1 *string `json:"ATTEMPT_1"`
	Attempt2 *string `json:"ATTEMPT_2"`
	Attempt3 *string `json:"ATTEMPT_3"`
}

func (s *Server) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	scoreID, err := strconv.ParseInt(chi.URLParam(r, "scoreID"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid score id")
		return
	}
	var req updateScoreRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	attempts := map[int]string{}
	for i, v := range map[int]*string{1: req.Attempt1, 2: req.Attempt2, 3: req.Attempt3} {
		if v != nil {
			attempts[i] = *v
		}
	}
	if len(attempts) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "No attempts provided")
		return
	}

	err = s.db.UpdateScoreAttempts(r.Context(), scoreID, attempts)
	switch {
	case errors.Is(err, storage.ErrScoreNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Score not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Int64("score_id", scoreID).Msg("score update failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to update score")
		return
	}
	httpx.WriteJSON(w, map[string]any{"message": "Score updated successfully"})
}
