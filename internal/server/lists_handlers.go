package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JustynLim/SoC-SMS/internal/pdf"
	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

func (s *Server) handleInternshipSessions(w http.ResponseWriter, r *http.Request) {
	courseCode := r.URL.Query().Get("courseCode")
	if courseCode == "" {
		httpx.WriteError(w, http.StatusBadRequest, "courseCode is required")
		return
	}
	sessions, err := s.db.InternshipSessions(r.Context(), courseCode)
	if err != nil {
		s.logger.Error().Err(err).Msg("internship sessions failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch sessions")
		return
	}
	httpx.WriteJSON(w, sessions)
}

func (s *Server) handleMentorshipSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.db.MentorshipSessions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("mentorship sessions failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch sessions")
		return
	}
	httpx.WriteJSON(w, sessions)
}

type internshipListRequest struct {
	CourseCode string `json:"courseCode" validate:"required"`
	Session    string `json:"session" validate:"required"`
}

type mentorshipListRequest struct {
	Session string `json:"session" validate:"required"`
}

func (s *Server) internshipRows(w http.ResponseWriter, r *http.Request) (internshipListRequest, []storage.ListEntry, bool) {
	var req internshipListRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return req, nil, false
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "courseCode and session are required")
		return req, nil, false
	}
	rows, err := s.db.InternshipList(r.Context(), req.CourseCode, req.Session)
	if err != nil {
		s.logger.Error().Err(err).Msg("internship list failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to generate list")
		return req, nil, false
	}
	return req, rows, true
}

func (s *Server) mentorshipRows(w http.ResponseWriter, r *http.Request) (mentorshipListRequest, []storage.ListEntry, bool) {
	var req mentorshipListRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return req, nil, false
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "session is required")
		return req, nil, false
	}
	rows, err := s.db.MentorshipList(r.Context(), req.Session)
	if err != nil {
		s.logger.Error().Err(err).Msg("mentorship list failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to generate list")
		return req, nil, false
	}
	return req, rows, true
}

func (s *Server) handleInternshipList(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := s.internshipRows(w, r)
	if !ok {
		return
	}
	if rows == nil {
		rows = []storage.ListEntry{}
	}
	httpx.WriteJSON(w, map[string]any{"rows": rows})
}

func (s *Server) handleMentorshipList(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := s.mentorshipRows(w, r)
	if !ok {
		return
	}
	if rows == nil {
		rows = []storage.ListEntry{}
	}
	httpx.WriteJSON(w, map[string]any{"rows": rows})
}

func (s *Server) handleInternshipListPDF(w http.ResponseWriter, r *http.Request) {
	req, rows, ok := s.internshipRows(w, r)
	if !ok {
		return
	}
	doc, err := pdf.InternshipList(req.CourseCode, req.Session, rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("internship pdf failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}
	writePDF(w, fmt.Sprintf("internship_list_%s_%s.pdf",
		filenameSafe(req.CourseCode), filenameSafe(req.Session)), doc)
}

func (s *Server) handleMentorshipListPDF(w http.ResponseWriter, r *http.Request) {
	req, rows, ok := s.mentorshipRows(w, r)
	if !ok {
		return
	}
	doc, err := pdf.MentorshipList(req.Session, rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("mentorship pdf failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}
	writePDF(w, fmt.Sprintf("mentorship_list_%s.pdf", filenameSafe(req.Session)), doc)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.db.DashboardSummary(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("dashboard summary failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch dashboard summary")
		return
	}
	httpx.WriteJSON(w, summary)
}

func writePDF(w http.ResponseWriter, filename string, doc []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// filenameSafe keeps download names shell and header friendly.
func filenameSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
