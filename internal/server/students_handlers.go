package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.db.ListStudents(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list students failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch students")
		return
	}
	if students == nil {
		students = []storage.Student{}
	}
	httpx.WriteJSON(w, students)
}

type addStudentRequest struct {
	StudentName   string `json:"STUDENT_NAME" validate:"required"`
	Cohort        string `json:"COHORT" validate:"required,datetime=2006-01-02"`
	Sem           string `json:"SEM" validate:"required"`
	CUID          int    `json:"CU_ID" validate:"required"`
	ICNo          string `json:"IC_NO" validate:"required"`
	MobileNo      string `json:"MOBILE_NO"`
	Email         string `json:"EMAIL"`
	BM            string `json:"BM"`
	English       string `json:"ENGLISH"`
	EntryQ        string `json:"ENTRY_Q"`
	MatricNo      string `json:"MATRIC_NO" validate:"required"`
	CourseVersion string `json:"COURSE_VERSION" validate:"required"`
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req addStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Missing or invalid required fields")
		return
	}

	seeded, err := s.db.AddStudent(r.Context(), storage.Student{
		StudentName: strings.TrimSpace(req.StudentName),
		Cohort:      req.Cohort,
		Sem:         strings.TrimSpace(req.Sem),
		CUID:        req.CUID,
		ICNo:        strings.TrimSpace(req.ICNo),
		MobileNo:    req.MobileNo,
		Email:       req.Email,
		BM:          req.BM,
		English:     req.English,
		EntryQ:      req.EntryQ,
		MatricNo:    strings.TrimSpace(req.MatricNo),
	}, req.CourseVersion)
	switch {
	case errors.Is(err, storage.ErrMatricExists):
		httpx.WriteError(w, http.StatusBadRequest, "Matric number already exists")
		return
	case errors.Is(err, storage.ErrNoCoursesForVersion):
		httpx.WriteError(w, http.StatusBadRequest, "No courses found for version: "+req.CourseVersion)
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("add student failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to add student")
		return
	}

	httpx.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"message": "Student " + req.StudentName + " added successfully",
		"courses": seeded,
	})
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	var fields map[string]any
	if err := httpx.DecodeJSON(r, &fields); err != nil || len(fields) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "No input data provided")
		return
	}

	err := s.db.UpdateStudent(r.Context(), studentID, fields)
	switch {
	case errors.Is(err, storage.ErrStudentNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Student not found")
		return
	case err != nil:
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, map[string]any{"message": "Student updated successfully"})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteStudent(r.Context(), chi.URLParam(r, "studentID"))
	switch {
	case errors.Is(err, storage.ErrStudentNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Student not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("delete student failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to delete student")
		return
	}
	httpx.WriteJSON(w, map[string]any{"message": "Student record deleted successfully"})
}

func (s *Server) handleScoresReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.db.ScoresReportFor(r.Context(), chi.URLParam(r, "matricNo"))
	if err != nil {
		s.logger.Error().Err(err).Msg("scores report failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch scores report")
		return
	}
	httpx.WriteJSON(w, report)
}

func (s *Server) handleCohorts(w http.ResponseWriter, r *http.Request) {
	years, err := s.db.Cohorts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("cohorts query failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch cohorts")
		return
	}
	httpx.WriteJSON(w, years)
}
