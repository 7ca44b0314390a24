package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.db.ListCourses(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list courses failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch course structure")
		return
	}
	if courses == nil {
		courses = []storage.Course{}
	}
	httpx.WriteJSON(w, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var c storage.Course
	if err := httpx.DecodeJSON(r, &c); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if c.CourseCode == "" || c.Module == "" || c.CourseVersion == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Course code, module and version are required")
		return
	}

	id, err := s.db.CreateCourse(r.Context(), c)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"message":   "Course added successfully",
		"COURSE_ID": id,
	})
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid course id")
		return
	}
	var c storage.Course
	if err := httpx.DecodeJSON(r, &c); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	c.CourseID = courseID

	err = s.db.UpdateCourse(r.Context(), c)
	switch {
	case errors.Is(err, storage.ErrCourseNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	case err != nil:
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, map[string]any{"message": "Course updated successfully"})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid course id")
		return
	}

	err = s.db.DeleteCourse(r.Context(), courseID)
	switch {
	case errors.Is(err, storage.ErrCourseNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	case err != nil:
		s.logger.Error().Err(err).Int64("course_id", courseID).Msg("course delete failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to delete course")
		return
	}
	httpx.WriteJSON(w, map[string]any{"message": "Course deleted successfully"})
}

func (s *Server) handleCourseVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.db.CourseVersions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("course versions failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch course versions")
		return
	}
	httpx.WriteJSON(w, versions)
}

func (s *Server) handleCourseOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.db.CourseOptions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("course options failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch course options")
		return
	}
	httpx.WriteJSON(w, opts)
}
