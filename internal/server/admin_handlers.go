package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

// The three reference-data endpoints share one contract: GET lists strings,
// POST adds {"value": ...}, PUT /{value} renames to {"value": ...} and
// DELETE /{value} removes. Only the backing table differs.

type refValueRequest struct {
	Value string `json:"value" validate:"required"`
}

func (s *Server) refListHandler(list func(context.Context) ([]string, error), what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := list(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Str("kind", what).Msg("refdata list failed")
			httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch "+what)
			return
		}
		httpx.WriteJSON(w, values)
	}
}

func (s *Server) refAddHandler(add func(context.Context, string) error, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refValueRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		req.Value = strings.TrimSpace(req.Value)
		if req.Value == "" {
			httpx.WriteError(w, http.StatusBadRequest, "Value is required")
			return
		}

		err := add(r.Context(), req.Value)
		switch {
		case errors.Is(err, storage.ErrRefValueExists):
			httpx.WriteError(w, http.StatusConflict, capitalizeFirst(what)+" already exists")
			return
		case err != nil:
			s.logger.Error().Err(err).Str("kind", what).Msg("refdata add failed")
			httpx.WriteError(w, http.StatusInternalServerError, "Failed to add "+what)
			return
		}
		httpx.WriteJSONStatus(w, http.StatusCreated, map[string]any{
			"message": capitalizeFirst(what) + " added successfully",
		})
	}
}

func (s *Server) refRenameHandler(rename func(context.Context, string, string) error, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oldValue := pathValue(r)
		var req refValueRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		req.Value = strings.TrimSpace(req.Value)
		if req.Value == "" {
			httpx.WriteError(w, http.StatusBadRequest, "Value is required")
			return
		}

		err := rename(r.Context(), oldValue, req.Value)
		switch {
		case errors.Is(err, storage.ErrRefValueNotFound):
			httpx.WriteError(w, http.StatusNotFound, capitalizeFirst(what)+" not found")
			return
		case errors.Is(err, storage.ErrRefValueExists):
			httpx.WriteError(w, http.StatusConflict, capitalizeFirst(what)+" already exists")
			return
		case err != nil:
			s.logger.Error().Err(err).Str("kind", what).Msg("refdata rename failed")
			httpx.WriteError(w, http.StatusInternalServerError, "Failed to update "+what)
			return
		}
		httpx.WriteJSON(w, map[string]any{
			"message": capitalizeFirst(what) + " updated successfully",
		})
	}
}

func (s *Server) refDeleteHandler(del func(context.Context, string) error, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := del(r.Context(), pathValue(r))
		switch {
		case errors.Is(err, storage.ErrRefValueNotFound):
			httpx.WriteError(w, http.StatusNotFound, capitalizeFirst(what)+" not found")
			return
		case err != nil:
			s.logger.Error().Err(err).Str("kind", what).Msg("refdata delete failed")
			httpx.WriteError(w, http.StatusInternalServerError, "Failed to delete "+what)
			return
		}
		httpx.WriteJSON(w, map[string]any{
			"message": capitalizeFirst(what) + " deleted successfully",
		})
	}
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	s.refListHandler(s.db.Programs, "program")(w, r)
}

func (s *Server) handleAddProgram(w http.ResponseWriter, r *http.Request) {
	s.refAddHandler(s.db.AddProgram, "program")(w, r)
}

func (s *Server) handleRenameProgram(w http.ResponseWriter, r *http.Request) {
	s.refRenameHandler(s.db.RenameProgram, "program")(w, r)
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	s.refDeleteHandler(s.db.DeleteProgram, "program")(w, r)
}

func (s *Server) handleListLecturers(w http.ResponseWriter, r *http.Request) {
	s.refListHandler(s.db.Lecturers, "lecturer")(w, r)
}

func (s *Server) handleAddLecturer(w http.ResponseWriter, r *http.Request) {
	s.refAddHandler(s.db.AddLecturer, "lecturer")(w, r)
}

func (s *Server) handleRenameLecturer(w http.ResponseWriter, r *http.Request) {
	s.refRenameHandler(s.db.RenameLecturer, "lecturer")(w, r)
}

func (s *Server) handleDeleteLecturer(w http.ResponseWriter, r *http.Request) {
	s.refDeleteHandler(s.db.DeleteLecturer, "lecturer")(w, r)
}

func (s *Server) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	s.refListHandler(s.db.StudentStatuses, "student status")(w, r)
}

func (s *Server) handleAddStatus(w http.ResponseWriter, r *http.Request) {
	s.refAddHandler(s.db.AddStudentStatus, "student status")(w, r)
}

func (s *Server) handleRenameStatus(w http.ResponseWriter, r *http.Request) {
	s.refRenameHandler(s.db.RenameStudentStatus, "student status")(w, r)
}

func (s *Server) handleDeleteStatus(w http.ResponseWriter, r *http.Request) {
	s.refDeleteHandler(s.db.DeleteStudentStatus, "student status")(w, r)
}

// pathValue decodes the {value} segment; lecturer names carry spaces.
func pathValue(r *http.Request) string {
	raw := chi.URLParam(r, "value")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
