package server

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/JustynLim/SoC-SMS/internal/importer"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

const maxUploadBytes = 32 << 20

// Course structure versions are dated; "2024-09" style prefixes are expanded
// to a full date downstream, so only year-month is enforced here.
var versionDateRe = regexp.MustCompile(`^\d{4}-\d{2}`)

// handleImport ingests one sheet of the master datasheet workbook: a student
// tab (Active, Graduate, Withdraw) or the Course-Str tab.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	sheet := strings.TrimSpace(r.FormValue("selectedSheet"))
	if sheet == "" {
		httpx.WriteError(w, http.StatusBadRequest, "No sheet selected")
		return
	}

	log := s.logger.With().Str("file", header.Filename).Str("sheet", sheet).Logger()

	if strings.EqualFold(sheet, "Course-Str") {
		version := strings.TrimSpace(r.FormValue("courseVersionDate"))
		if !versionDateRe.MatchString(version) {
			httpx.WriteError(w, http.StatusBadRequest, "Course version date must be in YYYY-MM format")
			return
		}
		isLegacy := r.FormValue("isLegacy") == "true"

		result, err := importer.CourseStructure(r.Context(), log, s.db, file, version, isLegacy)
		if err != nil {
			log.Error().Err(err).Msg("course structure import failed")
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Info().Int("inserted", result.Inserted).Int("updated", result.Updated).
			Int("errors", result.Errors).Msg("course structure imported")
		httpx.WriteJSON(w, result)
		return
	}

	result, err := importer.StudentSheet(r.Context(), log, s.db, file, sheet)
	if err != nil {
		log.Error().Err(err).Msg("student sheet import failed")
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Int("inserted", result.Inserted).Int("updated", result.Updated).
		Int("errors", result.Errors).Msg("student sheet imported")
	httpx.WriteJSON(w, result)
}

// handleImportMarksheet ingests a macro-enabled marksheet workbook and posts
// scores into the first open attempt of each matching student.
func (s *Server) handleImportMarksheet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsm" && ext != ".xlsx" {
		httpx.WriteError(w, http.StatusBadRequest, "Marksheet must be an Excel workbook (.xlsm)")
		return
	}

	log := s.logger.With().Str("file", header.Filename).Logger()
	result, err := importer.Marksheet(r.Context(), log, s.db, file)
	if err != nil {
		log.Error().Err(err).Msg("marksheet import failed")
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	importedScores.Add(float64(result.Updated))
	log.Info().Int("updated", result.Updated).Int("skipped", result.Skipped).
		Int("sheets", result.Sheets).Msg("marksheet imported")
	httpx.WriteJSON(w, result)
}
