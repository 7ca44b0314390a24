// Package server is the HTTP surface of smsd: first-boot setup, the 2FA
// login flow, and the student data plane.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JustynLim/SoC-SMS/internal/auth/store"
	"github.com/JustynLim/SoC-SMS/internal/auth/token"
	"github.com/JustynLim/SoC-SMS/internal/config"
	"github.com/JustynLim/SoC-SMS/internal/ratelimit"
	"github.com/JustynLim/SoC-SMS/internal/storage"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

func Logger(cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

// Server bundles the stores and token machinery behind the routes.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	users    *store.Store
	db       *storage.Store
	tokens   *token.Manager
	rates    *ratelimit.Store
	validate *validator.Validate
}

func New(cfg config.Config, logger zerolog.Logger, users *store.Store, db *storage.Store, rates *ratelimit.Store) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		users:    users,
		db:       db,
		tokens:   token.NewManager(cfg.Secret(), cfg.AccessTTL, cfg.RefreshTTL),
		rates:    rates,
		validate: validator.New(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(zerologMiddleware(&s.logger))
	r.Use(metricsMiddleware)
	r.Use(securityHeaders)

	// Dev CORS for the Vite front-end.
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler())

	// Setup and login, open by design: everything else is gated on the
	// access token these hand out.
	r.Get("/api/check-setup", s.handleCheckSetup)
	r.Post("/api/setup", s.handleSetup)
	r.Post("/api/verify-2fa-setup", s.handleVerify2FASetup)
	r.Post("/api/login/verify-credentials", s.handleVerifyCredentials)
	r.Post("/api/login/verify-2fa", s.handleVerify2FA)
	r.Post("/api/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCSRF)
		r.Post("/api/token/refresh", s.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Use(s.requireCSRF)

		r.Get("/api/home", s.handleHome)

		r.Get("/api/students", s.handleListStudents)
		r.Post("/api/add-student", s.handleAddStudent)
		r.Put("/api/students/{studentID}", s.handleUpdateStudent)
		r.Delete("/api/students/{studentID}", s.handleDeleteStudent)
		r.Get("/api/students/{matricNo}/scores-report", s.handleScoresReport)
		r.Get("/api/cohorts", s.handleCohorts)

		r.Get("/api/students-scores", s.handleListScores)
		r.Get("/api/students-scores-by-cohort", s.handleScoresByCohort)
		r.Put("/api/students-scores/{scoreID}", s.handleUpdateScore)

		r.Get("/api/course-structure", s.handleListCourses)
		r.Post("/api/course-structure", s.handleCreateCourse)
		r.Put("/api/course-structure/{courseID}", s.handleUpdateCourse)
		r.Delete("/api/course-structure/{courseID}", s.handleDeleteCourse)
		r.Get("/api/course-versions", s.handleCourseVersions)
		r.Get("/api/course-structure/options", s.handleCourseOptions)

		r.Get("/api/student-score/sessions/internship", s.handleInternshipSessions)
		r.Get("/api/student-score/sessions/mentorship", s.handleMentorshipSessions)
		r.Post("/api/generate-list/internship", s.handleInternshipList)
		r.Post("/api/generate-list/internship/pdf", s.handleInternshipListPDF)
		r.Post("/api/generate-list/mentorship", s.handleMentorshipList)
		r.Post("/api/generate-list/mentorship/pdf", s.handleMentorshipListPDF)

		r.Get("/api/dashboard/summary", s.handleDashboardSummary)

		r.Post("/api/import", s.handleImport)
		r.Post("/api/import-marksheet", s.handleImportMarksheet)

		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/programs", s.handleListPrograms)
			r.Post("/programs", s.handleAddProgram)
			r.Put("/programs/{value}", s.handleRenameProgram)
			r.Delete("/programs/{value}", s.handleDeleteProgram)

			r.Get("/lecturers", s.handleListLecturers)
			r.Post("/lecturers", s.handleAddLecturer)
			r.Put("/lecturers/{value}", s.handleRenameLecturer)
			r.Delete("/lecturers/{value}", s.handleDeleteLecturer)

			r.Get("/student-statuses", s.handleListStatuses)
			r.Post("/student-statuses", s.handleAddStatus)
			r.Put("/student-statuses/{value}", s.handleRenameStatus)
			r.Delete("/student-statuses/{value}", s.handleDeleteStatus)
		})
	})

	return r
}
