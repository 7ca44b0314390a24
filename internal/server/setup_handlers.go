package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JustynLim/SoC-SMS/internal/auth/hash"
	"github.com/JustynLim/SoC-SMS/internal/auth/store"
	"github.com/JustynLim/SoC-SMS/internal/auth/totp"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

// handleCheckSetup reports first-boot state for the route guard.
func (s *Server) handleCheckSetup(w http.ResponseWriter, r *http.Request) {
	userCount := s.users.Count()
	adminExists := s.users.HasAdmin()

	needs2FA := false
	if admin, ok := s.users.OldestAdmin(); ok {
		needs2FA = !admin.HasVerified2FA
	}

	httpx.WriteJSON(w, map[string]any{
		"shouldSetup":   userCount == 0,
		"needs2FASetup": needs2FA,
		"adminExists":   adminExists,
		"userCount":     userCount,
	})
}

type setupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// handleSetup starts first-admin enrollment. It hands back the TOTP secret
// and QR code but persists nothing: the admin account only exists once the
// code is verified, so an abandoned wizard leaves no half-configured user.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, "setup:"+clientIP(r), s.cfg.RateLoginPer15m, 15*time.Minute) {
		return
	}
	var req setupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if s.users.Count() > 0 {
		httpx.WriteError(w, http.StatusConflict, "Setup already completed")
		return
	}

	enrollment, err := totp.Enroll(s.cfg.TOTPIssuer, req.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("totp enrollment failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	httpx.WriteJSONStatus(w, http.StatusCreated, map[string]any{
		"success":    true,
		"isAdmin":    true,
		"qrUrl":      enrollment.QRUrl,
		"manualCode": enrollment.ManualCode,
		"secret":     enrollment.Secret,
		"message":    "Scan the QR code, then verify",
	})
}

type verify2FASetupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	Secret          string `json:"secret" validate:"required"`
}

// handleVerify2FASetup finishes the wizard: the code proves the secret made
// it into an authenticator, and only then is the admin created.
func (s *Server) handleVerify2FASetup(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, "setup:"+clientIP(r), s.cfg.RateLoginPer15m, 15*time.Minute) {
		return
	}
	var req verify2FASetupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if s.users.Count() > 0 {
		httpx.WriteError(w, http.StatusConflict, "Setup already completed")
		return
	}
	if !totp.Verify(req.Secret, req.Code) {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid 2FA code.")
		return
	}

	phc, err := hash.Password(req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	u, err := s.users.Create(store.User{
		Email:          req.Email,
		PasswordHash:   phc,
		IsAdmin:        true,
		TOTPSecret:     req.Secret,
		HasVerified2FA: true,
	})
	if errors.Is(err, store.ErrUserExists) {
		httpx.WriteError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("admin creation failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.logger.Info().Str("email", u.Email).Msg("admin account created")

	// Setup completion doubles as the first login.
	access, err := s.issueAccessCookies(w, u.Email)
	if err == nil {
		err = s.issueRefreshCookies(w, u.Email)
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	httpx.WriteJSON(w, map[string]any{
		"message":     "2FA verified successfully",
		"accessToken": access,
		"email":       u.Email,
	})
}
