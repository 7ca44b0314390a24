package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JustynLim/SoC-SMS/internal/auth/hash"
	"github.com/JustynLim/SoC-SMS/internal/auth/token"
	"github.com/JustynLim/SoC-SMS/internal/auth/totp"
	"github.com/JustynLim/SoC-SMS/pkg/httpx"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// handleVerifyCredentials is step one of the split login: password only, no
// tokens yet.
func (s *Server) handleVerifyCredentials(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, "login:"+clientIP(r), s.cfg.RateLoginPer15m, 15*time.Minute) {
		loginAttempts.WithLabelValues("rate_limited").Inc()
		return
	}

	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if !s.checkPassword(req.Email, req.Password) {
		loginAttempts.WithLabelValues("bad_credentials").Inc()
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	httpx.WriteJSON(w, map[string]any{"valid": true})
}

type verify2FARequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	TwoFACode string `json:"twoFACode" validate:"required,len=6,numeric"`
}

// handleVerify2FA is step two: credentials are re-verified together with the
// TOTP code before any token is issued.
func (s *Server) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, "otp:"+clientIP(r), s.cfg.RateOTPPerMin, time.Minute) {
		loginAttempts.WithLabelValues("rate_limited").Inc()
		return
	}

	var req verify2FARequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Email, password and 2FA code are required")
		return
	}

	if !s.checkPassword(req.Email, req.Password) {
		loginAttempts.WithLabelValues("bad_credentials").Inc()
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	u, err := s.users.FindByEmail(req.Email)
	if err != nil || u.TOTPSecret == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !totp.Verify(u.TOTPSecret, req.TwoFACode) {
		loginAttempts.WithLabelValues("bad_otp").Inc()
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid 2FA code.")
		return
	}

	u.LastLoginAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.users.Update(u); err != nil {
		s.logger.Warn().Err(err).Str("email", u.Email).Msg("last-login update failed")
	}

	access, err := s.issueAccessCookies(w, u.Email)
	if err == nil {
		err = s.issueRefreshCookies(w, u.Email)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("token issue failed")
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	loginAttempts.WithLabelValues("success").Inc()
	httpx.WriteJSON(w, map[string]any{
		"accessToken": access,
		"email":       u.Email,
	})
}

// handleRefresh rotates the access token pair off a valid refresh cookie.
// CSRF is already checked against the refresh token by the middleware.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.claimsFromCookie(r, cookieRefresh, token.TypeRefresh)
	if !ok {
		clearAuthCookies(w)
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if _, err := s.users.FindByEmail(claims.Subject); err != nil {
		clearAuthCookies(w)
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := s.issueAccessCookies(w, claims.Subject)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}
	httpx.WriteJSON(w, map[string]any{"accessToken": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookies(w)
	httpx.WriteJSON(w, map[string]any{"message": "Logout successful"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	email := emailFromContext(r.Context())
	httpx.WriteJSON(w, map[string]any{"message": fmt.Sprintf("Welcome %s!", email)})
}

func (s *Server) checkPassword(email, password string) bool {
	u, err := s.users.FindByEmail(email)
	if err != nil {
		// Verify against a dummy hash when the user is missing.
		hash.Verify("$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", password)
		return false
	}
	return hash.Verify(u.PasswordHash, password)
}

// allow applies a fixed-window rate limit and writes the 429 itself.
func (s *Server) allow(w http.ResponseWriter, key string, limit int, window time.Duration) bool {
	ok, _, resetAt := s.rates.Allow(key, limit, window)
	if !ok {
		retry := int(time.Until(resetAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		httpx.WriteRateLimited(w, retry)
	}
	return ok
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
