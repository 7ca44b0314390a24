package server

import (
	"net/http"
	"time"

	"github.com/JustynLim/SoC-SMS/internal/auth/token"
)

// Cookie contract shared with the browser client: token cookies are HttpOnly,
// the CSRF cookies are readable so the client can echo them in X-CSRF-TOKEN.
const (
	cookieAccess      = "access_token_cookie"
	cookieRefresh     = "refresh_token_cookie"
	cookieCSRFAccess  = "csrf_access_token"
	cookieCSRFRefresh = "csrf_refresh_token"

	csrfHeader = "X-CSRF-TOKEN"
)

func setTokenCookie(w http.ResponseWriter, name, value string, httpOnly bool, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

// issueAccessCookies sets the access token pair and returns the raw token for
// the response body.
func (s *Server) issueAccessCookies(w http.ResponseWriter, email string) (string, error) {
	access, csrf, err := s.tokens.IssueAccess(email)
	if err != nil {
		return "", err
	}
	setTokenCookie(w, cookieAccess, access, true, s.cfg.AccessTTL)
	setTokenCookie(w, cookieCSRFAccess, csrf, false, s.cfg.AccessTTL)
	return access, nil
}

func (s *Server) issueRefreshCookies(w http.ResponseWriter, email string) error {
	refresh, csrf, err := s.tokens.IssueRefresh(email)
	if err != nil {
		return err
	}
	setTokenCookie(w, cookieRefresh, refresh, true, s.cfg.RefreshTTL)
	setTokenCookie(w, cookieCSRFRefresh, csrf, false, s.cfg.RefreshTTL)
	return nil
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{cookieAccess, cookieRefresh, cookieCSRFAccess, cookieCSRFRefresh} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// claimsFromCookie parses and validates the named token cookie.
func (s *Server) claimsFromCookie(r *http.Request, cookieName, wantType string) (*token.Claims, bool) {
	ck, err := r.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return nil, false
	}
	claims, err := s.tokens.Parse(ck.Value, wantType)
	if err != nil {
		return nil, false
	}
	return claims, true
}
