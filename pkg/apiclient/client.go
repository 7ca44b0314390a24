package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const refreshPath = "/api/token/refresh"

// APIError is a server-side rejection. Message carries the server's error
// string verbatim; callers show it to the user unchanged.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// SetupStatus mirrors GET /api/check-setup.
type SetupStatus struct {
	ShouldSetup   bool `json:"shouldSetup"`
	Needs2FASetup bool `json:"needs2FASetup"`
	AdminExists   bool `json:"adminExists"`
	UserCount     int  `json:"userCount"`
}

// Enrollment mirrors the POST /api/setup response. Secret must be sent back
// on verification; the server does not hold it yet.
type Enrollment struct {
	QRUrl      string `json:"qrUrl"`
	ManualCode string `json:"manualCode"`
	Secret     string `json:"secret"`
}

// Client talks to one smsd instance. The cookie jar holds the token cookies;
// the transport handles CSRF headers and silent refresh.
type Client struct {
	base     *url.URL
	http     *http.Client
	sessions *SessionStore
	logger   zerolog.Logger

	// OnSessionExpired fires when a refresh fails terminally, after the
	// session file is cleared. The CLI redirects to login here.
	OnSessionExpired func()
}

func New(baseURL string, sessions *SessionStore, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:     base,
		sessions: sessions,
		logger:   logger,
	}
	t := &refreshTransport{
		base:       http.DefaultTransport,
		jar:        jar,
		sessions:   sessions,
		gate:       &refreshGate{},
		logger:     logger,
		expired:    func() { c.sessionExpired() },
		refreshURL: base.JoinPath(refreshPath).String(),
	}
	c.http = &http.Client{
		Jar:       jar,
		Transport: t,
		Timeout:   30 * time.Second,
	}
	return c, nil
}

func (c *Client) sessionExpired() {
	if err := c.sessions.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("session clear failed")
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

// CheckSetup fetches first-boot state for the route guard.
func (c *Client) CheckSetup(ctx context.Context) (*SetupStatus, error) {
	var status SetupStatus
	if err := c.call(ctx, http.MethodGet, "/api/check-setup", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BeginSetup starts the admin wizard and returns the TOTP enrollment.
func (c *Client) BeginSetup(ctx context.Context, email, password, confirm string) (*Enrollment, error) {
	var enrollment Enrollment
	err := c.call(ctx, http.MethodPost, "/api/setup", map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": confirm,
	}, &enrollment)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CompleteSetup proves possession of the enrollment secret. On success the
// server creates the admin, logs it in and the session is persisted.
func (c *Client) CompleteSetup(ctx context.Context, email, password, confirm, code, secret string) error {
	var out struct {
		AccessToken string `json:"accessToken"`
		Email       string `json:"email"`
	}
	err := c.call(ctx, http.MethodPost, "/api/verify-2fa-setup", map[string]string{
		"email":           email,
		"password":        password,
		"confirmPassword": confirm,
		"code":            code,
		"secret":          secret,
	}, &out)
	if err != nil {
		return err
	}
	return c.sessions.Save(Session{
		AccessToken: out.AccessToken,
		Email:       out.Email,
		IssuedAt:    time.Now().UTC(),
	})
}

// VerifyCredentials is step one of the split login. No tokens change hands.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) error {
	return c.call(ctx, http.MethodPost, "/api/login/verify-credentials", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

// Verify2FA is step two; on success the token cookies land in the jar and the
// access token is persisted to the session file.
func (c *Client) Verify2FA(ctx context.Context, email, password, code string) error {
	var out struct {
		AccessToken string `json:"accessToken"`
		Email       string `json:"email"`
	}
	err := c.call(ctx, http.MethodPost, "/api/login/verify-2fa", map[string]string{
		"email":     email,
		"password":  password,
		"twoFACode": code,
	}, &out)
	if err != nil {
		return err
	}
	return c.sessions.Save(Session{
		AccessToken: out.AccessToken,
		Email:       out.Email,
		IssuedAt:    time.Now().UTC(),
	})
}

// Logout clears the server cookies and the local session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/api/logout", nil, nil); err != nil {
		return err
	}
	return c.sessions.Clear()
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	rel, err := url.Parse(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(rel).String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
