// Package apiclient is the Go client for the smsd API. It carries the pieces
// the browser front-end implemented in scattered module state: a file-backed
// session store, a refreshing transport, the route guard and the two-step
// login flow.
package apiclient

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JustynLim/SoC-SMS/internal/fsatomic"
)

// Session is the persisted login state, the analogue of the browser's
// localStorage slot. Cookies live in the HTTP client's jar; this only holds
// what the front-end kept readable.
type Session struct {
	AccessToken string    `json:"accessToken"`
	Email       string    `json:"email"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// SessionStore persists the session to a single JSON file. LastRoute is
// process-lifetime only, matching the original's sessionStorage scoping.
type SessionStore struct {
	path string

	mu        sync.RWMutex
	session   Session
	lastRoute string
}

func NewSessionStore(path string) (*SessionStore, error) {
	s := &SessionStore{path: path}
	if _, err := fsatomic.LoadJSON(path, &s.session); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the stored session. A zero AccessToken means logged out.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *SessionStore) LoggedIn() bool {
	return s.Current().AccessToken != ""
}

// Save replaces the persisted session. Only the login flow and logout write
// here; readers take the lock-protected copy.
func (s *SessionStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return fsatomic.SaveJSON(context.Background(), s.path, s.session, 0o600)
}

// Clear wipes the session, on logout or terminal refresh failure.
func (s *SessionStore) Clear() error {
	return s.Save(Session{})
}

// RecordRoute remembers path as the post-login landing target. Auth and setup
// paths are never recorded; bouncing back to /login after login is useless.
func (s *SessionStore) RecordRoute(path string) {
	if isAuthPath(path) || isSetupPath(path) {
		return
	}
	s.mu.Lock()
	s.lastRoute = path
	s.mu.Unlock()
}

// LastRoute returns the recorded route, or /home when none was visited yet.
func (s *SessionStore) LastRoute() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRoute == "" {
		return "/home"
	}
	return s.lastRoute
}

func isSetupPath(path string) bool {
	return strings.HasPrefix(path, "/setup")
}

func isAuthPath(path string) bool {
	return path == "/login" || path == "/logout"
}
