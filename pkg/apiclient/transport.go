package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	csrfHeader        = "X-CSRF-TOKEN"
	csrfAccessCookie  = "csrf_access_token"
	csrfRefreshCookie = "csrf_refresh_token"
)

type retriedKey struct{}

// refreshGate serializes silent token refreshes: at most one refresh is in
// flight, every request blocked behind it is parked and woken exactly once.
type refreshGate struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan error
}

// acquireOrEnqueue either claims the refresh (owner true, wait nil) or
// registers the caller behind the in-flight one (owner false, wait non-nil).
// Claiming and registering share one critical section: a caller can never
// observe an in-flight refresh and then register after it settled, which
// would strand its channel forever.
func (g *refreshGate) acquireOrEnqueue() (owner bool, wait <-chan error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inFlight {
		g.inFlight = true
		return true, nil
	}
	ch := make(chan error, 1)
	g.waiters = append(g.waiters, ch)
	return false, ch
}

func (g *refreshGate) resolveAll() {
	g.settle(nil)
}

func (g *refreshGate) rejectAll(err error) {
	g.settle(err)
}

func (g *refreshGate) settle(err error) {
	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.inFlight = false
	g.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

// refreshTransport is the Go rendition of the original response interceptor.
// It attaches the CSRF header on mutating requests and, on a 401 from any
// non-refresh endpoint, refreshes the access token once and replays the
// request. A 401 from the refresh endpoint itself is terminal.
type refreshTransport struct {
	base       http.RoundTripper
	jar        http.CookieJar
	sessions   *SessionStore
	gate       *refreshGate
	logger     zerolog.Logger
	expired    func()
	refreshURL string
}

func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	t.attachCSRF(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if req.URL.Path == refreshPath {
		// Terminal: the refresh token itself is dead.
		t.expired()
		return resp, nil
	}
	if req.Context().Value(retriedKey{}) != nil {
		return resp, nil
	}
	if req.GetBody == nil && req.Body != nil {
		// Unreplayable body; surface the 401 as-is.
		return resp, nil
	}

	owner, wait := t.gate.acquireOrEnqueue()
	if owner {
		refreshErr := t.refresh(req.Context())
		if refreshErr != nil {
			t.gate.rejectAll(refreshErr)
			return resp, nil
		}
		t.gate.resolveAll()
	} else {
		select {
		case waitErr := <-wait:
			if waitErr != nil {
				return resp, nil
			}
		case <-req.Context().Done():
			resp.Body.Close()
			return nil, req.Context().Err()
		}
	}

	resp.Body.Close()
	return t.replay(req)
}

// refresh posts the refresh endpoint through this same transport. The CSRF
// header is picked from the refresh cookie and a 401 takes the terminal path
// above, so callers only see success or failure.
func (t *refreshTransport) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, nil)
	if err != nil {
		return err
	}
	for _, c := range t.jar.Cookies(req.URL) {
		req.AddCookie(c)
	}
	resp, err := t.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "token refresh failed"}
	}
	t.jar.SetCookies(req.URL, resp.Cookies())

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.AccessToken != "" {
		sess := t.sessions.Current()
		sess.AccessToken = out.AccessToken
		sess.IssuedAt = time.Now().UTC()
		if err := t.sessions.Save(sess); err != nil {
			t.logger.Warn().Err(err).Msg("session save after refresh failed")
		}
	}
	return nil
}

func (t *refreshTransport) replay(req *http.Request) (*http.Response, error) {
	clone := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	// The access cookie rotated; re-send what the jar holds now.
	clone.Header.Del("Cookie")
	for _, c := range t.jar.Cookies(clone.URL) {
		clone.AddCookie(c)
	}
	t.attachCSRF(clone)
	return t.base.RoundTrip(clone)
}

// attachCSRF sets X-CSRF-TOKEN on mutating requests: the refresh-side value
// for the refresh endpoint, the access-side value for everything else.
func (t *refreshTransport) attachCSRF(req *http.Request) {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return
	}
	want := csrfAccessCookie
	if req.URL.Path == refreshPath {
		want = csrfRefreshCookie
	}
	for _, c := range t.jar.Cookies(req.URL) {
		if c.Name == want {
			req.Header.Set(csrfHeader, c.Value)
			return
		}
	}
}
