package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JustynLim/SoC-SMS/pkg/apiclient"
)

func guardedClient(t *testing.T, status map[string]any) (*apiclient.Client, *apiclient.SessionStore) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/check-setup" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(status)
	}))
	t.Cleanup(ts.Close)

	sessions, err := apiclient.NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	c, err := apiclient.New(ts.URL, sessions, cliLogger())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c, sessions
}

func TestEnsureRouteDirectsToSetup(t *testing.T) {
	c, sessions := guardedClient(t, map[string]any{"shouldSetup": true})
	err := ensureRoute(context.Background(), c, sessions, "/students")
	if err == nil || !strings.Contains(err.Error(), "smsctl setup") {
		t.Fatalf("err = %v, want setup guidance", err)
	}
}

func TestEnsureRouteDirectsToLogin(t *testing.T) {
	c, sessions := guardedClient(t, map[string]any{"adminExists": true})
	err := ensureRoute(context.Background(), c, sessions, "/students")
	if err == nil || !strings.Contains(err.Error(), "smsctl login") {
		t.Fatalf("err = %v, want login guidance", err)
	}
}

func TestEnsureRouteAllowsLoggedInSession(t *testing.T) {
	c, sessions := guardedClient(t, map[string]any{"adminExists": true})
	if err := sessions.Save(apiclient.Session{AccessToken: "tok", Email: "admin@soc.edu"}); err != nil {
		t.Fatal(err)
	}
	if err := ensureRoute(context.Background(), c, sessions, "/students"); err != nil {
		t.Fatalf("ensureRoute: %v", err)
	}
	if sessions.LastRoute() != "/students" {
		t.Fatalf("last route = %q, want /students", sessions.LastRoute())
	}
}
