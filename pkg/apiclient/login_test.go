package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeAuthServer accepts admin@example.com / Secret123! and the code 123456.
func fakeAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login/verify-credentials", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "admin@example.com" || req.Password != "Secret123!" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	})
	mux.HandleFunc("/api/login/verify-2fa", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			TwoFACode string `json:"twoFACode"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.TwoFACode != "123456" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid 2FA code."})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token_cookie", Value: "tok", Path: "/"})
		json.NewEncoder(w).Encode(map[string]string{
			"accessToken": "tok",
			"email":       req.Email,
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestLoginRoundTrip(t *testing.T) {
	ts := fakeAuthServer(t)
	c, sessions := newClient(t, ts.URL)
	flow := NewLoginFlow(c)
	ctx := context.Background()

	if err := flow.SubmitCredentials(ctx, "admin@example.com", "Secret123!"); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if flow.State() != StateAwaiting2FA {
		t.Fatalf("state = %s, want awaiting-2fa", flow.State())
	}
	if err := flow.Submit2FA(ctx, "123456"); err != nil {
		t.Fatalf("2fa: %v", err)
	}
	if flow.State() != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", flow.State())
	}

	sess := sessions.Current()
	if sess.AccessToken != "tok" || sess.Email != "admin@example.com" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLoginWrong2FACodeSurfacesVerbatim(t *testing.T) {
	ts := fakeAuthServer(t)
	c, sessions := newClient(t, ts.URL)
	flow := NewLoginFlow(c)
	ctx := context.Background()

	if err := flow.SubmitCredentials(ctx, "admin@example.com", "Secret123!"); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	err := flow.Submit2FA(ctx, "000000")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if flow.State() != StateAwaiting2FA {
		t.Fatalf("state = %s, want awaiting-2fa (challenge stays open)", flow.State())
	}
	if flow.LastError() != "Invalid 2FA code." {
		t.Fatalf("error = %q, want exact server message", flow.LastError())
	}
	if sessions.LoggedIn() {
		t.Fatal("session stored despite failed 2FA")
	}

	// The challenge is still live; the right code completes the login.
	if err := flow.Submit2FA(ctx, "123456"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if flow.State() != StateAuthenticated {
		t.Fatalf("state = %s", flow.State())
	}
}

func TestLoginBadCredentialsStaysOnForm(t *testing.T) {
	ts := fakeAuthServer(t)
	c, _ := newClient(t, ts.URL)
	flow := NewLoginFlow(c)

	err := flow.SubmitCredentials(context.Background(), "admin@example.com", "nope")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if flow.State() != StateEnteringCredentials {
		t.Fatalf("state = %s", flow.State())
	}
	if flow.LastError() != "Invalid credentials" {
		t.Fatalf("error = %q", flow.LastError())
	}
}

func TestLoginLocalValidationBlocksNetworkCall(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(ts.Close)
	c, _ := newClient(t, ts.URL)
	flow := NewLoginFlow(c)

	err := flow.SubmitCredentials(context.Background(), "not-an-email", "")
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("err = %T, want FieldErrors", err)
	}
	if fieldErrs["email"] == "" || fieldErrs["password"] == "" {
		t.Fatalf("field errors = %v", fieldErrs)
	}
	if called {
		t.Fatal("invalid form reached the network")
	}
}

func TestLoginCancelDiscardsPendingCredential(t *testing.T) {
	ts := fakeAuthServer(t)
	c, _ := newClient(t, ts.URL)
	flow := NewLoginFlow(c)
	ctx := context.Background()

	if err := flow.SubmitCredentials(ctx, "admin@example.com", "Secret123!"); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	flow.Submit2FA(ctx, "000000")
	flow.Cancel()

	if flow.State() != StateEnteringCredentials {
		t.Fatalf("state = %s", flow.State())
	}
	if flow.LastError() != "" {
		t.Fatalf("error survived cancel: %q", flow.LastError())
	}
	if flow.email != "" || flow.password != "" {
		t.Fatal("pending credential survived cancel")
	}
	if err := flow.Submit2FA(ctx, "123456"); err == nil {
		t.Fatal("2FA accepted after cancel")
	}
}

func TestTransportErrorIsGeneric(t *testing.T) {
	ts := fakeAuthServer(t)
	url := ts.URL
	ts.Close()

	c, _ := newClient(t, url)
	flow := NewLoginFlow(c)
	err := flow.SubmitCredentials(context.Background(), "admin@example.com", "Secret123!")
	if err == nil {
		t.Fatal("expected transport failure")
	}
	if flow.LastError() != "Unable to reach the server. Please try again." {
		t.Fatalf("error = %q, want generic transport message", flow.LastError())
	}
}
