package apiclient

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// LoginState tracks progress through the two-step login.
type LoginState string

const (
	StateEnteringCredentials LoginState = "entering-credentials"
	StateVerifyingCreds      LoginState = "verifying-credentials"
	StateAwaiting2FA         LoginState = "awaiting-2fa"
	StateVerifying2FA        LoginState = "verifying-2fa"
	StateAuthenticated       LoginState = "authenticated"
)

// FieldErrors carries local validation failures, keyed by field name. These
// block submission before any network call.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// LoginFlow is the credential+TOTP state machine. The pending password lives
// only in this value between the two steps and is wiped on cancel and on
// completion; it is never serialized.
type LoginFlow struct {
	client *Client

	state    LoginState
	email    string
	password string

	// lastError is the message shown inline, verbatim from the server for
	// rejections, generic for transport failures.
	lastError string
}

func NewLoginFlow(client *Client) *LoginFlow {
	return &LoginFlow{client: client, state: StateEnteringCredentials}
}

func (f *LoginFlow) State() LoginState { return f.state }
func (f *LoginFlow) LastError() string { return f.lastError }

// SubmitCredentials validates locally, then verifies against the server.
// Success arms the 2FA challenge; rejection keeps the credential form with
// the server's message.
func (f *LoginFlow) SubmitCredentials(ctx context.Context, email, password string) error {
	if f.state != StateEnteringCredentials {
		return errors.New("not at credential entry")
	}

	fieldErrs := FieldErrors{}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		fieldErrs["email"] = "Enter a valid email address"
	}
	if password == "" {
		fieldErrs["password"] = "Password is required"
	}
	if len(fieldErrs) > 0 {
		return fieldErrs
	}

	f.state = StateVerifyingCreds
	err := f.client.VerifyCredentials(ctx, email, password)
	if err != nil {
		f.state = StateEnteringCredentials
		f.lastError = loginErrorMessage(err)
		return err
	}

	f.email = email
	f.password = password
	f.state = StateAwaiting2FA
	f.lastError = ""
	return nil
}

// Submit2FA verifies the 6-digit code. Rejection keeps the challenge open
// for another attempt; success persists the session.
func (f *LoginFlow) Submit2FA(ctx context.Context, code string) error {
	if f.state != StateAwaiting2FA {
		return errors.New("no pending 2FA challenge")
	}

	f.state = StateVerifying2FA
	err := f.client.Verify2FA(ctx, f.email, f.password, code)
	if err != nil {
		f.state = StateAwaiting2FA
		f.lastError = loginErrorMessage(err)
		return err
	}

	f.password = ""
	f.state = StateAuthenticated
	f.lastError = ""
	return nil
}

// Cancel abandons the 2FA challenge: back to the credential form, pending
// credential and transient errors discarded.
func (f *LoginFlow) Cancel() {
	f.email = ""
	f.password = ""
	f.lastError = ""
	f.state = StateEnteringCredentials
}

func loginErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Unable to reach the server. Please try again."
}
